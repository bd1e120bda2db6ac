package messenger

import "testing"

func TestExtractPairKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		in       string
		wantText string
		wantKey  string
	}{
		{"no pair command", "hello there", "hello there", ""},
		{"pair with message", "/pair K7\nhello", "hello", "K7"},
		{"pair only", "/pair K7", "", "K7"},
		{"pair without key", "/pair", "/pair", ""},
		{"pair mid-text ignored", "say /pair K7", "say /pair K7", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			text, key := ExtractPairKey(tc.in)
			if text != tc.wantText || key != tc.wantKey {
				t.Fatalf("ExtractPairKey(%q) = (%q, %q), want (%q, %q)", tc.in, text, key, tc.wantText, tc.wantKey)
			}
		})
	}
}
