package catalog

import (
	"strings"
	"testing"
)

func mustReplace(t *testing.T, c *Catalog, profiles []Profile) {
	t.Helper()
	if err := c.Replace(profiles); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
}

func TestListEligibleEmptyFilterReturnsAll(t *testing.T) {
	t.Parallel()

	c := New()
	mustReplace(t, c, []Profile{
		{ID: "p1", Persona: []string{"i like trains"}},
		{ID: "p2", Persona: []string{"i follow football"}, Tags: []string{"sports"}},
	})

	got := c.ListEligible(nil)
	if len(got) != 2 {
		t.Fatalf("ListEligible(nil) returned %d profiles, want 2", len(got))
	}
	if got[0].ID != "p1" || got[1].ID != "p2" {
		t.Fatalf("ListEligible(nil) order = [%s %s], want import order [p1 p2]", got[0].ID, got[1].ID)
	}
}

func TestListEligibleIntersectsTags(t *testing.T) {
	t.Parallel()

	c := New()
	mustReplace(t, c, []Profile{
		{ID: "p1", Persona: []string{"a"}, Tags: []string{"news"}},
		{ID: "p2", Persona: []string{"b"}, Tags: []string{"sports", "news"}},
		{ID: "p3", Persona: []string{"c"}},
	})

	got := c.ListEligible([]string{"sports"})
	if len(got) != 1 || got[0].ID != "p2" {
		t.Fatalf("ListEligible(sports) = %+v, want only p2", got)
	}
}

func TestListEligibleUntaggedExcludedByActiveFilter(t *testing.T) {
	t.Parallel()

	c := New()
	mustReplace(t, c, []Profile{{ID: "p1", Persona: []string{"a"}}})

	if got := c.ListEligible([]string{"sports"}); len(got) != 0 {
		t.Fatalf("ListEligible(sports) = %+v, want empty", got)
	}
}

func TestReplaceRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	c := New()
	err := c.Replace([]Profile{
		{ID: "p1", Persona: []string{"a"}},
		{ID: "p1", Persona: []string{"b"}},
	})
	if err == nil {
		t.Fatalf("Replace() expected error for duplicate ids")
	}
}

func TestLinkedGroupKeepsImportOrder(t *testing.T) {
	t.Parallel()

	c := New()
	mustReplace(t, c, []Profile{
		{ID: "p1", Persona: []string{"a"}, LinkedGroupID: "g1"},
		{ID: "p2", Persona: []string{"b"}},
		{ID: "p3", Persona: []string{"c"}, LinkedGroupID: "g1"},
	})

	group := c.LinkedGroup("p3")
	if len(group) != 2 || group[0].ID != "p1" || group[1].ID != "p3" {
		t.Fatalf("LinkedGroup(p3) = %+v, want [p1 p3]", group)
	}

	solo := c.LinkedGroup("p2")
	if len(solo) != 1 || solo[0].ID != "p2" {
		t.Fatalf("LinkedGroup(p2) = %+v, want [p2]", solo)
	}
}

func TestDescriptionJoinsSentences(t *testing.T) {
	t.Parallel()

	p := Profile{Persona: []string{"i have a dog", "i work from home"}}
	want := "i have a dog\ni work from home"
	if got := p.Description(); got != want {
		t.Fatalf("Description() = %q, want %q", got, want)
	}
}

func TestParseSnapshotJSON(t *testing.T) {
	t.Parallel()

	data := `[
		[{"persona": ["i like trains"], "tags": ["transport"]}],
		[{"persona": ["a"]}, {"persona": ["b"], "topics": ["t1"]}]
	]`
	profiles, err := ParseSnapshot(strings.NewReader(data), "profiles.json")
	if err != nil {
		t.Fatalf("ParseSnapshot() error = %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("ParseSnapshot() returned %d profiles, want 3", len(profiles))
	}
	if profiles[0].LinkedGroupID != "" {
		t.Fatalf("singleton group got linked id %q, want none", profiles[0].LinkedGroupID)
	}
	if profiles[1].LinkedGroupID == "" || profiles[1].LinkedGroupID != profiles[2].LinkedGroupID {
		t.Fatalf("linked group ids = %q, %q, want equal and non-empty", profiles[1].LinkedGroupID, profiles[2].LinkedGroupID)
	}
	if profiles[0].ID == "" || profiles[0].ID == profiles[1].ID {
		t.Fatalf("profile ids not unique: %q, %q", profiles[0].ID, profiles[1].ID)
	}
}

func TestParseSnapshotYAML(t *testing.T) {
	t.Parallel()

	data := "- - persona: [\"i like tea\"]\n    tags: [\"drinks\"]\n"
	profiles, err := ParseSnapshot(strings.NewReader(data), "profiles.yaml")
	if err != nil {
		t.Fatalf("ParseSnapshot() error = %v", err)
	}
	if len(profiles) != 1 || profiles[0].Tags[0] != "drinks" {
		t.Fatalf("ParseSnapshot() = %+v, want one profile tagged drinks", profiles)
	}
}

func TestParseSnapshotRejectsWholeSnapshot(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		file string
		data string
	}{
		{"unsupported extension", "profiles.toml", "[]"},
		{"unknown field", "profiles.json", `[[{"persona": ["a"], "bogus": 1}]]`},
		{"missing persona", "profiles.json", `[[{"tags": ["a"]}]]`},
		{"blank sentence", "profiles.json", `[[{"persona": [" "]}]]`},
		{"empty group", "profiles.json", `[[]]`},
		{"no profiles", "profiles.json", `[]`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseSnapshot(strings.NewReader(tc.data), tc.file); err == nil {
				t.Fatalf("ParseSnapshot(%s) expected error", tc.name)
			}
		})
	}
}
