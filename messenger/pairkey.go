package messenger

import "strings"

const pairCommand = "/pair"

// ExtractPairKey splits an optional leading "/pair <key>" line off a message.
// The key asks the router to draw this binding from the same linked group as
// other bindings carrying the same key. The remainder of the message, if any,
// is returned as the text.
func ExtractPairKey(text string) (remaining, pairKey string) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, pairCommand+" ") && trimmed != pairCommand {
		return text, ""
	}
	firstLine, rest, _ := strings.Cut(trimmed, "\n")
	fields := strings.Fields(firstLine)
	if len(fields) < 2 {
		return text, ""
	}
	return strings.TrimSpace(rest), fields[1]
}
