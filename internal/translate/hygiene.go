package translate

import (
	"regexp"
	"strings"
)

// thinkBlock matches reasoning-model scratchpads that some backends leak
// into the content despite instructions.
var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// fillerPrefixes are conversational lead-ins chat models sometimes prepend
// even when told to output only the translation. Matched case-insensitively
// at the start of the response, each followed by optional punctuation.
var fillerPrefixes = []string{
	"translation:",
	"translated text:",
	"here is the translation:",
	"here's the translation:",
	"sure, here is the translation:",
	"以下是翻译：",
	"以下是翻译:",
	"翻译如下：",
	"翻译如下:",
	"译文：",
	"译文:",
}

// CleanResponse strips model artifacts from a chat completion: reasoning
// scratchpads, filler prefixes, and code fences wrapping the whole output.
func CleanResponse(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	lower := strings.ToLower(s)
	for _, prefix := range fillerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}

	// A fenced block wrapping the entire response is formatting, not content.
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") {
		body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], " \t") {
			// Drop a language tag on the opening fence.
			body = body[nl+1:]
		}
		s = strings.TrimSpace(body)
	}
	return s
}
