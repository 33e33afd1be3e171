package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidOutput is the parent of every model-output shape error.
	ErrInvalidOutput = errors.New("model output is not valid")
	// ErrIncompleteResponse: output does not end with a closing brace, usually max_tokens truncation.
	ErrIncompleteResponse = fmt.Errorf("%w: response incomplete, try a shorter or simpler specification", ErrInvalidOutput)
	// ErrMalformedJSON: cleaned output still is not a JSON document.
	ErrMalformedJSON = fmt.Errorf("%w: malformed JSON", ErrInvalidOutput)
	// ErrMissingProcesses: valid JSON without the top-level "procesos" array.
	ErrMissingProcesses = fmt.Errorf("%w: expected structure missing (no procesos array)", ErrInvalidOutput)
)

var (
	fenceOpenRe     = regexp.MustCompile("(?i)```json[ \t]*\r?\n?")
	fenceCloseRe    = regexp.MustCompile("```[ \t]*\r?\n?")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

type step struct {
	name  string
	apply func(string) (string, error)
}

// pipeline runs in order; every step is a pure text transform.
var pipeline = []step{
	{"trim", func(s string) (string, error) { return strings.TrimSpace(s), nil }},
	{"strip_code_fences", func(s string) (string, error) { return StripCodeFences(s), nil }},
	{"check_complete", CheckComplete},
	{"bound_by_braces", func(s string) (string, error) { return BoundByBraces(s), nil }},
	{"strip_trailing_commas", func(s string) (string, error) { return StripTrailingCommas(s), nil }},
}

// Normalize cleans raw model output into text ready for json.Unmarshal.
func Normalize(raw string) (string, error) {
	out := raw
	for _, st := range pipeline {
		var err error
		if out, err = st.apply(out); err != nil {
			return "", fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return out, nil
}

// StripCodeFences removes ```json openers and bare ``` closers anywhere in the text.
// Targets models that wrap the document in a Markdown code block despite instructions.
func StripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// CheckComplete rejects text not ending with '}'.
// Targets output cut off by the token ceiling; parsing it would only yield noise.
func CheckComplete(s string) (string, error) {
	if !strings.HasSuffix(s, "}") {
		return "", ErrIncompleteResponse
	}
	return s, nil
}

// BoundByBraces keeps the text between the first '{' and the last '}'.
// Targets commentary before or after the document ("Here is your JSON: ...").
func BoundByBraces(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || first >= last {
		return s
	}
	return s[first : last+1]
}

// StripTrailingCommas drops commas directly before '}' or ']'.
// Targets near-valid JSON such as [{"a":1},].
func StripTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}
