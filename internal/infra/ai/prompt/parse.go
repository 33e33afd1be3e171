package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/requirement-analyzer/internal/domain/requirements"
)

// Parse normalizes raw model output and decodes the process tree.
// Syntax failures wrap ErrMalformedJSON; a missing or non-array "procesos"
// returns ErrMissingProcesses. An empty array is accepted.
func Parse(raw string) ([]requirements.Process, error) {
	cleaned, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}

	list, ok := doc["procesos"]
	list = bytes.TrimSpace(list)
	if !ok || len(list) == 0 || list[0] != '[' {
		return nil, ErrMissingProcesses
	}

	var processes []requirements.Process
	if err := json.Unmarshal(list, &processes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}
	return processes, nil
}

// Excerpt trims raw output for logs.
func Excerpt(raw string, n int) string {
	if len(raw) <= n {
		return raw
	}
	return raw[:n] + "..."
}
