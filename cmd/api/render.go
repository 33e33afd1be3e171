package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bryanwahyu/requirement-analyzer/internal/application/analysis"
	"github.com/bryanwahyu/requirement-analyzer/internal/domain/requirements"
)

// renderTree prints processes, subprocesses and use cases as an indented outline.
func renderTree(w io.Writer, processes []requirements.Process) error {
	var b strings.Builder
	for i, p := range processes {
		fmt.Fprintf(&b, "%d. %s [#%d]\n", i+1, p.Name, p.ID)
		writeIndented(&b, "   ", p.Description)
		for j, s := range p.Subprocesses {
			fmt.Fprintf(&b, "   %d.%d %s [#%d]\n", i+1, j+1, s.Name, s.ID)
			writeIndented(&b, "       ", s.Description)
			for _, u := range s.UseCases {
				fmt.Fprintf(&b, "       - %s (%s) [#%d]\n", u.Name, u.Kind.Label(), u.ID)
				writeField(&b, "Actor", u.Actor)
				writeField(&b, "Pre", u.Preconditions)
				writeField(&b, "Post", u.Postconditions)
				writeField(&b, "Acceptance", u.AcceptanceCriteria)
			}
		}
		if i < len(processes)-1 {
			b.WriteString("\n")
		}
	}
	c := requirements.Count(processes)
	fmt.Fprintf(&b, "\n%d processes, %d subprocesses, %d use cases\n", c.Processes, c.Subprocesses, c.UseCases)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeIndented(b *strings.Builder, indent, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.WriteString(indent)
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n")
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "         %s: %s\n", label, strings.TrimSpace(value))
}

func writeJSONTree(w io.Writer, res analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"success": true,
		"data":    res.Processes,
		"model":   res.Model,
		"run_id":  res.RunID,
	})
}
