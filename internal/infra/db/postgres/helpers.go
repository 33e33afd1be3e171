package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/bryanwahyu/requirement-analyzer/internal/domain/requirements"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// insertError wraps a failed insert. SQLSTATE classes 22 (data exception) and
// 23 (integrity constraint violation) mean the row itself was rejected.
func insertError(table string, err error) error {
	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code.Class() {
		case "22", "23":
			return fmt.Errorf("insert %s: %w: %s (%s)", table, requirements.ErrInvalidRecord, pe.Message, pe.Code.Name())
		}
	}
	return fmt.Errorf("insert %s: %w", table, err)
}

// detailsJSON keeps the JSONB column valid; anything else is wrapped as {"raw": ...}.
func detailsJSON(details string) string {
	if strings.TrimSpace(details) == "" {
		return "{}"
	}
	if !json.Valid([]byte(details)) {
		b, _ := json.Marshal(map[string]string{"raw": details})
		return string(b)
	}
	return details
}
