package mysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/requirement-analyzer/internal/domain/requirements"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// MySQL error numbers that mean the row itself was rejected.
var rejectedRow = map[uint16]bool{
	1048: true, // column cannot be null
	1264: true, // out of range
	1366: true, // incorrect value
	1406: true, // data too long
	1452: true, // foreign key constraint fails
}

// insertError wraps a failed insert, tagging row rejections with requirements.ErrInvalidRecord.
func insertError(table string, err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && rejectedRow[me.Number] {
		return fmt.Errorf("insert %s: %w: %s", table, requirements.ErrInvalidRecord, me.Message)
	}
	return fmt.Errorf("insert %s: %w", table, err)
}
