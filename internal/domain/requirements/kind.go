package requirements

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UseCaseKind enum. Values outside the enum are kept as-is and labelled Unknown.
type UseCaseKind int

const (
	KindFunctional    UseCaseKind = 1
	KindNonFunctional UseCaseKind = 2
	KindSystem        UseCaseKind = 3
)

// Label returns the display name of the kind.
func (k UseCaseKind) Label() string {
	switch k {
	case KindFunctional:
		return "Functional"
	case KindNonFunctional:
		return "Non-Functional"
	case KindSystem:
		return "System"
	default:
		return "Unknown"
	}
}

func (k UseCaseKind) Valid() bool {
	return k >= KindFunctional && k <= KindSystem
}

func (k UseCaseKind) String() string { return k.Label() }

// Stored is the value written to the tipo_caso_uso column (32-bit in every
// dialect). Anything that does not fit becomes 0, which still labels Unknown.
func (k UseCaseKind) Stored() UseCaseKind {
	if int64(k) < math.MinInt32 || int64(k) > math.MaxInt32 {
		return 0
	}
	return k
}

// UnmarshalJSON accepts a number, a numeric string or null.
// Models sometimes quote the value ("2") or emit a float (2.0). Fractions and
// values outside the int32 range decode as 0 so they label Unknown.
func (k *UseCaseKind) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*k = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
		if len(b) == 0 {
			*k = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if errors.Is(err, strconv.ErrRange) {
		*k = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("tipo_caso_uso %q is not numeric", string(b))
	}
	*k = kindFromFloat(f)
	return nil
}

func kindFromFloat(f float64) UseCaseKind {
	// NaN fails the Trunc comparison, ±Inf the range check
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0
	}
	return UseCaseKind(int32(f))
}
