package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Disabled is either unconditional or a condition evaluated against the document by
// the renderer. The expression is carried verbatim.
type Disabled struct {
	condition string
}

// AlwaysDisabled returns the unconditional variant.
func AlwaysDisabled() Disabled { return Disabled{} }

// DisabledWhen returns the conditional variant. The expression must not be blank.
func DisabledWhen(expression string) (Disabled, error) {
	if strings.TrimSpace(expression) == "" {
		return Disabled{}, fmt.Errorf("%w: disabled condition must not be empty", ErrInvalidLayout)
	}
	return Disabled{condition: expression}, nil
}

// Condition returns the expression and true for the conditional variant.
func (d Disabled) Condition() (string, bool) {
	return d.condition, d.condition != ""
}

func (d Disabled) MarshalJSON() ([]byte, error) {
	if d.condition == "" {
		return json.Marshal("disabled")
	}
	return json.Marshal(map[string]string{"condition": d.condition})
}

func (d *Disabled) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		if unit != "disabled" {
			return fmt.Errorf("%w: unknown disabled variant %q", ErrMalformedMessage, unit)
		}
		*d = AlwaysDisabled()
		return nil
	}
	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil || len(tagged) != 1 {
		return fmt.Errorf("%w: disabled must be \"disabled\" or {\"condition\": ...}", ErrMalformedMessage)
	}
	expr, ok := tagged["condition"]
	if !ok {
		return fmt.Errorf("%w: disabled must be \"disabled\" or {\"condition\": ...}", ErrMalformedMessage)
	}
	cond, err := DisabledWhen(expr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	*d = cond
	return nil
}
