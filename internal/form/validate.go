// internal/form/validate.go
//
// Medcost – Forms subsystem: field validation and coercion.
//
// Context
//   Before a prediction request may leave the process, every field of the
//   Snapshot must satisfy its FieldDef.  This file is the Validation Engine:
//   a pure function from (FormDef, Snapshot) to Diagnostics.  It never
//   touches the network, the clock, or shared state, so validating the same
//   Snapshot twice yields identical Diagnostics.
//
// Workflow
//   •  Validate walks every field, never stopping at the first failure, so
//      the user sees every problem at once.
//   •  Numeric fields distinguish a coercion failure (“must be a number”)
//      from a range failure.  Blank numeric input is a coercion failure;
//      whitespace anywhere in a number is ignored.
//   •  Select fields are checked against their options even though the
//      renderer only offers valid choices.
//   •  Coerce re-runs Validate and converts the Snapshot into the canonical
//      predict.Request.  On failure it returns *ValidationError.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/yanizio/medcost/internal/predict"
)

// -----------------------------------------------------------------------------
// Types
// -----------------------------------------------------------------------------

// Snapshot holds raw field values exactly as captured from the controls.
type Snapshot map[string]string

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Diagnostics maps a field name to its user-facing message.  Empty means the
// form may be submitted.
type Diagnostics map[string]string

// Valid reports whether no field failed.
func (d Diagnostics) Valid() bool { return len(d) == 0 }

// Clone returns an independent copy.  A nil receiver yields an empty map.
func (d Diagnostics) Clone() Diagnostics {
	out := make(Diagnostics, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Fields lists the failing field names in sorted order.
func (d Diagnostics) Fields() []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidationError wraps Diagnostics so callers can tell user input errors
// from system failures via errors.As or IsValidationError.
type ValidationError struct{ Fields Diagnostics }

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("form validation failed: %s", strings.Join(ve.Fields.Fields(), ", "))
}

// IsValidationError reports whether err came from failed validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Validate checks every field of snap against fd.
func Validate(fd *FormDef, snap Snapshot) Diagnostics {
	diags := make(Diagnostics)
	for i := range fd.Fields {
		f := &fd.Fields[i]
		if _, msg := checkField(f, snap[f.Name]); msg != "" {
			diags[f.Name] = msg
		}
	}
	return diags
}

// Coerce validates snap and converts it into the request body.
func Coerce(fd *FormDef, snap Snapshot) (predict.Request, error) {
	var req predict.Request

	diags := make(Diagnostics)
	values := make(map[string]any, len(fd.Fields))
	for i := range fd.Fields {
		f := &fd.Fields[i]
		v, msg := checkField(f, snap[f.Name])
		if msg != "" {
			diags[f.Name] = msg
			continue
		}
		values[f.Name] = v
	}
	if !diags.Valid() {
		return req, &ValidationError{Fields: diags}
	}

	req.Age, _ = values["age"].(int)
	req.Sex, _ = values["sex"].(string)
	req.BMI, _ = values["bmi"].(float64)
	req.Children, _ = values["children"].(int)
	req.Smoker, _ = values["smoker"].(string)
	req.Region, _ = values["region"].(string)
	return req, nil
}

// -----------------------------------------------------------------------------
// Field-level helpers
// -----------------------------------------------------------------------------

// checkField returns the coerced value or a message.  Optional empty fields
// yield (nil, "").
func checkField(f *FieldDef, raw string) (any, string) {
	switch f.Type {
	case TypeInt, TypeFloat:
		// Blank numeric input reads as "not a number", not "missing".
		val := stripSpace(raw)
		if val == "" {
			if f.Required {
				return nil, typeMsg(f)
			}
			return nil, ""
		}
		n, ok := parseNumber(val)
		if !ok {
			return nil, typeMsg(f)
		}
		if f.Min != nil && n < *f.Min {
			return nil, minMsg(f)
		}
		if f.Max != nil && n > *f.Max {
			return nil, maxMsg(f)
		}
		if f.Type == TypeInt {
			return int(math.Trunc(n)), ""
		}
		return n, ""

	case TypeSelect:
		val := strings.TrimSpace(raw)
		if val == "" {
			if f.Required {
				return nil, requiredMsg(f)
			}
			return nil, ""
		}
		if !optionAllowed(f.Options, val) {
			return nil, invalidMsg(f)
		}
		return val, ""

	default:
		return nil, fmt.Sprintf("Unsupported field type %q.", f.Type)
	}
}

// stripSpace drops every whitespace rune, so "1 000" reads as 1000.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// parseNumber accepts finite decimal numbers only.
func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// user-facing default messages
func requiredMsg(f *FieldDef) string {
	if f.RequiredError != "" {
		return f.RequiredError
	}
	return f.Label + " is required"
}
func typeMsg(f *FieldDef) string {
	if f.TypeError != "" {
		return f.TypeError
	}
	return f.Label + " must be a number"
}
func minMsg(f *FieldDef) string {
	if f.MinError != "" {
		return f.MinError
	}
	return f.Label + " must be at least " + formatBound(*f.Min)
}
func maxMsg(f *FieldDef) string {
	if f.MaxError != "" {
		return f.MaxError
	}
	return f.Label + " cannot exceed " + formatBound(*f.Max)
}
func invalidMsg(f *FieldDef) string { return f.Label + " is invalid" }

func formatBound(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
