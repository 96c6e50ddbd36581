// internal/form/definition.go
//
// Medcost – Forms subsystem: YAML definition loader.
//
// Context
//   The estimate form is declared in YAML rather than hard-coded so labels,
//   ranges, options, and messages live in one reviewable file.  The default
//   definition (forms/prediction.yaml) is embedded in the binary; operators
//   may point form.path at an override.  The Validation Engine, the renderer,
//   and the Submission Controller all read the same *FormDef, guaranteeing a
//   single source of truth.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → FieldDef.
//   •  ParseFormDef decodes bytes and validates structural rules, then
//      checks the six request fields are all present with their wire types
//      and with ranges and options no wider than the service accepts.
//   •  LoadFormDef reads a file; Default returns the embedded definition.
//   •  Defaults builds the initial Snapshot from each field's default.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// Field types understood by the Validation Engine.
const (
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeSelect = "select"
)

// FormDef represents one form definition loaded from YAML.
type FormDef struct {
	ID          string     `yaml:"id"          validate:"required"`
	Title       string     `yaml:"title"`
	Subtitle    string     `yaml:"subtitle"`
	SubmitLabel string     `yaml:"submit_label"`
	BusyLabel   string     `yaml:"busy_label"`
	ResultLabel string     `yaml:"result_label"`
	Fields      []FieldDef `yaml:"fields"      validate:"required,min=1,dive"`
}

// FieldDef describes a single input control.  Min and Max are pointers so
// “0” can be told apart from “unset”.
type FieldDef struct {
	Name     string   `yaml:"name"     validate:"required"`
	Label    string   `yaml:"label"    validate:"required"`
	Type     string   `yaml:"type"     validate:"required,oneof=int float select"`
	Required bool     `yaml:"required"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	Step     string   `yaml:"step"`
	Options  []Option `yaml:"options"  validate:"dive"`
	Default  string   `yaml:"default"`

	RequiredError string `yaml:"required_error"`
	TypeError     string `yaml:"type_error"`
	MinError      string `yaml:"min_error"`
	MaxError      string `yaml:"max_error"`
}

// Option is one choice of a select field.
type Option struct {
	Value string `yaml:"value" validate:"required"`
	Label string `yaml:"label"`
}

// Field returns the named field definition.
func (fd *FormDef) Field(name string) (*FieldDef, bool) {
	for i := range fd.Fields {
		if fd.Fields[i].Name == name {
			return &fd.Fields[i], true
		}
	}
	return nil, false
}

// Defaults returns the Snapshot a fresh form starts with.
func (fd *FormDef) Defaults() Snapshot {
	s := make(Snapshot, len(fd.Fields))
	for _, f := range fd.Fields {
		s[f.Name] = f.Default
	}
	return s
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

//go:embed forms/prediction.yaml
var defaultYAML []byte

var (
	defaultOnce sync.Once
	defaultDef  *FormDef
	defaultErr  error

	structure = validator.New()
)

// Default returns the embedded prediction form.  The result is shared;
// callers must treat it as read-only.
func Default() (*FormDef, error) {
	defaultOnce.Do(func() {
		defaultDef, defaultErr = ParseFormDef(defaultYAML, "embedded:forms/prediction.yaml")
	})
	return defaultDef, defaultErr
}

// LoadFormDef parses one YAML file and validates its structure.
func LoadFormDef(path string) (*FormDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", path, err)
	}
	return ParseFormDef(raw, path)
}

// ParseFormDef decodes raw YAML.  origin names the source in error messages.
func ParseFormDef(raw []byte, origin string) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", origin, err)
	}
	if err := validateFormDef(&fd, origin); err != nil {
		return nil, err
	}
	return &fd, nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

// validateFormDef enforces tag rules first, then the rules tags cannot
// express.
func validateFormDef(fd *FormDef, origin string) error {
	if err := structure.Struct(fd); err != nil {
		return fmt.Errorf("form definition %s: %w", origin, err)
	}

	names := make(map[string]struct{}, len(fd.Fields))
	for i := range fd.Fields {
		f := &fd.Fields[i]
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", origin, f.Name)
		}
		names[f.Name] = struct{}{}

		if err := validateField(f, origin); err != nil {
			return err
		}
		if err := checkCanonical(f, origin); err != nil {
			return err
		}
	}
	for _, c := range canonicalFields {
		if _, ok := names[c.name]; !ok {
			return fmt.Errorf("form %s: required field '%s' is missing", origin, c.name)
		}
	}
	return nil
}

// canonicalField is the wire contract a definition must honour: every field
// the prediction request carries, its type, and the widest domain the
// service accepts.  Overrides may relabel, reorder, reword, and narrow.
type canonicalField struct {
	name     string
	typ      string
	min, max float64
	options  []string
}

var canonicalFields = []canonicalField{
	{name: "age", typ: TypeInt, min: 18, max: 100},
	{name: "sex", typ: TypeSelect, options: []string{"male", "female"}},
	{name: "bmi", typ: TypeFloat, min: 10, max: 50},
	{name: "children", typ: TypeInt, min: 0, max: 10},
	{name: "smoker", typ: TypeSelect, options: []string{"yes", "no"}},
	{name: "region", typ: TypeSelect, options: []string{"northeast", "northwest", "southeast", "southwest"}},
}

func checkCanonical(f *FieldDef, origin string) error {
	var c *canonicalField
	for i := range canonicalFields {
		if canonicalFields[i].name == f.Name {
			c = &canonicalFields[i]
			break
		}
	}
	if c == nil {
		return fmt.Errorf("form %s: unknown field '%s'", origin, f.Name)
	}
	if f.Type != c.typ {
		return fmt.Errorf("form %s: field '%s' must be of type %s, not %s", origin, f.Name, c.typ, f.Type)
	}
	if !f.Required {
		return fmt.Errorf("form %s: field '%s' must be required", origin, f.Name)
	}

	if c.typ == TypeSelect {
		for _, o := range f.Options {
			if !slices.Contains(c.options, o.Value) {
				return fmt.Errorf("form %s: field '%s' option %q is outside %v", origin, f.Name, o.Value, c.options)
			}
		}
		return nil
	}
	if f.Min == nil || f.Max == nil {
		return fmt.Errorf("form %s: field '%s' needs both min and max", origin, f.Name)
	}
	if *f.Min < c.min || *f.Max > c.max {
		return fmt.Errorf("form %s: field '%s' range [%s, %s] exceeds [%s, %s]", origin, f.Name,
			formatBound(*f.Min), formatBound(*f.Max), formatBound(c.min), formatBound(c.max))
	}
	return nil
}

func validateField(f *FieldDef, origin string) error {
	switch f.Type {
	case TypeSelect:
		if len(f.Options) == 0 {
			return fmt.Errorf("form %s: select field '%s' has no options", origin, f.Name)
		}
		if f.Min != nil || f.Max != nil {
			return fmt.Errorf("form %s: select field '%s' cannot carry min/max", origin, f.Name)
		}
		if f.Default != "" && !optionAllowed(f.Options, f.Default) {
			return fmt.Errorf("form %s: field '%s' default %q is not an option", origin, f.Name, f.Default)
		}
	case TypeInt, TypeFloat:
		if len(f.Options) > 0 {
			return fmt.Errorf("form %s: numeric field '%s' cannot carry options", origin, f.Name)
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return fmt.Errorf("form %s: field '%s' min greater than max", origin, f.Name)
		}
	}
	return nil
}

func optionAllowed(opts []Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}
