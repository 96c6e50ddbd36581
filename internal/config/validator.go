// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `LoadFrom` calls `validateStruct` immediately after it unmarshals the
// merged Koanf tree.  Any failure aborts startup, so the binary never runs
// with a malformed endpoint, listen address, or session bound.  Failures are
// reported by their dotted koanf key (`predict.endpoint`), the same name an
// operator would set in YAML or as MEDCOST_PREDICT__ENDPOINT.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// validateStruct returns nil on success or one error listing every failing
// key, e.g. `invalid config: predict.endpoint (url)`.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		// Namespace is "Config.predict.endpoint"; drop the root type.
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", key, fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s: %w", strings.Join(parts, ", "), err)
}
