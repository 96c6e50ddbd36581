package form

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault_Shape(t *testing.T) {
	fd := mustDefault(t)

	var names []string
	for _, f := range fd.Fields {
		names = append(names, f.Name)
		if !f.Required {
			t.Errorf("field %s should be required", f.Name)
		}
	}
	want := []string{"age", "sex", "bmi", "children", "smoker", "region"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}

	wantDefaults := Snapshot{
		"age": "", "sex": "male", "bmi": "", "children": "", "smoker": "no", "region": "northeast",
	}
	if diff := cmp.Diff(wantDefaults, fd.Defaults()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFormDef_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing id": `
fields:
  - {name: a, label: A, type: int}`,
		"no fields": `
id: x`,
		"bad type": `
id: x
fields:
  - {name: a, label: A, type: text}`,
		"duplicate": `
id: x
fields:
  - {name: a, label: A, type: int}
  - {name: a, label: B, type: float}`,
		"select without options": `
id: x
fields:
  - {name: a, label: A, type: select}`,
		"min above max": `
id: x
fields:
  - {name: a, label: A, type: int, min: 5, max: 1}`,
		"default not an option": `
id: x
fields:
  - name: a
    label: A
    type: select
    default: z
    options: [{value: y}]`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseFormDef([]byte(src), "test"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

// overrideOf returns the embedded YAML with each old→new pair replaced once.
func overrideOf(t *testing.T, pairs ...string) string {
	t.Helper()
	src := string(defaultYAML)
	for i := 0; i+1 < len(pairs); i += 2 {
		if !strings.Contains(src, pairs[i]) {
			t.Fatalf("embedded form lacks %q", pairs[i])
		}
		src = strings.Replace(src, pairs[i], pairs[i+1], 1)
	}
	return src
}

func TestParseFormDef_RejectsBrokenWireContract(t *testing.T) {
	cases := map[string][]string{
		"age retyped":    {"    type: int\n    required: true\n    min: 18", "    type: float\n    required: true\n    min: 18"},
		"age renamed":    {"name: age", "name: years"},
		"bmi widened":    {"    max: 50\n", "    max: 80\n"},
		"children open":  {"    max: 10\n", ""},
		"region added":   {"{ value: southwest, label: Southwest }", "{ value: southwest, label: Southwest }\n      - { value: midwest, label: Midwest }"},
		"smoker relaxed": {"    required: true\n    default: \"no\"", "    default: \"no\""},
	}
	for name, pairs := range cases {
		t.Run(name, func(t *testing.T) {
			src := overrideOf(t, pairs...)
			if _, err := ParseFormDef([]byte(src), "test"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadFormDef_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "form.yaml")
	src := overrideOf(t,
		"label: Age", "label: Years",
		"    min: 18\n", "    min: 21\n",
		"    min_error: Age must be at least 18\n", "",
	)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	fd, err := LoadFormDef(path)
	if err != nil {
		t.Fatalf("LoadFormDef: %v", err)
	}
	got := Validate(fd, with("age", "20"))
	if diff := cmp.Diff(Diagnostics{"age": "Years must be at least 21"}, got); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFormDef_Missing(t *testing.T) {
	_, err := LoadFormDef(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read form file") {
		t.Fatalf("err = %v", err)
	}
}
