// internal/form/renderer.go
//
// Medcost – Forms subsystem: HTML renderer.
//
// Context
//   Given a FormDef and the controller's current view of the world, this
//   file emits the presentation surface: six labelled controls, inline error
//   text for fields with a diagnostic, a submit button that turns into a
//   disabled busy indicator while a request is in flight, and a result panel
//   that appears once a submission has settled.
//
// Workflow
//   •  RenderForm writes the <form> fragment field by field via writeField.
//   •  RenderPage wraps the fragment in a minimal HTML document whose <head>
//      comes from head.Builder.  While busy it adds a meta refresh so the
//      browser polls until the cycle settles.
//   •  Everything user-supplied passes through html.EscapeString; the caller
//      receives template.HTML so surrounding templates do not double-escape.
//
// Style
//   Output HTML is plain.  Each control gets id="fld-{name}" and sits inside
//   <div class="form-field">, with errors in <p class="error">.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"

	"github.com/yanizio/medcost/internal/head"
)

// View is everything the renderer needs besides the FormDef.
type View struct {
	Action    string      // POST target, "/" when empty
	CSRFToken string      // hidden csrf_token value, omitted when empty
	Values    Snapshot    // current raw values
	Errors    Diagnostics // inline messages keyed by field
	Busy      bool        // request in flight

	// Result panel.  Hidden unless ShowResult is set, which callers do once
	// a submission has settled.
	ShowResult  bool
	ResultText  string
	ResultError bool

	// RefreshSeconds drives the meta refresh emitted while Busy.
	RefreshSeconds int
}

// RenderForm returns the <form> markup for fd in the state described by v.
func RenderForm(fd *FormDef, v View) (template.HTML, error) {
	var buf bytes.Buffer

	action := v.Action
	if action == "" {
		action = "/"
	}

	buf.WriteString(`<div class="medcost-form">` + "\n")
	buf.WriteString(`<form method="post" action="` + html.EscapeString(action) + `" novalidate>` + "\n")

	for i := range fd.Fields {
		if err := writeField(&buf, &fd.Fields[i], v); err != nil {
			return "", err
		}
	}

	if v.CSRFToken != "" {
		buf.WriteString(`<input type="hidden" name="csrf_token" value="` + html.EscapeString(v.CSRFToken) + `">` + "\n")
	}
	writeSubmit(&buf, fd, v.Busy)
	buf.WriteString(`</form>` + "\n")

	if v.ShowResult {
		writeResult(&buf, fd, v)
	}

	buf.WriteString(`</div>`)
	return template.HTML(buf.String()), nil
}

// RenderPage returns a complete HTML document around RenderForm.
func RenderPage(fd *FormDef, v View) ([]byte, error) {
	body, err := RenderForm(fd, v)
	if err != nil {
		return nil, err
	}

	hb := head.New()
	hb.Meta(`<meta charset="utf-8">`)
	hb.Meta(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	hb.SetTitle(fd.Title)
	if v.Busy {
		secs := v.RefreshSeconds
		if secs <= 0 {
			secs = 1
		}
		hb.Refresh(secs)
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	buf.WriteString(string(hb.Render()))
	buf.WriteString("</head>\n<body>\n<header>\n")
	buf.WriteString(`<h1>` + html.EscapeString(fd.Title) + `</h1>` + "\n")
	if fd.Subtitle != "" {
		buf.WriteString(`<p>` + html.EscapeString(fd.Subtitle) + `</p>` + "\n")
	}
	buf.WriteString("</header>\n<main>\n")
	buf.WriteString(string(body))
	buf.WriteString("\n</main>\n</body>\n</html>\n")
	return buf.Bytes(), nil
}

// writeField emits one labelled control and, when present, its diagnostic.
func writeField(buf *bytes.Buffer, f *FieldDef, v View) error {
	name := html.EscapeString(f.Name)
	id := "fld-" + name
	val := v.Values[f.Name]
	msg := v.Errors[f.Name]

	buf.WriteString(`<div class="form-field">` + "\n")
	buf.WriteString(`<label for="` + id + `">` + html.EscapeString(f.Label) + `</label>` + "\n")

	invalid := ""
	if msg != "" {
		invalid = ` aria-invalid="true" aria-describedby="` + id + `-error"`
	}

	switch f.Type {
	case TypeInt, TypeFloat:
		buf.WriteString(`<input id="` + id + `" name="` + name + `" type="number"`)
		if f.Min != nil {
			buf.WriteString(` min="` + formatBound(*f.Min) + `"`)
		}
		if f.Max != nil {
			buf.WriteString(` max="` + formatBound(*f.Max) + `"`)
		}
		switch {
		case f.Step != "":
			buf.WriteString(` step="` + html.EscapeString(f.Step) + `"`)
		case f.Type == TypeFloat:
			buf.WriteString(` step="any"`)
		}
		if f.Required {
			buf.WriteString(` required`)
		}
		if val != "" {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}
		buf.WriteString(invalid + `>` + "\n")

	case TypeSelect:
		buf.WriteString(`<select id="` + id + `" name="` + name + `"`)
		if f.Required {
			buf.WriteString(` required`)
		}
		buf.WriteString(invalid + `>` + "\n")
		for _, opt := range f.Options {
			sel := ""
			if val == opt.Value {
				sel = ` selected`
			}
			label := opt.Label
			if label == "" {
				label = opt.Value
			}
			buf.WriteString(`<option value="` + html.EscapeString(opt.Value) + `"` + sel + `>` + html.EscapeString(label) + `</option>` + "\n")
		}
		buf.WriteString(`</select>` + "\n")

	default:
		return fmt.Errorf("writeField: unsupported field type %q in form field %s", f.Type, f.Name)
	}

	if msg != "" {
		buf.WriteString(`<p class="error" id="` + id + `-error">` + html.EscapeString(msg) + `</p>` + "\n")
	}
	buf.WriteString(`</div>` + "\n")
	return nil
}

// writeSubmit shows the label, or a disabled busy indicator while busy.
func writeSubmit(buf *bytes.Buffer, fd *FormDef, busy bool) {
	label := fd.SubmitLabel
	if label == "" {
		label = "Submit"
	}
	if !busy {
		buf.WriteString(`<button type="submit">` + html.EscapeString(label) + `</button>` + "\n")
		return
	}
	busyLabel := fd.BusyLabel
	if busyLabel == "" {
		busyLabel = "Working…"
	}
	buf.WriteString(`<button type="submit" disabled aria-busy="true"><span class="spinner" role="status">` +
		html.EscapeString(busyLabel) + `</span></button>` + "\n")
}

// writeResult renders the estimate or failure panel.
func writeResult(buf *bytes.Buffer, fd *FormDef, v View) {
	switch {
	case v.ResultError:
		buf.WriteString(`<div class="result result-error" role="alert">` + "\n")
		buf.WriteString(`<p>` + html.EscapeString(v.ResultText) + `</p>` + "\n")
	default:
		buf.WriteString(`<div class="result" aria-live="polite">` + "\n")
		label := fd.ResultLabel
		if label != "" {
			label += " "
		}
		buf.WriteString(`<h3>` + html.EscapeString(label+v.ResultText) + `</h3>` + "\n")
	}
	buf.WriteString(`</div>` + "\n")
}
