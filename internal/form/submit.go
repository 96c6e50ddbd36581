// internal/form/submit.go
//
// Medcost – Forms subsystem: POST body to Snapshot.
//
// Context
//   Handlers want one call that parses the POST body and hands back the raw
//   values of exactly the fields the form defines.  Anything else in the
//   body (csrf_token, stray keys) is left out; a field the browser omitted
//   comes back as "" so the Validation Engine reports it as missing.
//
//------------------------------------------------------------------------------

package form

import "net/http"

// ParseSubmission parses r and returns the submitted Snapshot for fd.  Only
// the first value of a repeated key is used.
func ParseSubmission(fd *FormDef, r *http.Request) (Snapshot, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	snap := make(Snapshot, len(fd.Fields))
	for _, f := range fd.Fields {
		snap[f.Name] = r.PostForm.Get(f.Name)
	}
	return snap, nil
}
