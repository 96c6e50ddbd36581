package predict

import (
	"html"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"
)

// stripper removes every tag from server-supplied text.  Rendering escapes
// again, so entities are decoded after sanitising.
var stripper = bluemonday.StrictPolicy()

// decodeResponse turns a status and body into a value or a typed error.
func decodeResponse(status int, raw []byte) (float64, error) {
	msg := serverMessage(raw)

	if status < 200 || status > 299 {
		return 0, &TransportError{Status: status, Message: msg}
	}

	if !gjson.ValidBytes(raw) {
		return 0, &MalformedResponseError{Reason: "body is not JSON", Message: msg}
	}
	p := gjson.GetBytes(raw, "prediction")
	switch {
	case !p.Exists():
		return 0, &MalformedResponseError{Reason: "missing prediction field", Message: msg}
	case p.Type != gjson.Number:
		return 0, &MalformedResponseError{Reason: "prediction is not a number", Message: msg}
	}

	v := p.Float()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &MalformedResponseError{Reason: "prediction is not finite", Message: msg}
	}
	return v, nil
}

// serverMessage extracts a non-empty string “message” field, if any.
func serverMessage(raw []byte) string {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return ""
	}
	m := gjson.GetBytes(raw, "message")
	if m.Type != gjson.String {
		return ""
	}
	clean := html.UnescapeString(stripper.Sanitize(m.Str))
	return strings.TrimSpace(clean)
}
