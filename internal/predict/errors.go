package predict

import (
	"errors"
	"fmt"
)

// FallbackMessage is shown when the service gave no usable explanation.
const FallbackMessage = "Error making prediction"

// TransportError covers network failures and non-2xx responses.  Status is
// zero when no response arrived.  Message holds the server's explanation,
// already stripped of markup, when one was supplied.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("prediction transport: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("prediction service returned %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("prediction service returned %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("prediction service returned %d", e.Status)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError means the service answered 2xx but the body held no
// numeric prediction.
type MalformedResponseError struct {
	Reason  string
	Message string
}

func (e *MalformedResponseError) Error() string {
	return "malformed prediction response: " + e.Reason
}

// Message maps any Predict error onto the text a user should see.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	var me *MalformedResponseError
	if errors.As(err, &me) && me.Message != "" {
		return me.Message
	}
	return FallbackMessage
}
