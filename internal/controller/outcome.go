package controller

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Kind tags an Outcome.
type Kind int

const (
	Absent Kind = iota
	Pending
	Estimate
	Failure
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Estimate:
		return "estimate"
	case Failure:
		return "failure"
	default:
		return "absent"
	}
}

// MarshalText lets Kind appear as a word in JSON.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Outcome is the result of the most recent submission attempt.  Value is
// meaningful only for Estimate, Message only for Failure.
type Outcome struct {
	Kind    Kind    `json:"kind"`
	Value   float64 `json:"value,omitempty"`
	Message string  `json:"message,omitempty"`
}

// EstimateOf builds the success variant.
func EstimateOf(v float64) Outcome { return Outcome{Kind: Estimate, Value: v} }

// FailureOf builds the failure variant.
func FailureOf(msg string) Outcome { return Outcome{Kind: Failure, Message: msg} }

// Settled reports whether a response has been applied.
func (o Outcome) Settled() bool { return o.Kind == Estimate || o.Kind == Failure }

// Display renders the outcome for people: estimates as grouped dollars
// (“$12,345”, “$8,821.5”), failures as their message, anything else empty.
func (o Outcome) Display() string {
	switch o.Kind {
	case Estimate:
		return FormatCurrency(o.Value)
	case Failure:
		return o.Message
	default:
		return ""
	}
}

// FormatCurrency groups thousands and keeps up to three fraction digits.
func FormatCurrency(v float64) string {
	p := message.NewPrinter(language.AmericanEnglish)
	if v < 0 {
		return "-$" + p.Sprint(number.Decimal(-v, number.MaxFractionDigits(3)))
	}
	return "$" + p.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
