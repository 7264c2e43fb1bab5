package medd

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Copay is the Part B/D copay determination for one antigen.
type Copay struct {
	Antigen       string          `json:"antigen"`
	Amount        decimal.Decimal `json:"amount"`
	Covered       bool            `json:"covered"`
	ExceptionCode string          `json:"exception_code,omitempty"`
}

// Resolved reports whether the copay settles the MedD requirement. A zero
// amount counts as covered unless the payer attached an exception to it.
func (c Copay) Resolved() bool {
	if !c.Covered || c.Amount.IsNegative() {
		return false
	}
	return !(c.Amount.IsZero() && c.ExceptionCode != "")
}

// Info is the result of a MedD eligibility check for an appointment.
type Info struct {
	Eligible  bool      `json:"eligible"`
	Copays    []Copay   `json:"copays"`
	CheckedAt time.Time `json:"checked_at"`
}

// CopayFor finds the copay entry for antigen, ignoring case.
func (i *Info) CopayFor(antigen string) (Copay, bool) {
	for _, c := range i.Copays {
		if strings.EqualFold(c.Antigen, antigen) {
			return c, true
		}
	}
	return Copay{}, false
}
