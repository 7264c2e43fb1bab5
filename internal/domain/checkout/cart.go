package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaxhub/vaxhub/internal/domain/appointment"
	"github.com/vaxhub/vaxhub/internal/domain/product"
)

type DoseState string

const (
	DoseOrdered             DoseState = "ordered"
	DoseAdded               DoseState = "added"
	DoseAdministered        DoseState = "administered"
	DoseRemoved             DoseState = "removed"
	DoseAdministeredRemoved DoseState = "administered_removed"
)

// Removed reports whether the dose is soft-deleted from the cart. Removed
// doses never conflict with other doses.
func (s DoseState) Removed() bool {
	return s == DoseRemoved || s == DoseAdministeredRemoved
}

var doseTransitions = map[DoseState][]DoseState{
	DoseOrdered:             {DoseAdded, DoseRemoved},
	DoseAdded:               {DoseAdministered, DoseRemoved},
	DoseAdministered:        {DoseAdministeredRemoved},
	DoseRemoved:             {DoseAdded},
	DoseAdministeredRemoved: {DoseAdministered},
}

func (s DoseState) CanTransition(to DoseState) bool {
	for _, next := range doseTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// removedState is where a removal takes the dose from s.
func (s DoseState) removedState() (DoseState, bool) {
	switch s {
	case DoseOrdered, DoseAdded:
		return DoseRemoved, true
	case DoseAdministered:
		return DoseAdministeredRemoved, true
	}
	return s, false
}

// restoredState undoes removedState.
func (s DoseState) restoredState() (DoseState, bool) {
	switch s {
	case DoseRemoved:
		return DoseAdded, true
	case DoseAdministeredRemoved:
		return DoseAdministered, true
	}
	return s, false
}

type PaymentMode string

const (
	PaymentModeInsurance   PaymentMode = "insurance_pay"
	PaymentModeSelfPay     PaymentMode = "self_pay"
	PaymentModePartnerBill PaymentMode = "partner_bill"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeInsurance, PaymentModeSelfPay, PaymentModePartnerBill:
		return true
	}
	return false
}

// defaultPaymentMode maps the appointment's payment method onto a dose.
func defaultPaymentMode(method appointment.PaymentMethod) PaymentMode {
	switch method {
	case appointment.PaymentSelfPay:
		return PaymentModeSelfPay
	case appointment.PaymentPartnerBill:
		return PaymentModePartnerBill
	default:
		return PaymentModeInsurance
	}
}

type PaymentModeReason string

const (
	ReasonNone          PaymentModeReason = ""
	ReasonSelfPayOptOut PaymentModeReason = "self_pay_opt_out"
	ReasonMedDCopay     PaymentModeReason = "medd_copay"
)

// Candidate is the dose under evaluation. ID is uuid.Nil for a lot that has
// been scanned but not yet staged.
type Candidate struct {
	ID                uuid.UUID         `json:"id"`
	Lot               product.Lot       `json:"lot"`
	SelectedRoute     string            `json:"selected_route,omitempty"`
	PaymentModeReason PaymentModeReason `json:"payment_mode_reason,omitempty"`
}

// StagedCartItem is a dose held in the in-progress checkout.
type StagedCartItem struct {
	ID                uuid.UUID              `json:"id"`
	Lot               product.Lot            `json:"lot"`
	DoseState         DoseState              `json:"dose_state"`
	DoseSeries        *int                   `json:"dose_series,omitempty"`
	SelectedRoute     string                 `json:"selected_route,omitempty"`
	Route             string                 `json:"route"`
	PaymentMode       PaymentMode            `json:"payment_mode"`
	PaymentModeReason PaymentModeReason      `json:"payment_mode_reason,omitempty"`
	SelfPayRate       *decimal.Decimal       `json:"self_pay_rate,omitempty"`
	MedDCopay         *decimal.Decimal       `json:"medd_copay,omitempty"`
	AgeIndication     *product.AgeIndication `json:"age_indication,omitempty"`
	Issues            Issues                 `json:"issues"`
	AddedAt           time.Time              `json:"added_at"`
}

func (i StagedCartItem) Active() bool { return !i.DoseState.Removed() }

func (i StagedCartItem) Candidate() Candidate {
	return Candidate{
		ID:                i.ID,
		Lot:               i.Lot,
		SelectedRoute:     i.SelectedRoute,
		PaymentModeReason: i.PaymentModeReason,
	}
}

// IsSelfPayAndNonZeroRate reports whether the dose will be charged a one-touch
// self-pay amount. A configured rate of zero is not a chargeable amount.
func (i StagedCartItem) IsSelfPayAndNonZeroRate() bool {
	return isSelfPayAndNonZeroRate(i.PaymentMode, i.SelfPayRate)
}

func isSelfPayAndNonZeroRate(mode PaymentMode, rate *decimal.Decimal) bool {
	return mode == PaymentModeSelfPay && rate != nil && rate.IsPositive()
}

// apply copies a verdict onto the item.
func (i *StagedCartItem) apply(v *VaccineWithIssues) {
	i.Issues = v.Issues.clone()
	i.PaymentMode = v.PaymentMode
	i.PaymentModeReason = v.PaymentModeReason
	i.SelfPayRate = v.SelfPayRate
	i.MedDCopay = v.MedDCopay
	i.AgeIndication = v.AgeIndication
	i.Route = v.Route
}

func (i StagedCartItem) clone() StagedCartItem {
	out := i
	out.Issues = i.Issues.clone()
	out.Lot.Product.AgeIndications = append([]product.AgeIndication(nil), i.Lot.Product.AgeIndications...)
	if i.DoseSeries != nil {
		n := *i.DoseSeries
		out.DoseSeries = &n
	}
	if i.AgeIndication != nil {
		a := *i.AgeIndication
		out.AgeIndication = &a
	}
	return out
}
