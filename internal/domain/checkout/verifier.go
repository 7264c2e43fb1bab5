package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaxhub/vaxhub/internal/domain/appointment"
	"github.com/vaxhub/vaxhub/internal/domain/inventory"
	"github.com/vaxhub/vaxhub/internal/domain/medd"
	"github.com/vaxhub/vaxhub/internal/domain/product"
)

// Request carries every input of one evaluation. Staged holds the other
// doses in the cart; an entry with the candidate's ID is ignored.
type Request struct {
	Candidate   Candidate                       `json:"candidate"`
	Appointment *appointment.Appointment        `json:"appointment"`
	Staged      []StagedCartItem                `json:"staged,omitempty"`
	DoseSeries  *int                            `json:"dose_series,omitempty"`
	ManualDOB   *time.Time                      `json:"manual_dob,omitempty"`
	OnHand      []inventory.SimpleOnHandProduct `json:"on_hand,omitempty"`
	Flags       Flags                           `json:"flags"`
	MedD        *medd.Info                      `json:"medd,omitempty"`
	// Today defaults to the verifier's clock.
	Today time.Time `json:"today,omitempty"`
}

// VaccineWithIssues is the verdict for one dose.
type VaccineWithIssues struct {
	ID                uuid.UUID              `json:"id"`
	Lot               product.Lot            `json:"lot"`
	Issues            Issues                 `json:"issues"`
	PaymentMode       PaymentMode            `json:"payment_mode"`
	PaymentModeReason PaymentModeReason      `json:"payment_mode_reason,omitempty"`
	SelfPayRate       *decimal.Decimal       `json:"self_pay_rate,omitempty"`
	MedDCopay         *decimal.Decimal       `json:"medd_copay,omitempty"`
	AgeIndication     *product.AgeIndication `json:"age_indication,omitempty"`
	Route             string                 `json:"route"`
}

// IsSelfPayAndNonZeroRate mirrors StagedCartItem.IsSelfPayAndNonZeroRate.
func (v *VaccineWithIssues) IsSelfPayAndNonZeroRate() bool {
	return isSelfPayAndNonZeroRate(v.PaymentMode, v.SelfPayRate)
}

// Verifier evaluates doses against a rules policy. It keeps no state between
// calls.
type Verifier struct {
	policy Policy
	now    func() time.Time
}

func NewVerifier(policy Policy) *Verifier {
	return &Verifier{policy: policy, now: time.Now}
}

func (v *Verifier) Policy() Policy { return v.policy }

// Evaluate runs every rule over the candidate and returns the verdict, or nil
// when the candidate has no lot number or product and cannot be staged.
//
// Rules run in a fixed order and never short-circuit:
// expiration, age indication, duplicates, restricted product, coverage,
// MedD copay, route selection, stock source, LARC.
func (v *Verifier) Evaluate(req Request) *VaccineWithIssues {
	c := req.Candidate
	appt := req.Appointment
	if c.Lot.LotNumber == "" || c.Lot.ProductID == 0 || appt == nil {
		return nil
	}
	today := req.Today
	if today.IsZero() {
		today = v.now()
	}
	lot := &c.Lot
	others := othersOf(req.Staged, c.ID)

	out := &VaccineWithIssues{
		ID:    c.ID,
		Lot:   c.Lot,
		Route: effectiveRoute(lot, c.SelectedRoute),
	}
	mode, reason := basePaymentMode(c, appt)

	var issues Issues
	if lot.ExpiredOn(today) {
		issues.add(newIssue(IssueExpired))
	}

	age := checkAge(lot, appt.Patient, req.ManualDOB, req.DoseSeries, today)
	out.AgeIndication = age.indication
	if age.issue != nil {
		issues.add(*age.issue)
	}

	for _, dup := range detectDuplicates(c, age.indication, others, v.policy, req.Flags) {
		issues.add(dup)
	}

	if restricted(lot, appt, others, v.policy) {
		issues.add(newIssue(IssueRestrictedProduct))
	}

	if notCovered(lot, appt, mode, req.Flags) {
		issues.add(newIssue(IssueProductNotCovered))
	}

	md := resolveMedD(lot, appt, req.MedD, v.policy)
	if md.copayRequired() {
		issues.add(newIssue(IssueCopayRequired))
	}
	if md.resolved {
		out.MedDCopay = md.copay
		if req.Flags.IsVaxCare3Flow {
			mode, reason = PaymentModeInsurance, ReasonMedDCopay
		}
	}

	if requiresRouteSelection(lot, c.SelectedRoute, v.policy) {
		issues.add(newIssue(IssueRouteSelectionRequired))
	}

	if wrongStock(lot.LotNumber, appt.InventorySource, req.OnHand) {
		issues.add(newIssue(IssueWrongStock))
	}

	if lot.Product.IsLARC() {
		issues.add(newIssue(IssueLarcAdded))
	}

	out.Issues = issues
	out.PaymentMode = mode
	out.PaymentModeReason = reason
	if mode == PaymentModeSelfPay && lot.Product.OneTouchRate != nil {
		rate := *lot.Product.OneTouchRate
		out.SelfPayRate = &rate
	}
	return out
}

// othersOf copies the staged doses other than id.
func othersOf(staged []StagedCartItem, id uuid.UUID) []StagedCartItem {
	out := make([]StagedCartItem, 0, len(staged))
	for _, s := range staged {
		if id != uuid.Nil && s.ID == id {
			continue
		}
		out = append(out, s)
	}
	return out
}

// basePaymentMode is the mode before any MedD override: the user's self-pay
// opt-out if recorded, otherwise the appointment's payment method.
func basePaymentMode(c Candidate, appt *appointment.Appointment) (PaymentMode, PaymentModeReason) {
	if c.PaymentModeReason == ReasonSelfPayOptOut {
		return PaymentModeSelfPay, ReasonSelfPayOptOut
	}
	return defaultPaymentMode(appt.PaymentMethod), ReasonNone
}

// restricted applies the flu-only rules: partner flu-only visits take flu
// products only, and restricted categories cannot share a cart with non-flu
// products in either direction.
func restricted(lot *product.Lot, appt *appointment.Appointment, others []StagedCartItem, policy Policy) bool {
	p := &lot.Product
	if appt.PartnerFluOnly && !p.IsFlu() {
		return true
	}
	for _, o := range others {
		if !o.Active() {
			continue
		}
		op := &o.Lot.Product
		if policy.restricts(p.Category) && !op.IsFlu() {
			return true
		}
		if !p.IsFlu() && policy.restricts(op.Category) {
			return true
		}
	}
	return false
}

// notCovered applies eligibility results. Only appointments that went through
// risk-based eligibility and were not created on the device have results to
// apply, and self-pay doses are not billed to coverage.
func notCovered(lot *product.Lot, appt *appointment.Appointment, mode PaymentMode, flags Flags) bool {
	if !flags.IsRprdAndNotLocallyCreated || mode == PaymentModeSelfPay {
		return false
	}
	if g := lot.Product.InventoryGroup; g != "" && !appt.CoversGroup(g) {
		return true
	}
	return appt.RejectCodeFor(lot.Product.Antigen, lot.SalesProductID) != ""
}
