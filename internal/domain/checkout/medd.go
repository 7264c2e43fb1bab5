package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/vaxhub/vaxhub/internal/domain/appointment"
	"github.com/vaxhub/vaxhub/internal/domain/medd"
	"github.com/vaxhub/vaxhub/internal/domain/product"
)

type meddResult struct {
	relevant bool
	resolved bool
	copay    *decimal.Decimal
}

// copayRequired is true when the dose needs a MedD check that has not
// produced a covered copay.
func (r meddResult) copayRequired() bool { return r.relevant && !r.resolved }

// resolveMedD decides whether the product needs a MedD copay check for this
// visit and whether the supplied result settles it. Only Part B/D antigens
// on appointments where eligibility asked for the check are relevant.
func resolveMedD(lot *product.Lot, appt *appointment.Appointment, info *medd.Info, policy Policy) meddResult {
	p := &lot.Product
	if !policy.isMedDAntigen(p.Antigen) && p.MedicarePart == "" {
		return meddResult{}
	}
	if !appt.HasMedDCallToAction() {
		return meddResult{}
	}
	if info == nil || !info.Eligible {
		return meddResult{relevant: true}
	}
	copay, ok := info.CopayFor(p.Antigen)
	if !ok || !copay.Resolved() {
		return meddResult{relevant: true}
	}
	amount := copay.Amount
	return meddResult{relevant: true, resolved: true, copay: &amount}
}
