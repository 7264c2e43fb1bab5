package checkout

import (
	"time"

	"github.com/vaxhub/vaxhub/internal/domain/appointment"
	"github.com/vaxhub/vaxhub/internal/domain/product"
)

type ageResult struct {
	indication *product.AgeIndication
	issue      *Issue
}

// ageInDays counts whole calendar days from dob to today.
func ageInDays(dob, today time.Time) int {
	return int(product.DateOf(today).Sub(product.DateOf(dob)).Hours() / 24)
}

// checkAge finds the age indication covering the patient. A manually entered
// DOB wins over the patient record. Without a DOB or without indications on
// the product there is nothing to check.
func checkAge(lot *product.Lot, patient appointment.Patient, manualDOB *time.Time, doseSeries *int, today time.Time) ageResult {
	dob := manualDOB
	if dob == nil {
		dob = patient.DOB
	}
	if dob == nil || len(lot.Product.AgeIndications) == 0 {
		return ageResult{}
	}
	age := ageInDays(*dob, today)

	for _, ind := range lot.Product.AgeIndications {
		if !ind.AppliesToGender(patient.Gender) {
			continue
		}
		if doseSeries != nil && ind.DoseSeries != nil && *ind.DoseSeries != *doseSeries {
			continue
		}
		if ind.Contains(age) {
			matched := ind
			return ageResult{indication: &matched}
		}
	}

	if w := lot.Product.AgeWarning; w != nil {
		issue := outOfAgeWarning(w.Title, w.Message)
		return ageResult{issue: &issue}
	}
	issue := newIssue(IssueOutOfAgeIndication)
	return ageResult{issue: &issue}
}
