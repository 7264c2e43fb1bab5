package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vaxhub/vaxhub/internal/domain/inventory"
)

type PaymentMethod string

const (
	PaymentInsurance   PaymentMethod = "insurance"
	PaymentSelfPay     PaymentMethod = "self_pay"
	PaymentPartnerBill PaymentMethod = "partner_bill"
)

// Call-to-action codes carried on encounter messages.
const (
	CallToActionMedDCheck = "MEDD_CHECK"
	CallToActionCollect   = "COLLECT_PAYMENT_INFO"
)

type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	MRN       string     `db:"mrn" json:"mrn,omitempty"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	DOB       *time.Time `db:"dob" json:"dob,omitempty"`
	Gender    string     `db:"gender" json:"gender,omitempty"`
}

// EncounterMessage is an externally computed eligibility note for one
// antigen or sales product on the visit.
type EncounterMessage struct {
	Antigen        string `db:"antigen" json:"antigen,omitempty"`
	SalesProductID int    `db:"sales_product_id" json:"sales_product_id,omitempty"`
	TopRejectCode  string `db:"top_reject_code" json:"top_reject_code,omitempty"`
	CallToAction   string `db:"call_to_action" json:"call_to_action,omitempty"`
}

func (m EncounterMessage) appliesTo(antigen string, salesProductID int) bool {
	if m.SalesProductID != 0 && m.SalesProductID == salesProductID {
		return true
	}
	return m.Antigen != "" && strings.EqualFold(m.Antigen, antigen)
}

type Appointment struct {
	ID                     uuid.UUID          `db:"id" json:"id"`
	ClinicID               int                `db:"clinic_id" json:"clinic_id"`
	ScheduledAt            time.Time          `db:"scheduled_at" json:"scheduled_at"`
	Patient                Patient            `json:"patient"`
	PaymentMethod          PaymentMethod      `db:"payment_method" json:"payment_method"`
	InventorySource        inventory.Source   `db:"inventory_source" json:"inventory_source,omitempty"`
	Editable               bool               `db:"editable" json:"editable"`
	CheckedOut             bool               `db:"checked_out" json:"checked_out"`
	LocallyCreated         bool               `db:"locally_created" json:"locally_created"`
	PartnerFluOnly         bool               `db:"partner_flu_only" json:"partner_flu_only"`
	CoveredInventoryGroups []string           `db:"covered_inventory_groups" json:"covered_inventory_groups,omitempty"`
	EncounterMessages      []EncounterMessage `json:"encounter_messages,omitempty"`
}

// HasMedDCallToAction reports whether eligibility asked for a MedD copay check.
func (a *Appointment) HasMedDCallToAction() bool {
	for _, m := range a.EncounterMessages {
		if m.CallToAction == CallToActionMedDCheck {
			return true
		}
	}
	return false
}

// RejectCodeFor returns the first top reject code recorded for the antigen or
// sales product, or "" when eligibility did not reject it.
func (a *Appointment) RejectCodeFor(antigen string, salesProductID int) string {
	for _, m := range a.EncounterMessages {
		if m.TopRejectCode != "" && m.appliesTo(antigen, salesProductID) {
			return m.TopRejectCode
		}
	}
	return ""
}

// CoversGroup reports whether the inventory group is covered. An appointment
// with no covered groups recorded has not been through eligibility and is
// treated as covering everything.
func (a *Appointment) CoversGroup(group string) bool {
	if len(a.CoveredInventoryGroups) == 0 {
		return true
	}
	for _, g := range a.CoveredInventoryGroups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}
