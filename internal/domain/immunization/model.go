package immunization

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record statuses.
const (
	StatusCompleted      = "completed"
	StatusEnteredInError = "entered-in-error"
)

var validStatuses = map[string]bool{
	StatusCompleted: true, StatusEnteredInError: true,
}

// Immunization is one administered dose, written when a checkout is submitted.
type Immunization struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Status         string     `db:"status" json:"status"`
	AppointmentID  uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProductID      int        `db:"product_id" json:"product_id"`
	LotNumber      string     `db:"lot_number" json:"lot_number"`
	ExpirationDate *time.Time `db:"expiration_date" json:"expiration_date,omitempty"`
	RouteCode      string     `db:"route_code" json:"route_code"`
	DoseSeries     *int       `db:"dose_series" json:"dose_series,omitempty"`
	PaymentMode    string     `db:"payment_mode" json:"payment_mode"`
	OccurredAt     time.Time  `db:"occurred_at" json:"occurred_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate checks required fields and defaults the status to completed.
func (im *Immunization) Validate() error {
	if im.AppointmentID == uuid.Nil {
		return fmt.Errorf("appointment_id is required")
	}
	if im.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if im.ProductID == 0 {
		return fmt.Errorf("product_id is required")
	}
	if im.LotNumber == "" {
		return fmt.Errorf("lot_number is required")
	}
	if im.Status == "" {
		im.Status = StatusCompleted
	}
	if !validStatuses[im.Status] {
		return fmt.Errorf("invalid status: %s", im.Status)
	}
	return nil
}

func (im *Immunization) Active() bool { return im.Status == StatusCompleted }
