package immunization

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("immunization not found")

type Repository interface {
	Create(ctx context.Context, im *Immunization) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Immunization, error)
	MarkEnteredInError(ctx context.Context, id uuid.UUID) error
}
