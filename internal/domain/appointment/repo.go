package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("appointment not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	MarkCheckedOut(ctx context.Context, id uuid.UUID) error
}
