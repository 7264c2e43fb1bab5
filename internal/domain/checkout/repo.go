package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/vaxhub/vaxhub/internal/domain/appointment"
	"github.com/vaxhub/vaxhub/internal/domain/immunization"
	"github.com/vaxhub/vaxhub/internal/domain/inventory"
	"github.com/vaxhub/vaxhub/internal/domain/medd"
	"github.com/vaxhub/vaxhub/internal/domain/product"
)

// The session service reads its inputs through these narrow interfaces. The
// Postgres and Redis repositories of the owning packages satisfy them.

type LotFinder interface {
	GetLot(ctx context.Context, lotNumber string) (*product.Lot, error)
}

type AppointmentFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	MarkCheckedOut(ctx context.Context, id uuid.UUID) error
}

type OnHandFinder interface {
	OnHandByLot(ctx context.Context, clinicID int, lotNumber string) ([]inventory.SimpleOnHandProduct, error)
}

type MedDStore interface {
	Get(ctx context.Context, appointmentID uuid.UUID) (*medd.Info, error)
	Put(ctx context.Context, appointmentID uuid.UUID, info *medd.Info) error
}

type DoseRecorder interface {
	Create(ctx context.Context, im *immunization.Immunization) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*immunization.Immunization, error)
	MarkEnteredInError(ctx context.Context, id uuid.UUID) error
}

// TxFunc runs fn atomically. db.WithTx bound to a pool is the production
// implementation.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func noTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
