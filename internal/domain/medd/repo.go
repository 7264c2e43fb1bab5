package medd

import (
	"context"

	"github.com/google/uuid"
)

// Store keeps the latest MedD check result per appointment. Get returns
// (nil, nil) when no check has been recorded.
type Store interface {
	Get(ctx context.Context, appointmentID uuid.UUID) (*Info, error)
	Put(ctx context.Context, appointmentID uuid.UUID, info *Info) error
}
