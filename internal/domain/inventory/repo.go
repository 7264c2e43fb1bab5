package inventory

import "context"

type Repository interface {
	// OnHandByLot returns a clinic's snapshot rows for a lot across every source.
	// An unknown lot yields an empty slice, not an error.
	OnHandByLot(ctx context.Context, clinicID int, lotNumber string) ([]SimpleOnHandProduct, error)
}
