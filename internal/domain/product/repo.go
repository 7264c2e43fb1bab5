package product

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("product lot not found")

type Repository interface {
	GetLot(ctx context.Context, lotNumber string) (*Lot, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
}
