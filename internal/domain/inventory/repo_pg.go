package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaxhub/vaxhub/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) OnHandByLot(ctx context.Context, clinicID int, lotNumber string) ([]SimpleOnHandProduct, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT lot_number, inventory_source, on_hand
		FROM on_hand_inventory
		WHERE clinic_id = $1 AND upper(lot_number) = upper($2)
		ORDER BY inventory_source`, clinicID, lotNumber)
	if err != nil {
		return nil, fmt.Errorf("query on-hand for lot %s: %w", lotNumber, err)
	}
	defer rows.Close()

	out := []SimpleOnHandProduct{}
	for rows.Next() {
		var row SimpleOnHandProduct
		if err := rows.Scan(&row.LotNumber, &row.Source, &row.OnHand); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
