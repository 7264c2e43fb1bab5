package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vaxhub/vaxhub/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const productCols = `p.id, p.display_name, p.antigen, p.category, p.inventory_group,
	p.route_code, p.presentation, p.medicare_part, p.one_touch_rate,
	p.age_warning_title, p.age_warning_message`

func scanProduct(row pgx.Row, dest ...any) (*Product, error) {
	var p Product
	var rate decimal.NullDecimal
	var warnTitle, warnMessage *string
	cols := []any{&p.ID, &p.DisplayName, &p.Antigen, &p.Category, &p.InventoryGroup,
		&p.RouteCode, &p.Presentation, &p.MedicarePart, &rate,
		&warnTitle, &warnMessage}
	if err := row.Scan(append(cols, dest...)...); err != nil {
		return nil, err
	}
	if rate.Valid {
		r := rate.Decimal
		p.OneTouchRate = &r
	}
	if warnTitle != nil {
		p.AgeWarning = &AgeWarning{Title: *warnTitle}
		if warnMessage != nil {
			p.AgeWarning.Message = *warnMessage
		}
	}
	return &p, nil
}

func (r *repoPG) GetLot(ctx context.Context, lotNumber string) (*Lot, error) {
	q := db.Conn(ctx, r.pool)
	var l Lot
	p, err := scanProduct(q.QueryRow(ctx, `
		SELECT `+productCols+`, l.lot_number, l.sales_product_id, l.expiration_date
		FROM product_lot l JOIN product p ON p.id = l.product_id
		WHERE upper(l.lot_number) = upper($1)`, lotNumber),
		&l.LotNumber, &l.SalesProductID, &l.ExpirationDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lot %s: %w", lotNumber, err)
	}
	if p.AgeIndications, err = r.ageIndications(ctx, p.ID); err != nil {
		return nil, err
	}
	l.ProductID = p.ID
	l.Product = *p
	return &l, nil
}

func (r *repoPG) GetProduct(ctx context.Context, id int) (*Product, error) {
	p, err := scanProduct(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+productCols+` FROM product p WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	if p.AgeIndications, err = r.ageIndications(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) ageIndications(ctx context.Context, productID int) ([]AgeIndication, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, product_id, min_age_days, max_age_days, gender, dose_series
		FROM age_indication WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list age indications: %w", err)
	}
	defer rows.Close()
	var out []AgeIndication
	for rows.Next() {
		var a AgeIndication
		if err := rows.Scan(&a.ID, &a.ProductID, &a.MinAgeDays, &a.MaxAgeDays, &a.Gender, &a.DoseSeries); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
