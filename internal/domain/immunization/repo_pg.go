package immunization

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaxhub/vaxhub/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const immCols = `id, status, appointment_id, patient_id, product_id,
	lot_number, expiration_date, route_code, dose_series, payment_mode,
	occurred_at, created_at, updated_at`

func scanImm(row pgx.Row) (*Immunization, error) {
	var im Immunization
	err := row.Scan(&im.ID, &im.Status, &im.AppointmentID, &im.PatientID, &im.ProductID,
		&im.LotNumber, &im.ExpirationDate, &im.RouteCode, &im.DoseSeries, &im.PaymentMode,
		&im.OccurredAt, &im.CreatedAt, &im.UpdatedAt)
	return &im, err
}

func (r *repoPG) Create(ctx context.Context, im *Immunization) error {
	if err := im.Validate(); err != nil {
		return err
	}
	if im.ID == uuid.Nil {
		im.ID = uuid.New()
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO immunization (id, status, appointment_id, patient_id, product_id,
			lot_number, expiration_date, route_code, dose_series, payment_mode, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		im.ID, im.Status, im.AppointmentID, im.PatientID, im.ProductID,
		im.LotNumber, im.ExpirationDate, im.RouteCode, im.DoseSeries, im.PaymentMode, im.OccurredAt,
	).Scan(&im.CreatedAt, &im.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert immunization: %w", err)
	}
	return nil
}

func (r *repoPG) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Immunization, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+immCols+` FROM immunization WHERE appointment_id = $1 ORDER BY occurred_at, id`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("list immunizations: %w", err)
	}
	defer rows.Close()
	var out []*Immunization
	for rows.Next() {
		im, err := scanImm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, im)
	}
	return out, rows.Err()
}

func (r *repoPG) MarkEnteredInError(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE immunization SET status = $2, updated_at = NOW() WHERE id = $1`, id, StatusEnteredInError)
	if err != nil {
		return fmt.Errorf("update immunization status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
