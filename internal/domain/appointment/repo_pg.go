package appointment

import (
	"context"
	"errors"
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

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	q := db.Conn(ctx, r.pool)
	var a Appointment
	err := q.QueryRow(ctx, `
		SELECT a.id, a.clinic_id, a.scheduled_at, a.payment_method, a.inventory_source,
			a.editable, a.checked_out, a.locally_created, a.partner_flu_only,
			a.covered_inventory_groups,
			p.id, p.mrn, p.first_name, p.last_name, p.dob, p.gender
		FROM appointment a JOIN patient p ON p.id = a.patient_id
		WHERE a.id = $1`, id).Scan(
		&a.ID, &a.ClinicID, &a.ScheduledAt, &a.PaymentMethod, &a.InventorySource,
		&a.Editable, &a.CheckedOut, &a.LocallyCreated, &a.PartnerFluOnly,
		&a.CoveredInventoryGroups,
		&a.Patient.ID, &a.Patient.MRN, &a.Patient.FirstName, &a.Patient.LastName,
		&a.Patient.DOB, &a.Patient.Gender)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}

	rows, err := q.Query(ctx, `
		SELECT antigen, sales_product_id, top_reject_code, call_to_action
		FROM encounter_message WHERE appointment_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list encounter messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m EncounterMessage
		if err := rows.Scan(&m.Antigen, &m.SalesProductID, &m.TopRejectCode, &m.CallToAction); err != nil {
			return nil, err
		}
		a.EncounterMessages = append(a.EncounterMessages, m)
	}
	return &a, rows.Err()
}

func (r *repoPG) MarkCheckedOut(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE appointment SET checked_out = TRUE, editable = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark appointment checked out: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
