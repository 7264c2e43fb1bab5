package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaxhub/vaxhub/internal/domain/appointment"
	"github.com/vaxhub/vaxhub/internal/domain/immunization"
	"github.com/vaxhub/vaxhub/internal/domain/inventory"
	"github.com/vaxhub/vaxhub/internal/domain/medd"
	"github.com/vaxhub/vaxhub/internal/domain/product"
)

// Features are the deployment-wide switches Flags are derived from.
type Features struct {
	VaxCare3Flow        bool
	DisableDuplicateRSV bool
	RPRD                bool
}

// FlagsFor builds the evaluation flags for one appointment.
func (f Features) FlagsFor(appt *appointment.Appointment) Flags {
	return Flags{
		IsRprdAndNotLocallyCreated: f.RPRD && !appt.LocallyCreated,
		IsDisableDuplicateRSV:      f.DisableDuplicateRSV,
		IsVaxCare3Flow:             f.VaxCare3Flow,
	}
}

// Deps groups the collaborators of Service. MedD and Tx may be nil.
type Deps struct {
	Lots         LotFinder
	Appointments AppointmentFinder
	OnHand       OnHandFinder
	MedD         MedDStore
	Doses        DoseRecorder
	Tx           TxFunc
}

// Service keeps one Cart per appointment in memory and persists the outcome
// when a checkout is submitted.
type Service struct {
	verifier *Verifier
	deps     Deps
	features Features
	logger   zerolog.Logger

	mu    sync.Mutex
	carts map[uuid.UUID]*Cart
}

func NewService(verifier *Verifier, deps Deps, features Features, logger zerolog.Logger) *Service {
	if deps.Tx == nil {
		deps.Tx = noTx
	}
	return &Service{
		verifier: verifier,
		deps:     deps,
		features: features,
		logger:   logger.With().Str("component", "checkout").Logger(),
		carts:    make(map[uuid.UUID]*Cart),
	}
}

// View is a read-only rendering of a cart.
type View struct {
	AppointmentID uuid.UUID        `json:"appointment_id"`
	Closed        bool             `json:"closed"`
	Blocked       bool             `json:"blocked"`
	Items         []StagedCartItem `json:"items"`
}

func viewOf(id uuid.UUID, cart *Cart) *View {
	return &View{
		AppointmentID: id,
		Closed:        cart.Closed(),
		Blocked:       len(cart.Blocking()) > 0,
		Items:         cart.Items(),
	}
}

// ScanRequest is a lot scanned into the cart.
type ScanRequest struct {
	LotNumber  string     `json:"lot_number"`
	DoseSeries *int       `json:"dose_series,omitempty"`
	ManualDOB  *time.Time `json:"manual_dob,omitempty"`
}

// Evaluate runs the verifier without touching any session.
func (s *Service) Evaluate(req Request) *VaccineWithIssues {
	return s.verifier.Evaluate(req)
}

// Start opens the checkout for an appointment, or returns the one already
// open. Doses recorded by an earlier checkout of an editable appointment are
// loaded as administered.
func (s *Service) Start(ctx context.Context, appointmentID uuid.UUID) (*View, error) {
	if cart := s.cart(appointmentID); cart != nil && !cart.Closed() {
		return viewOf(appointmentID, cart), nil
	}

	appt, err := s.deps.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.CheckedOut && !appt.Editable {
		return nil, ErrCheckoutClosed
	}

	cart := NewCart(s.verifier, appt, s.features.FlagsFor(appt))
	if info := s.loadMedD(ctx, appointmentID); info != nil {
		cart.SetMedD(info)
	}
	if err := s.loadRecorded(ctx, cart, appt); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.carts[appointmentID]; ok && !existing.Closed() {
		s.mu.Unlock()
		return viewOf(appointmentID, existing), nil
	}
	s.carts[appointmentID] = cart
	s.mu.Unlock()

	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Int("recorded_doses", len(cart.Items())).
		Msg("checkout started")
	return viewOf(appointmentID, cart), nil
}

func (s *Service) loadRecorded(ctx context.Context, cart *Cart, appt *appointment.Appointment) error {
	records, err := s.deps.Doses.ListByAppointment(ctx, appt.ID)
	if err != nil {
		return fmt.Errorf("load recorded doses: %w", err)
	}
	for _, rec := range records {
		if !rec.Active() {
			continue
		}
		lot, err := s.deps.Lots.GetLot(ctx, rec.LotNumber)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("appointment_id", appt.ID.String()).
				Str("lot_number", rec.LotNumber).
				Msg("skipping recorded dose with unknown lot")
			continue
		}
		onHand, err := s.deps.OnHand.OnHandByLot(ctx, appt.ClinicID, lot.LotNumber)
		if err != nil {
			return fmt.Errorf("load on-hand for %s: %w", lot.LotNumber, err)
		}
		if _, err := cart.Add(*lot, onHand, AddOptions{
			ID:         rec.ID,
			State:      DoseAdministered,
			DoseSeries: rec.DoseSeries,
		}); err != nil {
			return fmt.Errorf("stage recorded dose %s: %w", rec.ID, err)
		}
		if rec.RouteCode != "" && rec.RouteCode != lot.Product.RouteCode {
			if _, err := cart.SelectRoute(rec.ID, rec.RouteCode); err != nil {
				return err
			}
		}
	}
	return nil
}

// Get returns the open or most recently submitted checkout.
func (s *Service) Get(appointmentID uuid.UUID) (*View, error) {
	cart := s.cart(appointmentID)
	if cart == nil {
		return nil, ErrNotFound
	}
	return viewOf(appointmentID, cart), nil
}

// Scan looks up the lot and its on-hand rows and stages a dose.
func (s *Service) Scan(ctx context.Context, appointmentID uuid.UUID, req ScanRequest) (*StagedCartItem, error) {
	lotNumber := strings.TrimSpace(req.LotNumber)
	if lotNumber == "" {
		return nil, fmt.Errorf("%w: lot_number is required", ErrInvalidRequest)
	}
	cart, err := s.openCart(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	lot, err := s.deps.Lots.GetLot(ctx, lotNumber)
	if err != nil {
		return nil, err
	}
	onHand, err := s.deps.OnHand.OnHandByLot(ctx, cart.Appointment().ClinicID, lot.LotNumber)
	if err != nil {
		return nil, fmt.Errorf("load on-hand for %s: %w", lot.LotNumber, err)
	}
	if req.ManualDOB != nil {
		cart.SetManualDOB(req.ManualDOB)
	}

	item, err := cart.Add(*lot, onHand, AddOptions{DoseSeries: req.DoseSeries})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Str("lot_number", lot.LotNumber).
		Int("product_id", lot.ProductID).
		Interface("issues", item.Issues.Kinds()).
		Msg("dose scanned")
	return &item, nil
}

func (s *Service) Remove(ctx context.Context, appointmentID, itemID uuid.UUID) (*StagedCartItem, error) {
	return s.mutate(ctx, appointmentID, "dose removed", func(c *Cart) (StagedCartItem, error) {
		return c.Remove(itemID)
	})
}

func (s *Service) Restore(ctx context.Context, appointmentID, itemID uuid.UUID) (*StagedCartItem, error) {
	return s.mutate(ctx, appointmentID, "dose restored", func(c *Cart) (StagedCartItem, error) {
		return c.Restore(itemID)
	})
}

func (s *Service) SelectRoute(ctx context.Context, appointmentID, itemID uuid.UUID, route string) (*StagedCartItem, error) {
	return s.mutate(ctx, appointmentID, "route selected", func(c *Cart) (StagedCartItem, error) {
		return c.SelectRoute(itemID, route)
	})
}

func (s *Service) SetPaymentMode(ctx context.Context, appointmentID, itemID uuid.UUID, mode PaymentMode) (*StagedCartItem, error) {
	return s.mutate(ctx, appointmentID, "payment mode changed", func(c *Cart) (StagedCartItem, error) {
		return c.SetPaymentMode(itemID, mode)
	})
}

func (s *Service) mutate(ctx context.Context, appointmentID uuid.UUID, msg string, fn func(*Cart) (StagedCartItem, error)) (*StagedCartItem, error) {
	cart, err := s.openCart(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	item, err := fn(cart)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Str("dose_id", item.ID.String()).
		Str("dose_state", string(item.DoseState)).
		Interface("issues", item.Issues.Kinds()).
		Msg(msg)
	return &item, nil
}

// ApplyMedD stores a MedD check result and re-evaluates the cart with it.
func (s *Service) ApplyMedD(ctx context.Context, appointmentID uuid.UUID, info *medd.Info) (*View, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: medd result is required", ErrInvalidRequest)
	}
	cart, err := s.openCart(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	result := *info
	result.Copays = append([]medd.Copay(nil), info.Copays...)
	if result.CheckedAt.IsZero() {
		result.CheckedAt = time.Now().UTC()
	}
	if s.deps.MedD != nil {
		if err := s.deps.MedD.Put(ctx, appointmentID, &result); err != nil {
			return nil, err
		}
	}
	cart.SetMedD(&result)
	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Bool("eligible", info.Eligible).
		Int("copays", len(info.Copays)).
		Msg("medd result applied")
	return viewOf(appointmentID, cart), nil
}

// Refresh reloads the appointment, on-hand rows and MedD result, then
// re-evaluates every dose. When the store has no result, or cannot be read,
// the cart keeps the result already applied.
func (s *Service) Refresh(ctx context.Context, appointmentID uuid.UUID) (*View, error) {
	cart, err := s.openCart(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	appt, err := s.deps.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	var onHand []inventory.SimpleOnHandProduct
	seen := map[string]bool{}
	for _, it := range cart.Items() {
		key := strings.ToUpper(it.Lot.LotNumber)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows, err := s.deps.OnHand.OnHandByLot(ctx, appt.ClinicID, it.Lot.LotNumber)
		if err != nil {
			return nil, fmt.Errorf("load on-hand for %s: %w", it.Lot.LotNumber, err)
		}
		onHand = append(onHand, rows...)
	}

	cart.Refresh(appt, s.features.FlagsFor(appt), onHand, s.loadMedD(ctx, appointmentID))
	s.logger.Info().Str("appointment_id", appointmentID.String()).Msg("checkout refreshed")
	return viewOf(appointmentID, cart), nil
}

// Submit administers the cart. Newly administered doses are recorded,
// removed doses from an earlier checkout are marked entered in error, and the
// appointment is checked out, all in one transaction.
func (s *Service) Submit(ctx context.Context, appointmentID uuid.UUID) (*View, error) {
	cart, err := s.openCart(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	appt := cart.Appointment()
	now := time.Now().UTC()

	_, err = cart.Administer(func(sub Submission) error {
		return s.deps.Tx(ctx, func(ctx context.Context) error {
			for _, it := range sub.Administered {
				rec := &immunization.Immunization{
					ID:             it.ID,
					AppointmentID:  appt.ID,
					PatientID:      appt.Patient.ID,
					ProductID:      it.Lot.ProductID,
					LotNumber:      it.Lot.LotNumber,
					ExpirationDate: it.Lot.ExpirationDate,
					RouteCode:      it.Route,
					DoseSeries:     it.DoseSeries,
					PaymentMode:    string(it.PaymentMode),
					OccurredAt:     now,
				}
				if err := s.deps.Doses.Create(ctx, rec); err != nil {
					return fmt.Errorf("record dose %s: %w", it.Lot.LotNumber, err)
				}
			}
			for _, it := range sub.Voided {
				err := s.deps.Doses.MarkEnteredInError(ctx, it.ID)
				if err != nil && !errors.Is(err, immunization.ErrNotFound) {
					return fmt.Errorf("void dose %s: %w", it.ID, err)
				}
			}
			return s.deps.Appointments.MarkCheckedOut(ctx, appt.ID)
		})
	})
	if err != nil {
		if errors.Is(err, ErrBlockingIssues) {
			s.logger.Warn().
				Str("appointment_id", appointmentID.String()).
				Int("blocking_doses", len(cart.Blocking())).
				Msg("submit refused")
		}
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Int("doses", len(cart.Items())).
		Msg("checkout submitted")
	return viewOf(appointmentID, cart), nil
}

func (s *Service) cart(appointmentID uuid.UUID) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[appointmentID]
}

// openCart returns the open cart, starting one if none exists.
func (s *Service) openCart(ctx context.Context, appointmentID uuid.UUID) (*Cart, error) {
	if cart := s.cart(appointmentID); cart != nil {
		if cart.Closed() {
			return nil, ErrCheckoutClosed
		}
		return cart, nil
	}
	if _, err := s.Start(ctx, appointmentID); err != nil {
		return nil, err
	}
	return s.cart(appointmentID), nil
}

// loadMedD treats a store failure as "no check recorded"; the dose then shows
// CopayRequired and the user can re-run the check.
func (s *Service) loadMedD(ctx context.Context, appointmentID uuid.UUID) *medd.Info {
	if s.deps.MedD == nil {
		return nil
	}
	info, err := s.deps.MedD.Get(ctx, appointmentID)
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", appointmentID.String()).Msg("medd lookup failed")
		return nil
	}
	return info
}

var _ LotFinder = (product.Repository)(nil)
