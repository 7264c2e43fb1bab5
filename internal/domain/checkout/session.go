package checkout

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaxhub/vaxhub/internal/domain/appointment"
	"github.com/vaxhub/vaxhub/internal/domain/inventory"
	"github.com/vaxhub/vaxhub/internal/domain/medd"
	"github.com/vaxhub/vaxhub/internal/domain/product"
)

// AddOptions tunes how a lot enters the cart.
type AddOptions struct {
	DoseSeries *int
	// State is DoseAdded unless the dose comes from an order or an earlier
	// checkout.
	State DoseState
	// ID keeps the identity of a dose loaded from an earlier checkout.
	ID uuid.UUID
}

// Cart is the in-progress checkout of one appointment. Every mutation
// re-evaluates every dose against a snapshot of the cart taken after the
// mutation, so issue sets never drift from the cart contents.
type Cart struct {
	mu        sync.Mutex
	verifier  *Verifier
	appt      *appointment.Appointment
	flags     Flags
	items     []StagedCartItem
	onHand    []inventory.SimpleOnHandProduct
	medD      *medd.Info
	manualDOB *time.Time
	closed    bool
	now       func() time.Time
}

func NewCart(v *Verifier, appt *appointment.Appointment, flags Flags) *Cart {
	return &Cart{verifier: v, appt: appt, flags: flags, now: v.now}
}

// Add stages a lot. Scanning a product that is on order fulfils the order
// instead of staging a second dose.
func (c *Cart) Add(lot product.Lot, onHand []inventory.SimpleOnHandProduct, opts AddOptions) (StagedCartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return StagedCartItem{}, ErrCheckoutClosed
	}
	state := opts.State
	if state == "" {
		state = DoseAdded
	}
	c.mergeOnHand(lot.LotNumber, onHand)

	if state == DoseAdded {
		for n := range c.items {
			it := &c.items[n]
			if it.DoseState == DoseOrdered && it.Lot.ProductID == lot.ProductID {
				it.Lot = lot
				it.DoseState = DoseAdded
				if opts.DoseSeries != nil {
					it.DoseSeries = opts.DoseSeries
				}
				c.reevaluate()
				return it.clone(), nil
			}
		}
	}

	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	item := StagedCartItem{
		ID:         id,
		Lot:        lot,
		DoseState:  state,
		DoseSeries: opts.DoseSeries,
		AddedAt:    c.now(),
	}
	if c.evaluate(item, c.items) == nil {
		return StagedCartItem{}, ErrNotEvaluable
	}
	c.items = append(c.items, item)
	c.reevaluate()
	return c.items[len(c.items)-1].clone(), nil
}

// Remove soft-deletes a dose.
func (c *Cart) Remove(id uuid.UUID) (StagedCartItem, error) {
	return c.mutate(id, func(it *StagedCartItem) error {
		next, ok := it.DoseState.removedState()
		if !ok {
			return fmt.Errorf("%w: cannot remove %s dose", ErrInvalidTransition, it.DoseState)
		}
		it.DoseState = next
		return nil
	})
}

// Restore brings a removed dose back.
func (c *Cart) Restore(id uuid.UUID) (StagedCartItem, error) {
	return c.mutate(id, func(it *StagedCartItem) error {
		next, ok := it.DoseState.restoredState()
		if !ok {
			return fmt.Errorf("%w: cannot restore %s dose", ErrInvalidTransition, it.DoseState)
		}
		it.DoseState = next
		return nil
	})
}

// SelectRoute records the route the user chose for the dose.
func (c *Cart) SelectRoute(id uuid.UUID, route string) (StagedCartItem, error) {
	route = strings.TrimSpace(route)
	if route == "" {
		return StagedCartItem{}, fmt.Errorf("%w: route is required", ErrInvalidRequest)
	}
	return c.mutate(id, func(it *StagedCartItem) error {
		it.SelectedRoute = route
		return nil
	})
}

// SetPaymentMode switches a dose to self-pay with the opt-out reason, or back
// to the appointment's default mode.
func (c *Cart) SetPaymentMode(id uuid.UUID, mode PaymentMode) (StagedCartItem, error) {
	if !mode.Valid() {
		return StagedCartItem{}, fmt.Errorf("%w: %q", ErrInvalidPayment, mode)
	}
	return c.mutate(id, func(it *StagedCartItem) error {
		switch {
		case mode == PaymentModeSelfPay:
			it.PaymentModeReason = ReasonSelfPayOptOut
		case mode == defaultPaymentMode(c.appt.PaymentMethod):
			it.PaymentModeReason = ReasonNone
		default:
			return fmt.Errorf("%w: %s is not available for this appointment", ErrInvalidPayment, mode)
		}
		return nil
	})
}

func (c *Cart) mutate(id uuid.UUID, fn func(it *StagedCartItem) error) (StagedCartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return StagedCartItem{}, ErrCheckoutClosed
	}
	n := c.indexOf(id)
	if n < 0 {
		return StagedCartItem{}, ErrItemNotFound
	}
	if err := fn(&c.items[n]); err != nil {
		return StagedCartItem{}, err
	}
	c.reevaluate()
	return c.items[n].clone(), nil
}

// SetMedD applies a MedD check result to every dose.
func (c *Cart) SetMedD(info *medd.Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.medD = info
	c.reevaluate()
}

// SetManualDOB overrides the patient record's date of birth for age checks.
func (c *Cart) SetManualDOB(dob *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manualDOB = dob
	c.reevaluate()
}

// Refresh swaps in reloaded inputs and re-evaluates. A nil info keeps the
// MedD result already applied to the cart.
func (c *Cart) Refresh(appt *appointment.Appointment, flags Flags, onHand []inventory.SimpleOnHandProduct, info *medd.Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appt = appt
	c.flags = flags
	c.onHand = onHand
	if info != nil {
		c.medD = info
	}
	c.reevaluate()
}

// Items returns a copy of the cart.
func (c *Cart) Items() []StagedCartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Cart) Item(id uuid.UUID) (StagedCartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.indexOf(id)
	if n < 0 {
		return StagedCartItem{}, ErrItemNotFound
	}
	return c.items[n].clone(), nil
}

func (c *Cart) Appointment() *appointment.Appointment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appt
}

func (c *Cart) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Blocking lists the active doses that hold submission.
func (c *Cart) Blocking() []StagedCartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocking()
}

func (c *Cart) blocking() []StagedCartItem {
	var out []StagedCartItem
	for _, it := range c.items {
		if it.Active() && it.Issues.Blocking() {
			out = append(out, it.clone())
		}
	}
	return out
}

// Submission is what a checkout hands to persistence: doses administered in
// this visit and previously recorded doses the user removed.
type Submission struct {
	Administered []StagedCartItem
	Voided       []StagedCartItem
}

// Administer completes the checkout: added doses become administered and the
// cart closes. It refuses while any active dose has a blocking issue. commit
// runs under the cart lock; if it fails the cart is left unchanged.
func (c *Cart) Administer(commit func(Submission) error) ([]StagedCartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCheckoutClosed
	}
	if len(c.blocking()) > 0 {
		return nil, ErrBlockingIssues
	}

	out := c.snapshot()
	var sub Submission
	for n := range out {
		switch out[n].DoseState {
		case DoseAdded:
			out[n].DoseState = DoseAdministered
			sub.Administered = append(sub.Administered, out[n])
		case DoseAdministeredRemoved:
			sub.Voided = append(sub.Voided, out[n])
		}
	}
	if commit != nil {
		if err := commit(sub); err != nil {
			return nil, err
		}
	}
	c.items = out
	c.closed = true
	return c.snapshot(), nil
}

func (c *Cart) indexOf(id uuid.UUID) int {
	for n := range c.items {
		if c.items[n].ID == id {
			return n
		}
	}
	return -1
}

func (c *Cart) snapshot() []StagedCartItem {
	out := make([]StagedCartItem, len(c.items))
	for n, it := range c.items {
		out[n] = it.clone()
	}
	return out
}

func (c *Cart) mergeOnHand(lotNumber string, rows []inventory.SimpleOnHandProduct) {
	kept := c.onHand[:0:0]
	for _, row := range c.onHand {
		if !strings.EqualFold(row.LotNumber, lotNumber) {
			kept = append(kept, row)
		}
	}
	c.onHand = append(kept, rows...)
}

func (c *Cart) evaluate(it StagedCartItem, staged []StagedCartItem) *VaccineWithIssues {
	return c.verifier.Evaluate(Request{
		Candidate:   it.Candidate(),
		Appointment: c.appt,
		Staged:      staged,
		DoseSeries:  it.DoseSeries,
		ManualDOB:   c.manualDOB,
		OnHand:      c.onHand,
		Flags:       c.flags,
		MedD:        c.medD,
		Today:       c.now(),
	})
}

// reevaluate recomputes every dose against one snapshot of the cart.
func (c *Cart) reevaluate() {
	staged := c.snapshot()
	for n := range c.items {
		if v := c.evaluate(c.items[n], staged); v != nil {
			c.items[n].apply(v)
		}
	}
}
