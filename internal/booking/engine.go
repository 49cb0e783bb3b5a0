package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/ration-slots/internal/catalog"
	"github.com/example/ration-slots/internal/metrics"
	"github.com/google/uuid"
)

// Store is the persistence port for bookings. Insert must be atomic with the
// one-active-booking-per-(household, period) check: two concurrent inserts for
// the same key must not both succeed. Transition must be conditional on the
// current status so that racing callers resolve to exactly one winner.
type Store interface {
	Insert(ctx context.Context, b Booking) error
	Get(ctx context.Context, id string) (Booking, error)
	Transition(ctx context.Context, id string, from, to Status) error
	List(ctx context.Context, f ListFilter) ([]Booking, error)
}

// Catalog is the read-only slot window list the engine validates against.
type Catalog interface {
	ListWindows(ctx context.Context) ([]catalog.SlotWindow, error)
}

// Engine enforces the reservation rules: enrollment window, catalog
// membership, per-period uniqueness, and the status lifecycle. Role checks
// stay with the request layer; the engine trusts the identity it is handed.
type Engine struct {
	Store   Store
	Catalog Catalog
	Logger  *slog.Logger

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Create reserves a slot for the household. Preconditions run in order and
// the first failure wins: enrollment window, then catalog membership, then
// the per-period uniqueness check, which happens atomically with the insert.
func (e *Engine) Create(ctx context.Context, householdID string, slotDate time.Time, slotWindow string) (Booking, error) {
	slotDate = NormalizeDate(slotDate)

	if !InEnrollmentWindow(slotDate) {
		metrics.IncBookingCreate("outside_window")
		return Booking{}, ErrOutsideEnrollmentWindow
	}

	windows, err := e.Catalog.ListWindows(ctx)
	if err != nil {
		metrics.IncBookingCreate("catalog_error")
		return Booking{}, err
	}
	known := false
	for _, w := range windows {
		if w.Label == slotWindow {
			known = true
			break
		}
	}
	if !known {
		metrics.IncBookingCreate("unknown_window")
		return Booking{}, ErrUnknownSlotWindow
	}

	b := Booking{
		ID:          uuid.NewString(),
		HouseholdID: householdID,
		Period:      PeriodOf(slotDate),
		SlotDate:    slotDate,
		SlotWindow:  slotWindow,
		Status:      StatusReserved,
		CreatedAt:   e.now().UTC(),
	}

	if err := e.Store.Insert(ctx, b); err != nil {
		if errors.Is(err, ErrDuplicateBookingForPeriod) {
			metrics.IncBookingCreate("duplicate")
		} else {
			metrics.IncBookingCreate("store_error")
		}
		return Booking{}, err
	}

	metrics.IncBookingCreate("ok")
	e.logger().Info("booking reserved",
		"booking_id", b.ID,
		"household_id", b.HouseholdID,
		"period", b.Period,
		"slot_date", b.SlotDate.Format("2006-01-02"),
		"slot_window", b.SlotWindow,
	)
	return b, nil
}

// Cancel withdraws a reserved booking. Only the owning household may cancel,
// and only while the slot date is still in the future. A repeat cancel fails
// with ErrInvalidTransition rather than silently succeeding.
func (e *Engine) Cancel(ctx context.Context, bookingID, requesterHouseholdID string) error {
	b, err := e.Store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.HouseholdID != requesterHouseholdID {
		return ErrForbidden
	}
	if b.Status != StatusReserved {
		return ErrInvalidTransition
	}
	if !b.SlotDate.After(e.now()) {
		return ErrPastSlotNotCancellable
	}

	// The conditional transition is the final word: if another request won
	// the race since the read above, the loser sees the terminal state here.
	if err := e.Store.Transition(ctx, bookingID, StatusReserved, StatusWithdrawn); err != nil {
		return err
	}

	metrics.IncBookingCancel()
	e.logger().Info("booking withdrawn",
		"booking_id", bookingID,
		"household_id", requesterHouseholdID,
	)
	return nil
}

// Fulfill marks a reserved booking as delivered. The request layer is
// responsible for only letting administrators in here.
func (e *Engine) Fulfill(ctx context.Context, bookingID string) error {
	if err := e.Store.Transition(ctx, bookingID, StatusReserved, StatusFulfilled); err != nil {
		return err
	}

	metrics.IncBookingFulfill()
	e.logger().Info("booking fulfilled", "booking_id", bookingID)
	return nil
}

// List returns bookings matching the filter, ordered by slot date. The
// default order is newest slot first, matching the admin dashboard.
func (e *Engine) List(ctx context.Context, f ListFilter) ([]Booking, error) {
	if !f.Sort.Valid() {
		f.Sort = SortSlotDateDesc
	}
	if f.SlotDate != nil {
		d := NormalizeDate(*f.SlotDate)
		f.SlotDate = &d
	}
	return e.Store.List(ctx, f)
}
