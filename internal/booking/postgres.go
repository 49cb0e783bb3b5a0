package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ration-slots/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgStore persists bookings in Postgres. The one-active-booking-per-period
// invariant is enforced by a partial unique index on (household_id, period)
// over non-withdrawn rows, so Insert is atomic with the duplicate check and
// a failed insert leaves no partial row behind.
type PgStore struct {
	db      *db.DB
	timeout time.Duration
}

func NewPgStore(d *db.DB, timeout time.Duration) *PgStore {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &PgStore{db: d, timeout: timeout}
}

const bookingColumns = `id, household_id, period, slot_date, slot_window, status, created_at`

func (s *PgStore) Insert(ctx context.Context, b Booking) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.Exec(ctx, `
INSERT INTO bookings (id, household_id, period, slot_date, slot_window, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.HouseholdID, b.Period, b.SlotDate, b.SlotWindow, string(b.Status), b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBookingForPeriod
		}
		return storeErr(err)
	}
	return nil
}

func (s *PgStore) Get(ctx context.Context, id string) (Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var b Booking
	var status string
	err := s.db.QueryRow(ctx, `
SELECT `+bookingColumns+`
FROM bookings
WHERE id=$1`, id).
		Scan(&b.ID, &b.HouseholdID, &b.Period, &b.SlotDate, &b.SlotWindow, &status, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, storeErr(err)
	}
	b.Status = Status(status)
	b.SlotDate = NormalizeDate(b.SlotDate)
	return b, nil
}

// Transition flips status only when the row is still in the expected state.
// Racing callers resolve here: the UPDATE matches for exactly one of them,
// the other distinguishes ErrNotFound from ErrInvalidTransition by re-reading.
func (s *PgStore) Transition(ctx context.Context, id string, from, to Status) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	affected, err := s.db.ExecAffected(ctx, `
UPDATE bookings
SET status=$3
WHERE id=$1 AND status=$2`, id, string(from), string(to))
	if err != nil {
		return storeErr(err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id=$1)`, id).Scan(&exists); err != nil {
		return storeErr(err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

func (s *PgStore) List(ctx context.Context, f ListFilter) ([]Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
SELECT ` + bookingColumns + `
FROM bookings
WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.HouseholdID != "" {
		query += ` AND household_id=` + arg(f.HouseholdID)
	}
	if f.Period != "" {
		query += ` AND period=` + arg(f.Period)
	}
	if f.SlotDate != nil {
		query += ` AND slot_date=` + arg(*f.SlotDate)
	}
	if f.Sort == SortSlotDateAsc {
		query += ` ORDER BY slot_date ASC, created_at ASC`
	} else {
		query += ` ORDER BY slot_date DESC, created_at DESC`
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		var status string
		if err := rows.Scan(&b.ID, &b.HouseholdID, &b.Period, &b.SlotDate, &b.SlotWindow, &status, &b.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		b.Status = Status(status)
		b.SlotDate = NormalizeDate(b.SlotDate)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// storeErr classifies infrastructure failures: timeouts and connection
// trouble surface as ErrStoreUnavailable so callers can treat them as
// transient without retrying inside the engine.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

var _ Store = (*PgStore)(nil)
