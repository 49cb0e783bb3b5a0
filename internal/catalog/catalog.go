// Package catalog exposes the read-only list of bookable time windows that
// reservation requests are validated against.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ration-slots/internal/db"
	"github.com/google/uuid"
)

// ErrUnavailable wraps any backing-store failure; the catalog has no other
// failure mode.
var ErrUnavailable = errors.New("slot catalog unavailable")

// SlotWindow is one bookable time-of-day range, e.g. "9-11 AM".
type SlotWindow struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Position int    `json:"position"`
}

// PgCatalog reads slot windows from Postgres.
type PgCatalog struct {
	db      *db.DB
	timeout time.Duration
}

func NewPgCatalog(d *db.DB, timeout time.Duration) *PgCatalog {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &PgCatalog{db: d, timeout: timeout}
}

func (c *PgCatalog) ListWindows(ctx context.Context) ([]SlotWindow, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.db.Query(ctx, `
SELECT id, label, position
FROM slot_windows
ORDER BY position ASC, label ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []SlotWindow
	for rows.Next() {
		var w SlotWindow
		if err := rows.Scan(&w.ID, &w.Label, &w.Position); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

// Seed inserts windows for the given labels, skipping ones that already
// exist. Position follows the label order given.
func Seed(ctx context.Context, d *db.DB, labels []string) error {
	for i, label := range labels {
		if err := d.Exec(ctx, `
INSERT INTO slot_windows (id, label, position)
VALUES ($1, $2, $3)
ON CONFLICT (label) DO NOTHING`, uuid.NewString(), label, i); err != nil {
			return fmt.Errorf("seed window %q: %w", label, err)
		}
	}
	return nil
}

// DefaultLabels are the windows the distribution centre runs by default.
var DefaultLabels = []string{
	"9-11 AM",
	"11 AM-1 PM",
	"2-4 PM",
	"4-6 PM",
}
