package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/ration-slots/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Roles. Administrators fulfill bookings and list across households;
// members only act on their own.
const (
	RoleMember        = "member"
	RoleAdministrator = "administrator"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrHouseholdNotFound  = errors.New("household not found")
)

// Household is the registered party that owns bookings. RationCardID is an
// external correlation key and is not validated here.
type Household struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	RationCardID string    `json:"rationCardId"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type HouseholdStore interface {
	Create(ctx context.Context, h Household) error
	GetByUsername(ctx context.Context, username string) (Household, error)
}

type PgHouseholds struct{ db *db.DB }

func NewPgHouseholds(d *db.DB) *PgHouseholds { return &PgHouseholds{db: d} }

func (r *PgHouseholds) Create(ctx context.Context, h Household) error {
	err := r.db.Exec(ctx, `
INSERT INTO households (id, username, password_bcrypt, name, ration_card_id, role, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.Username, h.PasswordHash, h.Name, h.RationCardID, h.Role, h.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create household: %w", err)
	}
	return nil
}

func (r *PgHouseholds) GetByUsername(ctx context.Context, username string) (Household, error) {
	var h Household
	err := r.db.QueryRow(ctx, `
SELECT id, username, password_bcrypt, name, ration_card_id, role, created_at
FROM households
WHERE username=$1`, username).
		Scan(&h.ID, &h.Username, &h.PasswordHash, &h.Name, &h.RationCardID, &h.Role, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Household{}, ErrHouseholdNotFound
		}
		return Household{}, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// MemHouseholds backs the no-database mode and tests.
type MemHouseholds struct {
	mu         sync.Mutex
	byUsername map[string]Household
}

func NewMemHouseholds() *MemHouseholds {
	return &MemHouseholds{byUsername: make(map[string]Household)}
}

func (r *MemHouseholds) Create(ctx context.Context, h Household) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUsername[h.Username]; ok {
		return ErrUsernameTaken
	}
	r.byUsername[h.Username] = h
	return nil
}

func (r *MemHouseholds) GetByUsername(ctx context.Context, username string) (Household, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byUsername[username]
	if !ok {
		return Household{}, ErrHouseholdNotFound
	}
	return h, nil
}

var (
	_ HouseholdStore = (*PgHouseholds)(nil)
	_ HouseholdStore = (*MemHouseholds)(nil)
)
