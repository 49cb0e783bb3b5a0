package booking

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps bookings in process memory. All mutation happens under
// one mutex, which gives the same atomicity as the Postgres partial unique
// index. Used when the service runs without a database and by tests.
type MemoryStore struct {
	mu       sync.Mutex
	bookings map[string]Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookings: make(map[string]Booking)}
}

func (s *MemoryStore) Insert(ctx context.Context, b Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.bookings {
		if existing.HouseholdID == b.HouseholdID &&
			existing.Period == b.Period &&
			existing.Status.Active() {
			return ErrDuplicateBookingForPeriod
		}
	}
	s.bookings[b.ID] = b
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) Transition(ctx context.Context, id string, from, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return ErrNotFound
	}
	if b.Status != from {
		return ErrInvalidTransition
	}
	b.Status = to
	s.bookings[id] = b
	return nil
}

func (s *MemoryStore) List(ctx context.Context, f ListFilter) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Booking
	for _, b := range s.bookings {
		if f.HouseholdID != "" && b.HouseholdID != f.HouseholdID {
			continue
		}
		if f.Period != "" && b.Period != f.Period {
			continue
		}
		if f.SlotDate != nil && !b.SlotDate.Equal(*f.SlotDate) {
			continue
		}
		out = append(out, b)
	}

	asc := f.Sort == SortSlotDateAsc
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SlotDate.Equal(out[j].SlotDate) {
			if asc {
				return out[i].SlotDate.Before(out[j].SlotDate)
			}
			return out[i].SlotDate.After(out[j].SlotDate)
		}
		if asc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
