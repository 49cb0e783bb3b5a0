package booking

import (
	"time"
)

// Status is the booking lifecycle state. Reserved is the only initial state;
// fulfilled and withdrawn are terminal.
type Status string

const (
	StatusReserved  Status = "reserved"
	StatusFulfilled Status = "fulfilled"
	StatusWithdrawn Status = "withdrawn"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReserved, StatusFulfilled, StatusWithdrawn:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusFulfilled || s == StatusWithdrawn
}

// Active reports whether the booking counts toward the one-per-period limit.
// A withdrawn booking frees the period.
func (s Status) Active() bool {
	return s == StatusReserved || s == StatusFulfilled
}

// CanTransitionTo is the single place the transition table lives.
func (s Status) CanTransitionTo(next Status) bool {
	if s != StatusReserved {
		return false
	}
	return next == StatusFulfilled || next == StatusWithdrawn
}

// Booking is one household's claim on a distribution slot. Rows are never
// deleted; withdrawn bookings stay around as history.
type Booking struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"householdId"`
	Period      string    `json:"period"`   // YYYY-MM, derived from SlotDate
	SlotDate    time.Time `json:"slotDate"` // calendar date, midnight UTC
	SlotWindow  string    `json:"slotWindow"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Enrollment window: bookings may only target the first days of the month.
const (
	EnrollmentFirstDay = 1
	EnrollmentLastDay  = 5
)

// PeriodOf derives the YYYY-MM period a slot date belongs to.
func PeriodOf(date time.Time) string {
	return date.Format("2006-01")
}

func InEnrollmentWindow(date time.Time) bool {
	d := date.Day()
	return d >= EnrollmentFirstDay && d <= EnrollmentLastDay
}

// NormalizeDate strips the time-of-day component so slot dates compare as
// calendar dates regardless of how the caller parsed them.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SortOrder selects list ordering by slot date.
type SortOrder string

const (
	SortSlotDateDesc SortOrder = "desc"
	SortSlotDateAsc  SortOrder = "asc"
)

func (o SortOrder) Valid() bool {
	return o == SortSlotDateDesc || o == SortSlotDateAsc
}

// ListFilter narrows List results. Zero values mean "no constraint"; the
// request layer is responsible for forcing HouseholdID on non-admin callers.
type ListFilter struct {
	HouseholdID string
	Period      string
	SlotDate    *time.Time
	Sort        SortOrder
}
