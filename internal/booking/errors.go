package booking

import "errors"

// Sentinel errors returned by the engine and its stores. The web layer maps
// these to response codes with errors.Is, so wrap rather than replace them.
var (
	ErrOutsideEnrollmentWindow   = errors.New("slot date is outside the enrollment window")
	ErrUnknownSlotWindow         = errors.New("unknown slot window")
	ErrDuplicateBookingForPeriod = errors.New("household already has a booking for this period")
	ErrInvalidTransition         = errors.New("booking status does not allow this transition")
	ErrPastSlotNotCancellable    = errors.New("past slot can no longer be cancelled")
	ErrForbidden                 = errors.New("booking belongs to another household")
	ErrNotFound                  = errors.New("booking not found")
	ErrStoreUnavailable          = errors.New("booking store unavailable")
)
