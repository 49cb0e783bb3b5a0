package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/example/ration-slots/internal/booking"
	"github.com/google/uuid"
)

// bookingDTO is the wire shape of a booking; dates go out as plain
// YYYY-MM-DD strings like the original API.
type bookingDTO struct {
	ID          string `json:"id"`
	HouseholdID string `json:"householdId"`
	Period      string `json:"period"`
	SlotDate    string `json:"slotDate"`
	SlotWindow  string `json:"slotWindow"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

func toBookingDTO(b booking.Booking) bookingDTO {
	return bookingDTO{
		ID:          b.ID,
		HouseholdID: b.HouseholdID,
		Period:      b.Period,
		SlotDate:    b.SlotDate.Format("2006-01-02"),
		SlotWindow:  b.SlotWindow,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// decodeJSON reads a small JSON body and answers 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

func newID() string { return uuid.NewString() }
