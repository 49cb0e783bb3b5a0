package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/ration-slots/internal/auth"
	"github.com/example/ration-slots/internal/booking"
	"github.com/example/ration-slots/internal/catalog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the request layer over the reservation engine. It owns
// authentication and the member/administrator role checks; the engine only
// ever sees an explicit caller identity.
type Server struct {
	Auth    *auth.Store
	Engine  *booking.Engine
	Catalog booking.Catalog
	Logger  *slog.Logger

	BaseURL string
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.Handle("GET /api/slot-windows", s.Auth.RequireAuth(http.HandlerFunc(s.handleListWindows)))
	mux.Handle("POST /api/bookings", s.Auth.RequireAuth(http.HandlerFunc(s.handleCreateBooking)))
	mux.Handle("GET /api/bookings", s.Auth.RequireAuth(http.HandlerFunc(s.handleListBookings)))
	mux.Handle("DELETE /api/bookings/{id}", s.Auth.RequireAuth(http.HandlerFunc(s.handleCancelBooking)))
	mux.Handle("PATCH /api/bookings/{id}/fulfill", s.Auth.RequireAdmin(http.HandlerFunc(s.handleFulfillBooking)))

	return mux
}

type registerRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	RationCardID string `json:"rationCardId"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username, password and name are required")
		return
	}

	h, err := s.Auth.Register(r.Context(), auth.Household{
		ID:           newID(),
		Username:     req.Username,
		Name:         req.Name,
		RationCardID: strings.TrimSpace(req.RationCardID),
		Role:         auth.RoleMember,
	}, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username_taken", "username already registered")
			return
		}
		s.serverError(w, r, err)
		return
	}

	if err := s.Auth.SetSession(w, r, h); err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h, err := s.Auth.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}
	if err := s.Auth.SetSession(w, r, h); err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := s.Catalog.ListWindows(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if windows == nil {
		windows = []catalog.SlotWindow{}
	}
	writeJSON(w, http.StatusOK, windows)
}

type createBookingRequest struct {
	SlotDate   string `json:"slotDate"` // YYYY-MM-DD
	SlotWindow string `json:"slotWindow"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	var req createBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	slotDate, err := time.Parse("2006-01-02", req.SlotDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "slotDate must be YYYY-MM-DD")
		return
	}

	b, err := s.Engine.Create(r.Context(), sess.HouseholdID, slotDate, req.SlotWindow)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(b))
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	if err := s.Engine.Cancel(r.Context(), r.PathValue("id"), sess.HouseholdID); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFulfillBooking(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Fulfill(r.Context(), r.PathValue("id")); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())
	q := r.URL.Query()

	f := booking.ListFilter{
		HouseholdID: q.Get("householdId"),
		Period:      q.Get("period"),
		Sort:        booking.SortOrder(q.Get("sort")),
	}
	if v := q.Get("slotDate"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "slotDate must be YYYY-MM-DD")
			return
		}
		f.SlotDate = &d
	}

	// Members only ever see their own bookings, whatever the query says.
	if !sess.Admin() {
		f.HouseholdID = sess.HouseholdID
	}

	bs, err := s.Engine.List(r.Context(), f)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	out := make([]bookingDTO, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingDTO(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeEngineError maps the engine's typed errors onto response codes. The
// forbidden case deliberately answers like not-found so a caller can't probe
// which booking ids exist under other households.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, booking.ErrOutsideEnrollmentWindow):
		writeError(w, http.StatusBadRequest, "outside_enrollment_window",
			"bookings are only allowed from the 1st to the 5th of the month")
	case errors.Is(err, booking.ErrUnknownSlotWindow):
		writeError(w, http.StatusBadRequest, "unknown_slot_window", "slot window is not offered")
	case errors.Is(err, booking.ErrDuplicateBookingForPeriod):
		writeError(w, http.StatusConflict, "duplicate_booking_for_period",
			"you already have a booking for this month")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", "this booking can't be changed")
	case errors.Is(err, booking.ErrPastSlotNotCancellable):
		writeError(w, http.StatusConflict, "past_slot_not_cancellable",
			"past bookings can no longer be cancelled")
	case errors.Is(err, booking.ErrForbidden), errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "booking not found")
	case errors.Is(err, booking.ErrStoreUnavailable), errors.Is(err, catalog.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "temporarily unavailable, try again")
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger().Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "internal error")
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	slog.Info("listening", "addr", addr)
	return srv.ListenAndServe()
}
