package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	sc         *securecookie.SecureCookie
	households HouseholdStore
}

type ctxKey string

const sessionKey ctxKey = "session"

func NewStore(households HouseholdStore, hashKey, blockKey []byte) *Store {
	sc := securecookie.New(hashKey, blockKey)
	// keep cookie small and secure
	sc.MaxAge(int((14 * 24 * time.Hour).Seconds()))
	return &Store{sc: sc, households: households}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

// Register hashes the password and stores the household.
func (s *Store) Register(ctx context.Context, h Household, password string) (Household, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return Household{}, err
	}
	h.PasswordHash = hash
	if h.Role == "" {
		h.Role = RoleMember
	}
	h.CreatedAt = time.Now().UTC()
	if err := s.households.Create(ctx, h); err != nil {
		return Household{}, err
	}
	h.PasswordHash = ""
	return h, nil
}

func (s *Store) Authenticate(ctx context.Context, username, password string) (Household, error) {
	h, err := s.households.GetByUsername(ctx, username)
	if err != nil {
		return Household{}, ErrInvalidCredentials
	}
	if !CheckPassword(h.PasswordHash, password) {
		return Household{}, ErrInvalidCredentials
	}
	h.PasswordHash = ""
	return h, nil
}

// Session is the authenticated caller identity the request layer hands to
// the engine: who is asking, and with what role.
type Session struct {
	HouseholdID string
	Role        string
}

func (s Session) Admin() bool { return s.Role == RoleAdministrator }

const cookieName = "rationslots_session"

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, h Household) error {
	val := map[string]string{"hid": h.ID, "role": h.Role}
	encoded, err := s.sc.Encode(cookieName, val)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil, // ok for local http; secure in https
		MaxAge:   int((14 * 24 * time.Hour).Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	val := map[string]string{}
	if err := s.sc.Decode(cookieName, c.Value, &val); err != nil {
		return Session{}, false
	}
	if val["hid"] == "" {
		return Session{}, false
	}
	return Session{HouseholdID: val["hid"], Role: val["role"]}, true
}

// RequireAuth rejects unauthenticated requests with 401 and stashes the
// session in the request context for handlers.
func (s *Store) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.GetSession(r)
		if !ok {
			http.Error(w, `{"code":"unauthenticated"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin layers the administrator role check on top of RequireAuth.
func (s *Store) RequireAdmin(next http.Handler) http.Handler {
	return s.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		if !sess.Admin() {
			http.Error(w, `{"code":"forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey).(Session)
	return sess, ok
}
