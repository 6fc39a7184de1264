package session

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// CookieName carries the active-organization selection. The value is a signed
// token, never a bare organization id.
const CookieName = "comply_active_org"

// DefaultTTL matches the auth provider's default session length; the
// selection must never expire before the session it belongs to.
const DefaultTTL = 24 * time.Hour

var (
	ErrNoSelection      = errors.New("no active organization selected")
	ErrInvalidSelection = errors.New("invalid active organization selection")
)

// Store signs and verifies the active-organization cookie. The token binds
// the selection to the user id so one user's cookie is worthless to another.
type Store struct {
	signingKey []byte
	ttl        time.Duration
	secure     bool
}

// NewStore creates a cookie store with the given HMAC key.
func NewStore(signingKey []byte, ttl time.Duration) (*Store, error) {
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("session signing key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		signingKey: signingKey,
		ttl:        ttl,
		secure:     os.Getenv("SESSION_COOKIE_INSECURE") == "", // disable only for local dev
	}, nil
}

// NewStoreFromEnv reads SESSION_SIGNING_KEY and optional SESSION_TTL.
func NewStoreFromEnv() (*Store, error) {
	key := os.Getenv("SESSION_SIGNING_KEY")
	if key == "" {
		return nil, fmt.Errorf("SESSION_SIGNING_KEY is required")
	}
	ttl := DefaultTTL
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		ttl = parsed
	}
	return NewStore([]byte(key), ttl)
}

type selectionClaims struct {
	OrganizationID string `json:"org"`
	jwt.RegisteredClaims
}

// Set writes the selection cookie for the user.
func (s *Store) Set(w http.ResponseWriter, userID, orgID string) error {
	now := time.Now()
	claims := selectionClaims{
		OrganizationID: orgID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return fmt.Errorf("failed to sign selection token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the selected organization id for the user, or ErrNoSelection
// when the cookie is absent and ErrInvalidSelection when it fails
// verification or was minted for a different user.
func (s *Store) Read(r *http.Request, userID string) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNoSelection
	}

	var claims selectionClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSelection
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidSelection
	}
	if claims.Subject != userID || claims.OrganizationID == "" {
		return "", ErrInvalidSelection
	}
	return claims.OrganizationID, nil
}

// Clear removes the selection cookie.
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
