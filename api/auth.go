/*
auth.go - Bearer-token sessions

PURPOSE:
  Login returns a signed HS256 token whose subject is the username. Every
  /api route except /api/auth/* requires it. The middleware rebuilds a
  timeoff.Session from the claims and the chi request id.

SEE ALSO:
  - server.go: Where the middleware is mounted
  - timeoff/session.go: Session
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/timeoff"
)

// DefaultTokenTTL is used when no TTL is configured.
const DefaultTokenTTL = 12 * time.Hour

// Claims are the token claims.
type Claims struct {
	jwt.RegisteredClaims
	Locale string `json:"locale,omitempty"`
}

// TokenIssuer signs and checks session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer requires a non-empty secret.
func NewTokenIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the session.
func (ti *TokenIssuer) Issue(sess timeoff.Session) (string, time.Time, error) {
	now := ti.now()
	expires := now.Add(ti.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(sess.Username),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Locale: sess.Locale,
	})
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates a token and returns its session.
func (ti *TokenIssuer) Parse(tokenString string) (timeoff.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return ti.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return timeoff.Session{}, fmt.Errorf("%w: %v", generic.ErrInvalidCredentials, err)
	}
	if !token.Valid || claims.Subject == "" {
		return timeoff.Session{}, generic.ErrInvalidCredentials
	}
	return timeoff.Session{Username: generic.Username(claims.Subject), Locale: claims.Locale}, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type sessionKey struct{}

// RequireSession rejects requests without a valid bearer token.
func (ti *TokenIssuer) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Missing Authorization header", nil)
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "Invalid Authorization header format (expected 'Bearer <token>')", nil)
			return
		}

		sess, err := ti.Parse(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}
		sess = sess.WithRequestID(middleware.GetReqID(r.Context()))
		if loc := r.URL.Query().Get("locale"); loc != "" {
			sess.Locale = loc
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(ctx context.Context) (timeoff.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(timeoff.Session)
	return sess, ok
}
