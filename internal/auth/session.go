package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// CookieName is the cookie holding the session token in the browser.
const CookieName = "token"

// Reasons a token is not accepted.
var (
	ErrNoToken  = errors.New("no token")
	ErrRevoked  = errors.New("token revoked")
	ErrInactive = errors.New("account no longer active")
)

// ErrLookup marks a session that could not be checked because the database
// failed. The token itself may be valid.
var ErrLookup = errors.New("session lookup failed")

// Session is a verified token together with the account it belongs to.
type Session struct {
	Token  string
	Claims *Claims
	User   *model.User
}

// TokenFromRequest returns the bearer token of r, falling back to the
// session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate verifies token and loads its account. The account's current
// role is used, not the one recorded in the token.
func Authenticate(ctx context.Context, db *sql.DB, secret, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		return nil, err
	}

	if claims.ID != "" {
		revoked, err := store.IsTokenRevoked(ctx, db, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("checking revocation: %w: %w", ErrLookup, err)
		}
		if revoked {
			return nil, ErrRevoked
		}
	}

	user, err := store.GetUser(ctx, db, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading account: %w: %w", ErrLookup, err)
	}
	if user == nil || user.DeletedAt != nil {
		return nil, ErrInactive
	}

	return &Session{Token: token, Claims: claims, User: user}, nil
}

// Revoke invalidates the session's token until it expires.
func (s *Session) Revoke(ctx context.Context, db *sql.DB) error {
	if s.Claims.ID == "" || s.Claims.ExpiresAt == nil {
		return nil
	}
	return store.RevokeToken(ctx, db, s.Claims.ID, s.Claims.ExpiresAt.Time)
}
