package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/model"
)

type contextKey string

const sessionKey contextKey = "session"

// AuthMiddleware verifies the request token (bearer header or cookie),
// rejects revoked tokens and deleted accounts, and adds the session to the
// context.
func AuthMiddleware(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := auth.Authenticate(r.Context(), db, secret, auth.TokenFromRequest(r))
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrNoToken):
					jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				case errors.Is(err, auth.ErrLookup):
					slog.Error("session lookup failed", "error", err, "remote", r.RemoteAddr)
					jsonError(w, http.StatusInternalServerError, "internal error")
				case errors.Is(err, auth.ErrRevoked), errors.Is(err, auth.ErrInactive):
					jsonError(w, http.StatusUnauthorized, "session is no longer valid")
				default:
					slog.Warn("token rejected", "error", err, "remote", r.RemoteAddr)
					jsonError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that checks if the user has at least the given role.
func RequireRole(minimum string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r.Context())
			if sess == nil {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !model.RoleAtLeast(sess.User.Role, minimum) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSession retrieves the verified session from the context.
func GetSession(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(sessionKey).(*auth.Session)
	return sess
}

// ActorFrom returns the actor for the lifecycle service, or nil when the
// request is not authenticated.
func ActorFrom(ctx context.Context) *lifecycle.Actor {
	sess := GetSession(ctx)
	if sess == nil {
		return nil
	}
	return &lifecycle.Actor{ID: sess.User.ID, Email: sess.User.Email, Role: sess.User.Role}
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
			"remote", r.RemoteAddr,
		)
	})
}
