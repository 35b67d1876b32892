package web

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/lifecycle"
)

type webContextKey string

const webSessionKey webContextKey = "websession"

// CookieAuthMiddleware validates the session cookie, checks token
// revocation and the account, and adds the session to the context.
func CookieAuthMiddleware(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie(auth.CookieName); err == nil {
				token = cookie.Value
			}

			sess, err := auth.Authenticate(r.Context(), db, secret, token)
			if errors.Is(err, auth.ErrLookup) {
				// The cookie stays; the session may be fine once the
				// database recovers.
				slog.Error("session lookup failed", "error", err, "remote", r.RemoteAddr)
				http.Error(w, "Something went wrong. Try again shortly.", http.StatusInternalServerError)
				return
			}
			if err != nil {
				if !errors.Is(err, auth.ErrNoToken) {
					slog.Info("session rejected", "error", err, "remote", r.RemoteAddr)
					clearAuthCookie(w)
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), webSessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// setAuthCookie stores the session token in the browser.
func setAuthCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookie clears the authentication cookie with consistent attributes.
func clearAuthCookie(w http.ResponseWriter) {
	setAuthCookie(w, "", -1)
}

// GetWebSession retrieves the session from web context.
func GetWebSession(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(webSessionKey).(*auth.Session)
	return sess
}

// webActor returns the lifecycle actor of the signed-in user.
func webActor(ctx context.Context) *lifecycle.Actor {
	sess := GetWebSession(ctx)
	if sess == nil {
		return nil
	}
	return &lifecycle.Actor{ID: sess.User.ID, Email: sess.User.Email, Role: sess.User.Role}
}

// pageData returns the base page data for the signed-in user.
func pageData(r *http.Request, title string) PageData {
	pd := PageData{Title: title}
	if sess := GetWebSession(r.Context()); sess != nil {
		pd.User = sess.User
	}
	return pd
}
