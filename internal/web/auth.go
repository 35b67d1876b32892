package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

type accountForm struct {
	PageData
	Email string
	Name  string
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &accountForm{PageData: PageData{Title: "Sign in"}})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	fail := func(status int, msg string) {
		s.Templates.RenderStatus(w, status, "login.html", &accountForm{
			PageData: PageData{Title: "Sign in", Error: msg},
			Email:    email,
		})
	}

	if email == "" || password == "" {
		fail(http.StatusBadRequest, "Enter your email and password.")
		return
	}

	user, err := store.GetUserByEmail(r.Context(), s.DB, email)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		fail(http.StatusInternalServerError, "Sign in failed. Try again.")
		return
	}
	if user == nil || !auth.CheckPassword(password, user.PasswordHash) {
		slog.Warn("login failed", "email", store.NormalizeEmail(email), "remote", r.RemoteAddr)
		fail(http.StatusUnauthorized, "Wrong email or password.")
		return
	}

	if err := s.startSession(w, user); err != nil {
		slog.Error("failed to start session", "error", err)
		fail(http.StatusInternalServerError, "Sign in failed. Try again.")
		return
	}

	slog.Info("user logged in", "user", user.Email, "role", user.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterPage handles GET /register.
func (s *Server) RegisterPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "register.html", &accountForm{PageData: PageData{Title: "Create account"}})
}

// RegisterSubmit handles POST /register.
func (s *Server) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	name := strings.TrimSpace(r.FormValue("name"))
	password := r.FormValue("password")

	fail := func(status int, errs []string) {
		s.Templates.RenderStatus(w, status, "register.html", &accountForm{
			PageData: PageData{Title: "Create account", Errors: errs},
			Email:    email,
			Name:     name,
		})
	}

	if fields := model.ValidateAccount(email, name, password); len(fields) > 0 {
		fail(http.StatusBadRequest, (&lifecycle.ValidationError{Fields: fields}).Details())
		return
	}

	existing, err := store.GetUserByEmail(r.Context(), s.DB, email)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		fail(http.StatusInternalServerError, []string{"Registration failed. Try again."})
		return
	}
	if existing != nil {
		fail(http.StatusConflict, []string{"An account with this email already exists."})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fail(http.StatusInternalServerError, []string{"Registration failed. Try again."})
		return
	}
	user, err := store.CreateUser(r.Context(), s.DB, email, name, hash, model.RoleUser)
	if err != nil {
		slog.Error("failed to create user", "error", err)
		fail(http.StatusConflict, []string{"An account with this email already exists."})
		return
	}

	if err := s.startSession(w, user); err != nil {
		slog.Error("failed to start session", "error", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	slog.Info("user registered", "user", user.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	// Logging out must work with an expired or broken session, so the
	// cookie is checked here rather than by the middleware.
	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		if sess, err := auth.Authenticate(r.Context(), s.DB, s.JWTSecret, c.Value); err == nil {
			if err := sess.Revoke(r.Context(), s.DB); err != nil {
				slog.Error("failed to revoke token", "error", err)
			} else {
				slog.Info("user logged out", "user", sess.User.Email)
			}
		}
	}

	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) startSession(w http.ResponseWriter, user *model.User) error {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = auth.TokenExpiry
	}
	token, err := auth.GenerateToken(s.JWTSecret, ttl, user.ID, user.Email, user.Role)
	if err != nil {
		return err
	}
	setAuthCookie(w, token, int(ttl.Seconds()))
	return nil
}
