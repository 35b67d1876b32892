package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// UsersPage handles GET /users (admin only).
func (s *Server) UsersPage(w http.ResponseWriter, r *http.Request) {
	pd := pageData(r, "Users")
	pd.Error = r.URL.Query().Get("error")
	pd.Success = r.URL.Query().Get("ok")
	s.renderUsers(w, r, http.StatusOK, pd)
}

func (s *Server) renderUsers(w http.ResponseWriter, r *http.Request, status int, pd PageData) {
	users, err := store.ListUsers(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		pd.Error = "Could not load users."
	}

	s.Templates.RenderStatus(w, status, "users.html", &struct {
		PageData
		Users []model.User
		Roles []string
	}{
		PageData: pd,
		Users:    users,
		Roles:    []string{model.RoleUser, model.RoleAdmin},
	})
}

// usersRedirect returns to the users page with a message.
func usersRedirect(w http.ResponseWriter, r *http.Request, key, msg string) {
	http.Redirect(w, r, "/users?"+url.Values{key: {msg}}.Encode(), http.StatusSeeOther)
}

// UserCreateSubmit handles POST /users (admin only).
func (s *Server) UserCreateSubmit(w http.ResponseWriter, r *http.Request) {
	sess := GetWebSession(r.Context())

	email := r.FormValue("email")
	name := r.FormValue("name")
	password := r.FormValue("password")
	role := r.FormValue("role")

	fields := model.ValidateAccount(email, name, password)
	if !model.ValidRole(role) {
		fields["role"] = "Role must be admin or user"
	}
	if len(fields) > 0 {
		pd := pageData(r, "Users")
		pd.Errors = (&lifecycle.ValidationError{Fields: fields}).Details()
		s.renderUsers(w, r, http.StatusBadRequest, pd)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	user, err := store.CreateUser(r.Context(), s.DB, email, name, hash, role)
	if err != nil {
		slog.Warn("failed to create user", "error", err)
		usersRedirect(w, r, "error", "An account with this email already exists.")
		return
	}

	slog.Info("user created", "user", sess.User.Email, "new_user", user.Email, "role", user.Role)
	usersRedirect(w, r, "ok", "Account created for "+user.Email+".")
}

// UserResetPasswordSubmit handles POST /users/{id}/password (admin only).
func (s *Server) UserResetPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	sess := GetWebSession(r.Context())
	id := r.PathValue("id")

	newPassword := r.FormValue("new_password")
	if err := model.ValidatePassword(newPassword); err != nil {
		usersRedirect(w, r, "error", "The new password must be at least 8 characters.")
		return
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), s.DB, id, hash); err != nil {
		s.userError(w, r, err)
		return
	}

	slog.Info("user password reset", "user", sess.User.Email, "target_user", id)
	usersRedirect(w, r, "ok", "Password reset.")
}

// UserUpdateRoleSubmit handles POST /users/{id}/role (admin only).
func (s *Server) UserUpdateRoleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := GetWebSession(r.Context())
	id := r.PathValue("id")
	role := r.FormValue("role")

	if !model.ValidRole(role) {
		usersRedirect(w, r, "error", "Unknown role.")
		return
	}
	if id == sess.User.ID && role != model.RoleAdmin {
		usersRedirect(w, r, "error", "You cannot remove your own admin role.")
		return
	}

	if err := store.UpdateUserRole(r.Context(), s.DB, id, role); err != nil {
		s.userError(w, r, err)
		return
	}

	slog.Info("user role updated", "user", sess.User.Email, "target_user", id, "new_role", role)
	usersRedirect(w, r, "ok", "Role updated.")
}

// UserDeleteSubmit handles POST /users/{id}/delete (admin only).
func (s *Server) UserDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	sess := GetWebSession(r.Context())
	id := r.PathValue("id")

	if id == sess.User.ID {
		usersRedirect(w, r, "error", "You cannot delete your own account.")
		return
	}

	if err := store.DeleteUser(r.Context(), s.DB, id); err != nil {
		s.userError(w, r, err)
		return
	}

	slog.Info("user deleted", "user", sess.User.Email, "deleted_user", id)
	usersRedirect(w, r, "ok", "Account deleted.")
}

func (s *Server) userError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		usersRedirect(w, r, "error", "That account no longer exists.")
		return
	}
	slog.Error("user update failed", "path", r.URL.Path, "error", err)
	http.Error(w, "Something went wrong.", http.StatusInternalServerError)
}

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "settings.html", &PageData{
		Title: "Account",
		User:  GetWebSession(r.Context()).User,
	})
}

// SettingsSubmit handles POST /settings (change own password).
func (s *Server) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	user := GetWebSession(r.Context()).User

	render := func(status int, errMsg, success string) {
		s.Templates.RenderStatus(w, status, "settings.html", &PageData{
			Title:   "Account",
			User:    user,
			Error:   errMsg,
			Success: success,
		})
	}

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")

	if currentPassword == "" || newPassword == "" {
		render(http.StatusBadRequest, "Enter your current and new password.", "")
		return
	}
	if !auth.CheckPassword(currentPassword, user.PasswordHash) {
		render(http.StatusBadRequest, "The current password is wrong.", "")
		return
	}
	if err := model.ValidatePassword(newPassword); err != nil {
		render(http.StatusBadRequest, "The new password must be at least 8 characters.", "")
		return
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		render(http.StatusInternalServerError, "Could not save the password.", "")
		return
	}
	if err := store.UpdateUserPassword(r.Context(), s.DB, user.ID, hash); err != nil {
		slog.Error("failed to update password", "error", err)
		render(http.StatusInternalServerError, "Could not save the password.", "")
		return
	}

	slog.Info("user changed own password", "user", user.Email)
	render(http.StatusOK, "", "Password changed.")
}
