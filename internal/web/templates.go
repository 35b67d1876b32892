package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/model"
	webembed "github.com/erazemk/najdeno/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast": model.RoleAtLeast,
		"roleName": func(role string) string {
			switch role {
			case model.RoleAdmin:
				return "Administrator"
			case model.RoleUser:
				return "User"
			default:
				return role
			}
		},
		"statusName": statusName,
		"actionName": func(status string) string {
			switch status {
			case model.ItemStatusFound:
				return "Mark as found"
			case model.ItemStatusClaimed:
				return "Mark as claimed"
			case model.ItemStatusReturned:
				return "Mark as returned"
			case model.ItemStatusLost:
				return "Mark as lost again"
			default:
				return status
			}
		},
		"date": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				return v.Local().Format("2 Jan 2006 15:04")
			case *time.Time:
				if v == nil {
					return ""
				}
				return v.Local().Format("2 Jan 2006 15:04")
			}
			return ""
		},
		"inputDate": func(t time.Time) string {
			return t.Local().Format("2006-01-02T15:04")
		},
		"lower": strings.ToLower,
	}
}

func statusName(status string) string {
	switch status {
	case model.ItemStatusLost:
		return "Lost"
	case model.ItemStatusFound:
		return "Found"
	case model.ItemStatusClaimed:
		return "Claimed"
	case model.ItemStatusReturned:
		return "Returned"
	default:
		return status
	}
}

// pages lists every page template. Each is parsed together with the layout.
var pages = []string{
	"login.html",
	"register.html",
	"dashboard.html",
	"items.html",
	"item_new.html",
	"item_detail.html",
	"users.html",
	"settings.html",
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.Templates()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data and a 200 status.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *model.User
	Error   string
	Errors  []string
	Success string
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB        *sql.DB
	Templates *Templates
	JWTSecret string
	TokenTTL  time.Duration
	Items     *lifecycle.Service
}
