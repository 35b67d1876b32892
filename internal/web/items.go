package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// itemsPage is the data of the list pages.
type itemsPage struct {
	PageData
	Filter     store.ItemFilter
	Items      []model.Item
	Pagination lifecycle.Pagination
	Mine       bool
	Categories []string
	Statuses   []string
	PrevURL    string
	NextURL    string
}

// itemForm is the data of the report form.
type itemForm struct {
	PageData
	Input        lifecycle.ItemInput
	ReportedDate string
	Categories   []string
}

// itemDetail is the data of the detail page.
type itemDetail struct {
	PageData
	Item       *model.Item
	Input      model.ItemDetails
	CanEdit    bool
	Offered    []string
	Categories []string
}

// ItemsPage handles GET /items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	s.renderList(w, r, false)
}

// MyItemsPage handles GET /items/my.
func (s *Server) MyItemsPage(w http.ResponseWriter, r *http.Request) {
	s.renderList(w, r, true)
}

func (s *Server) renderList(w http.ResponseWriter, r *http.Request, mine bool) {
	actor := webActor(r.Context())
	title, base := "All items", "/items"
	if mine {
		title, base = "My items", "/items/my"
	}

	data := &itemsPage{
		PageData:   pageData(r, title),
		Mine:       mine,
		Categories: model.ItemCategories,
		Statuses:   model.ItemStatuses,
	}

	f, errs := store.ItemFilterFromQuery(r.URL.Query())
	data.Filter = f
	if len(errs) > 0 {
		data.Errors = (&lifecycle.ValidationError{Fields: errs}).Details()
		s.Templates.RenderStatus(w, http.StatusBadRequest, "items.html", data)
		return
	}
	if mine {
		f.ReportedBy = actor.ID
	}

	page, err := s.Items.List(r.Context(), f, actor)
	if err != nil {
		var verr *lifecycle.ValidationError
		if errors.As(err, &verr) {
			data.Errors = verr.Details()
			s.Templates.RenderStatus(w, http.StatusBadRequest, "items.html", data)
			return
		}
		s.serviceError(w, r, err)
		return
	}

	data.Items = page.Items
	data.Pagination = page.Pagination
	if p := page.Pagination; p.Page > 1 {
		prev := f
		prev.ReportedBy = ""
		prev.Page = p.Page - 1
		data.PrevURL = pageURL(base, prev)
	}
	if p := page.Pagination; p.Page < p.Pages {
		next := f
		next.ReportedBy = ""
		next.Page = p.Page + 1
		data.NextURL = pageURL(base, next)
	}

	s.Templates.Render(w, "items.html", data)
}

func pageURL(base string, f store.ItemFilter) string {
	if q := f.Query().Encode(); q != "" {
		return base + "?" + q
	}
	return base
}

// ItemNewPage handles GET /items/new.
func (s *Server) ItemNewPage(w http.ResponseWriter, r *http.Request) {
	in := lifecycle.ItemInput{Status: r.URL.Query().Get("status")}
	if in.Status != model.ItemStatusFound {
		in.Status = model.ItemStatusLost
	}
	s.Templates.Render(w, "item_new.html", &itemForm{
		PageData:     pageData(r, "Report an item"),
		Input:        in,
		ReportedDate: time.Now().Format("2006-01-02T15:04"),
		Categories:   model.ItemCategories,
	})
}

// ItemCreateSubmit handles POST /items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	actor := webActor(r.Context())
	in := lifecycle.ItemInput{
		ItemDetails: detailsFromForm(r),
		Status:      r.FormValue("status"),
	}
	reported := strings.TrimSpace(r.FormValue("reported_date"))

	fail := func(errs []string) {
		s.Templates.RenderStatus(w, http.StatusBadRequest, "item_new.html", &itemForm{
			PageData:     PageData{Title: "Report an item", User: GetWebSession(r.Context()).User, Errors: errs},
			Input:        in,
			ReportedDate: reported,
			Categories:   model.ItemCategories,
		})
	}

	if reported != "" {
		t, err := time.ParseInLocation("2006-01-02T15:04", reported, time.Local)
		if err != nil {
			fail([]string{"Reported date is not a valid date"})
			return
		}
		in.ReportedDate = &t
	}

	item, err := s.Items.Create(r.Context(), in, actor)
	if err != nil {
		var verr *lifecycle.ValidationError
		if errors.As(err, &verr) {
			fail(verr.Details())
			return
		}
		s.serviceError(w, r, err)
		return
	}

	slog.Info("item created", "user", actor.Email, "item", item.ID, "status", item.Status)
	http.Redirect(w, r, "/items/"+item.ID, http.StatusSeeOther)
}

// ItemDetailPage handles GET /items/{id}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	item, err := s.Items.Get(r.Context(), r.PathValue("id"), webActor(r.Context()))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.renderDetail(w, r, http.StatusOK, item, item.Details(), nil)
}

func (s *Server) renderDetail(w http.ResponseWriter, r *http.Request, status int, item *model.Item, input model.ItemDetails, errs []string) {
	canEdit := lifecycle.CanMutate(item, webActor(r.Context()))
	data := &itemDetail{
		PageData:   pageData(r, item.Name),
		Item:       item,
		Input:      input,
		CanEdit:    canEdit,
		Categories: model.ItemCategories,
	}
	data.Errors = errs
	if canEdit {
		data.Offered = lifecycle.Offered(item.Status)
	}
	if msg := r.URL.Query().Get("ok"); msg != "" && status == http.StatusOK {
		data.Success = successMessages[msg]
	}
	s.Templates.RenderStatus(w, status, "item_detail.html", data)
}

var successMessages = map[string]string{
	"updated": "Item updated.",
	"status":  "Status changed.",
	"image":   "Photo uploaded.",
}

// ItemUpdateSubmit handles POST /items/{id}.
func (s *Server) ItemUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor := webActor(r.Context())
	in := lifecycle.ItemInput{ItemDetails: detailsFromForm(r)}

	item, err := s.Items.Update(r.Context(), id, in, actor)
	if err != nil {
		s.detailError(w, r, id, in.ItemDetails, err)
		return
	}

	slog.Info("item updated", "user", actor.Email, "item", item.ID, "status", item.Status)
	http.Redirect(w, r, "/items/"+item.ID+"?ok=updated", http.StatusSeeOther)
}

// ItemStatusSubmit handles POST /items/{id}/status.
func (s *Server) ItemStatusSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor := webActor(r.Context())

	item, err := s.Items.ApplyTransition(r.Context(), id, r.FormValue("status"), actor)
	if err != nil {
		s.detailError(w, r, id, model.ItemDetails{}, err)
		return
	}

	slog.Info("item status changed", "user", actor.Email, "item", item.ID, "status", item.Status)
	http.Redirect(w, r, "/items/"+item.ID+"?ok=status", http.StatusSeeOther)
}

// ItemDeleteSubmit handles POST /items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor := webActor(r.Context())

	if err := s.Items.Delete(r.Context(), id, actor); err != nil {
		s.serviceError(w, r, err)
		return
	}

	slog.Info("item deleted", "user", actor.Email, "item", id)
	http.Redirect(w, r, "/items/my", http.StatusSeeOther)
}

// ItemImageSubmit handles POST /items/{id}/image.
func (s *Server) ItemImageSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor := webActor(r.Context())

	limit := s.Items.Images.MaxBytes
	if limit <= 0 {
		limit = imaging.DefaultMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)
	if err := r.ParseMultipartForm(limit); err != nil {
		s.detailError(w, r, id, model.ItemDetails{}, &lifecycle.ValidationError{
			Fields: map[string]string{"image": "The photo is too large or the upload was incomplete"},
		})
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.detailError(w, r, id, model.ItemDetails{}, &lifecycle.ValidationError{
			Fields: map[string]string{"image": "Choose a photo to upload"},
		})
		return
	}
	defer file.Close()

	if err := s.Items.SetImage(r.Context(), id, file, actor); err != nil {
		s.detailError(w, r, id, model.ItemDetails{}, err)
		return
	}

	slog.Info("item image uploaded", "user", actor.Email, "item", id)
	http.Redirect(w, r, "/items/"+id+"?ok=image", http.StatusSeeOther)
}

// ItemImageGet handles GET /items/{id}/image (web route, cookie-authenticated).
func (s *Server) ItemImageGet(w http.ResponseWriter, r *http.Request) {
	data, mime, err := s.Items.Image(r.Context(), r.PathValue("id"), webActor(r.Context()))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}

// detailError re-renders the detail page for validation errors and falls
// back to serviceError otherwise. A zero input keeps the stored details in
// the edit form.
func (s *Server) detailError(w http.ResponseWriter, r *http.Request, id string, input model.ItemDetails, err error) {
	var verr *lifecycle.ValidationError
	if !errors.As(err, &verr) {
		s.serviceError(w, r, err)
		return
	}

	item, gerr := s.Items.Get(r.Context(), id, webActor(r.Context()))
	if gerr != nil {
		s.serviceError(w, r, gerr)
		return
	}
	if input == (model.ItemDetails{}) {
		input = item.Details()
	}
	s.renderDetail(w, r, http.StatusBadRequest, item, input, verr.Details())
}

// serviceError writes the response for a lifecycle error.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.Is(err, lifecycle.ErrForbidden):
		http.Error(w, "Only the person who reported this item or an administrator can change it.", http.StatusForbidden)
	case errors.Is(err, lifecycle.ErrNotFound):
		http.Error(w, "Item not found.", http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "Something went wrong.", http.StatusInternalServerError)
	}
}

func detailsFromForm(r *http.Request) model.ItemDetails {
	return model.ItemDetails{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Location:    r.FormValue("location"),
		ContactInfo: r.FormValue("contact_info"),
	}
}
