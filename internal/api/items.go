package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/store"
)

// ItemsHandler handles item endpoints. Every call goes through the
// lifecycle service, which owns validation and access checks.
type ItemsHandler struct {
	Items *lifecycle.Service
}

type statusRequest struct {
	Status string `json:"status"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

// Mine handles GET /api/items/my.
func (h *ItemsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	if actor == nil {
		writeServiceError(w, r, lifecycle.ErrUnauthenticated)
		return
	}
	h.list(w, r, actor.ID)
}

func (h *ItemsHandler) list(w http.ResponseWriter, r *http.Request, reportedBy string) {
	f, fields := store.ItemFilterFromQuery(r.URL.Query())
	if len(fields) > 0 {
		jsonValidation(w, fields)
		return
	}
	f.ReportedBy = reportedBy

	page, err := h.Items.List(r.Context(), f, ActorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := ActorFrom(r.Context())
	item, err := h.Items.Create(r.Context(), req, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("item created", "user", actor.Email, "item", item.ID, "status", item.Status)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Items.Get(r.Context(), r.PathValue("id"), ActorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := ActorFrom(r.Context())
	item, err := h.Items.Update(r.Context(), r.PathValue("id"), req, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("item updated", "user", actor.Email, "item", item.ID, "status", item.Status)
	jsonResponse(w, http.StatusOK, item)
}

// UpdateStatus handles PUT /api/items/{id}/status.
func (h *ItemsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := ActorFrom(r.Context())
	item, err := h.Items.ApplyTransition(r.Context(), r.PathValue("id"), req.Status, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("item status changed", "user", actor.Email, "item", item.ID, "status", item.Status)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor := ActorFrom(r.Context())
	if err := h.Items.Delete(r.Context(), id, actor); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("item deleted", "user", actor.Email, "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image. The photo is sent as the
// "image" field of a multipart form.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	limit := h.Items.Images.MaxBytes
	if limit <= 0 {
		limit = imaging.DefaultMaxBytes
	}
	// Leave room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	id := r.PathValue("id")
	actor := ActorFrom(r.Context())
	if err := h.Items.SetImage(r.Context(), id, file, actor); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("item image uploaded", "user", actor.Email, "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Items.Image(r.Context(), r.PathValue("id"), ActorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}
