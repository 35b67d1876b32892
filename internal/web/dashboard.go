package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// statusCount is one tile of the dashboard.
type statusCount struct {
	Status string
	Count  int
}

// Dashboard handles GET /.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor := webActor(r.Context())

	counts, err := store.CountItemsByStatus(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to count items for dashboard", "error", err)
	}
	tiles := make([]statusCount, 0, len(model.ItemStatuses))
	for _, status := range model.ItemStatuses {
		tiles = append(tiles, statusCount{Status: status, Count: counts[status]})
	}

	var recent, mine []model.Item
	if page, err := s.Items.List(r.Context(), store.ItemFilter{Limit: 5}, actor); err != nil {
		slog.Error("failed to list recent items", "error", err)
	} else {
		recent = page.Items
	}
	if page, err := s.Items.List(r.Context(), store.ItemFilter{Limit: 5, ReportedBy: actor.ID}, actor); err != nil {
		slog.Error("failed to list own items", "error", err)
	} else {
		mine = page.Items
	}

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		Counts []statusCount
		Recent []model.Item
		Mine   []model.Item
	}{
		PageData: pageData(r, "Overview"),
		Counts:   tiles,
		Recent:   recent,
		Mine:     mine,
	})
}
