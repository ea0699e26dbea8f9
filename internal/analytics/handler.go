// AngelaMos | 2026
// handler.go

package analytics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the analytics routes. requirePro gates the workbook
// export only.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, syncUser, requirePro func(http.Handler) http.Handler,
) {
	r.Route("/analytics", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(syncUser)
		r.Use(middleware.NoStore)

		r.Get("/retention", serve(h.service.Retention))
		r.Get("/subject-progress", serve(h.service.SubjectProgress))
		r.Get("/heatmap", serve(h.service.Heatmap))
		r.Get("/time-spent", serve(h.service.TimeSpent))
		r.Get("/review-intervals", serve(h.service.ReviewIntervals))
		r.With(requirePro).Get("/export", h.Export)
	})
}

// serve parses the filter before calling fetch so a bad query never reaches
// the database.
func serve[T any](
	fetch func(ctx context.Context, userID string, f Filter) (T, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := ParseFilter(r.URL.Query())
		if err != nil {
			core.JSONError(w, err)
			return
		}

		result, err := fetch(r.Context(), middleware.GetUserID(r.Context()), filter)
		if err != nil {
			core.InternalServerError(w, err)
			return
		}

		core.OK(w, result)
	}
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	report, err := h.service.Report(r.Context(), middleware.GetUserID(r.Context()), filter)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	buf, err := WriteWorkbook(report)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	filename := fmt.Sprintf("flashdeck-analytics-%s.xlsx", time.Now().UTC().Format(dateLayout))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
