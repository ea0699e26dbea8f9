// AngelaMos | 2026
// handler.go

package subscription

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/middleware"
)

type Handler struct {
	service  *Service
	currency string
}

func NewHandler(service *Service, currency string) *Handler {
	return &Handler{service: service, currency: currency}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Get("/subscription/plans", h.GetPlans)

	r.Route("/subscription", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.NoStore)

		r.Get("/status", h.GetStatus)
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetStatus(
		r.Context(),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, status)
}

func (h *Handler) GetPlans(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		currency = h.currency
	}

	catalog := Catalog(currency)
	if catalog == nil {
		core.BadRequest(w, "unsupported currency")
		return
	}

	core.OK(w, catalog)
}
