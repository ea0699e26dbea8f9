// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/middleware"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, syncUser func(http.Handler) http.Handler,
) {
	r.Route("/payments", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(syncUser)
		r.Use(middleware.NoStore)

		r.Post("/orders", h.CreateOrder)
		r.Get("/", h.List)
	})

	// Gateways sign their deliveries; no user session here.
	r.Post("/webhooks/{gateway:razorpay|stripe}", h.Webhook)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	ctx := r.Context()
	order, err := h.service.CreateOrder(ctx, middleware.GetUserID(ctx), middleware.GetUserEmail(ctx), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, order)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListPaymentsParams{
		UserID:   middleware.GetUserID(r.Context()),
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
	}

	payments, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	params.Normalize()
	core.Paginated(w, ToPaymentResponseList(payments), params.Page, params.PageSize, total)
}

// Webhook reads the raw body since signatures cover the exact bytes sent.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		core.BadRequest(w, "unreadable webhook body")
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), chi.URLParam(r, "gateway"), r.Header, body)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, result)
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
