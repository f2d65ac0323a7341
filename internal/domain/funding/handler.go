package funding

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quickbills/billpay-api/internal/middleware"
	"github.com/quickbills/billpay-api/internal/pkg/errorhandler"
	"github.com/quickbills/billpay-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Initialize handles POST /funding/initialize-payment
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req InitializeRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	res, err := h.svc.Initialize(r.Context(), userID, req)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, "", "initialize payment")
		return
	}

	response.OK(w, res)
}

// Verify handles GET /funding/verify-payment/{reference}
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	reference := chi.URLParam(r, "reference")
	res, err := h.svc.Verify(r.Context(), userID, reference)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, reference, "verify payment")
		return
	}

	response.OK(w, res)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/initialize-payment", h.Initialize)
	r.Get("/verify-payment/{reference}", h.Verify)
	return r
}
