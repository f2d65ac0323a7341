package reward

import (
	"errors"
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

// Convert handles POST /points/convert
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	result, err := h.svc.Convert(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotEnoughPoints) {
			response.BadRequest(w, "At least 100 points are required for conversion")
			return
		}
		errorhandler.HandleError(r.Context(), w, err, "", "convert points")
		return
	}

	response.OK(w, result)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/convert", h.Convert)
	return r
}
