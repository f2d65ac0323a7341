package transaction

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
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

// History handles GET /transactions/history?type=&status=&page=&limit=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	q := r.URL.Query()
	f := Filter{
		ProductType: ProductType(q.Get("type")),
		Status:      Status(q.Get("status")),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	if f.ProductType != "" && !f.ProductType.IsValid() {
		errorhandler.HandleError(r.Context(), w, ledger.NewValidationError("type", "unknown product type"), "", "transaction history")
		return
	}
	switch f.Status {
	case "", StatusPending, StatusCompleted, StatusFailed:
	default:
		errorhandler.HandleError(r.Context(), w, ledger.NewValidationError("status", "unknown status"), "", "transaction history")
		return
	}

	items, total, f, err := h.svc.History(r.Context(), userID, f)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, "", "transaction history")
		return
	}

	response.WithMeta(w, items, response.NewMeta(total, f.Page, f.Limit))
}

// Get handles GET /transactions/history/{reference}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	reference := chi.URLParam(r, "reference")
	t, err := h.svc.GetForUser(r.Context(), userID, reference)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, reference, "transaction detail")
		return
	}

	response.OK(w, t)
}

// RegisterRoutes adds history routes to a router that already enforces auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.History)
	r.Get("/history/{reference}", h.Get)
}
