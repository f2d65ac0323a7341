package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quickbills/billpay-api/internal/middleware"
	"github.com/quickbills/billpay-api/internal/pkg/errorhandler"
	"github.com/quickbills/billpay-api/internal/pkg/response"
)

// Handler handles admin HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates admin handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Refund handles POST /admin/transactions/{reference}/refund
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	var req RefundRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	// Get client IP
	ip := r.Header.Get("X-Real-IP")
	if ip == "" {
		ip = r.RemoteAddr
	}

	result, err := h.service.Refund(r.Context(), middleware.GetUserID(r.Context()), reference, req, RequestMeta{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, reference, "admin refund")
		return
	}

	response.Created(w, result)
}

// Transaction handles GET /admin/transactions/{reference}
func (h *Handler) Transaction(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	detail, err := h.service.Transaction(r.Context(), reference)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, reference, "admin transaction detail")
		return
	}

	response.OK(w, detail)
}

// ResellerBalance handles GET /admin/reseller/balance
func (h *Handler) ResellerBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.ResellerBalance(r.Context())
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, "", "reseller balance")
		return
	}

	response.OK(w, balance)
}

// Dashboard handles GET /admin/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, "", "admin dashboard")
		return
	}

	response.OK(w, stats)
}

// AuditLogs handles GET /admin/audit/logs
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	filter := AuditFilter{
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entity_type"),
		Limit:      limit,
		Offset:     offset,
	}

	logs, total, err := h.service.ListAuditLogs(r.Context(), filter)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, "", "audit logs")
		return
	}

	response.OK(w, map[string]interface{}{
		"items": logs,
		"total": total,
	})
}

// Routes returns admin router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())

	r.Get("/dashboard", h.Dashboard)
	r.Get("/reseller/balance", h.ResellerBalance)
	r.Get("/audit/logs", h.AuditLogs)

	r.Route("/transactions/{reference}", func(r chi.Router) {
		r.Get("/", h.Transaction)
		r.Post("/refund", h.Refund)
	})

	return r
}
