package purchase

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

// Airtime handles POST /transactions/airtime
func (h *Handler) Airtime(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req AirtimeRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	result, err := h.svc.PurchaseAirtime(r.Context(), userID, req)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, "", "purchase airtime")
		return
	}

	response.OK(w, result)
}

// Data handles POST /transactions/data
func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req DataRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	result, err := h.svc.PurchaseData(r.Context(), userID, req)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, "", "purchase data")
		return
	}

	response.OK(w, result)
}

// Electricity handles POST /transactions/electricity
func (h *Handler) Electricity(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req ElectricityRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	result, err := h.svc.PurchaseElectricity(r.Context(), userID, req)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, "", "purchase electricity")
		return
	}

	response.OK(w, result)
}

// TV handles POST /transactions/tv
func (h *Handler) TV(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req TVRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	result, err := h.svc.PurchaseTV(r.Context(), userID, req)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, err, "", "purchase tv")
		return
	}

	response.OK(w, result)
}

// RegisterRoutes adds purchase routes to a router that already enforces auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/airtime", h.Airtime)
	r.Post("/data", h.Data)
	r.Post("/electricity", h.Electricity)
	r.Post("/tv", h.TV)
}
