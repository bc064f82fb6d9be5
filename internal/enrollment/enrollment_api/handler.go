package enrollment_api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-auction/internal/auth"
	"ms-auction/internal/enrollment"
	"ms-auction/internal/errs"
	"ms-auction/internal/utils"
)

type Handler struct {
	Service *enrollment.Service
}

func NewHandler(service *enrollment.Service) *Handler {
	return &Handler{Service: service}
}

// Request enrolls the authenticated caller into a session as PENDING.
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Request(chi.URLParam(r, "session_id"), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("enrollment requested", result))
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	if !auth.IsStaff(r.Context()) {
		utils.WriteError(w, errs.Unauthorizedf("staff capability required"))
		return
	}

	var req struct {
		DepositPaid bool `json:"deposit_paid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validationf("invalid request body: %v", err))
		return
	}

	result, err := h.Service.Approve(chi.URLParam(r, "session_id"), chi.URLParam(r, "user_id"), req.DepositPaid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("enrollment approved", result))
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	if !auth.IsStaff(r.Context()) {
		utils.WriteError(w, errs.Unauthorizedf("staff capability required"))
		return
	}

	result, err := h.Service.Reject(chi.URLParam(r, "session_id"), chi.URLParam(r, "user_id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("enrollment rejected", result))
}
