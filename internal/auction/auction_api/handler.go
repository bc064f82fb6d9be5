package auction_api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-auction/internal/auction"
	"ms-auction/internal/auth"
	"ms-auction/internal/errs"
	"ms-auction/internal/models"
	"ms-auction/internal/utils"
)

// Handler exposes the session lifecycle. Every mutating endpoint requires a
// staff capability; reads are open to any authenticated caller.
type Handler struct {
	Service *auction.SessionService
}

func NewHandler(service *auction.SessionService) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if !auth.IsStaff(r.Context()) {
		utils.WriteError(w, errs.Unauthorizedf("staff capability required"))
		return
	}

	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validationf("invalid request body: %v", err))
		return
	}

	session, err := h.Service.CreateSession(req, auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("session created", session))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.Service.GetSession(chi.URLParam(r, "session_id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("session", session))
}

func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.Service.ListLots(chi.URLParam(r, "session_id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("lots", lots))
}

func (h *Handler) AddLot(w http.ResponseWriter, r *http.Request) {
	if !auth.IsStaff(r.Context()) {
		utils.WriteError(w, errs.Unauthorizedf("staff capability required"))
		return
	}

	var req models.AddLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validationf("invalid request body: %v", err))
		return
	}

	lot, err := h.Service.AddLot(chi.URLParam(r, "session_id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("lot added", lot))
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	if !auth.IsStaff(r.Context()) {
		utils.WriteError(w, errs.Unauthorizedf("staff capability required"))
		return
	}

	var req models.ScheduleSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validationf("invalid request body: %v", err))
		return
	}

	session, err := h.Service.Schedule(chi.URLParam(r, "session_id"), req.StartAt, req.EndAt)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("session scheduled", session))
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.Open, "session opened")
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.Pause, "session paused")
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.Resume, "session resumed")
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.Close, "session closed")
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.Cancel, "session canceled")
}

func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	if !auth.IsStaff(r.Context()) {
		utils.WriteError(w, errs.Unauthorizedf("staff capability required"))
		return
	}

	report, err := h.Service.Settle(chi.URLParam(r, "session_id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	status := http.StatusOK
	message := "session settled"
	if !report.Settled {
		// Partial settlement: the caller should retry after fixing the cause.
		status = http.StatusAccepted
		message = "settlement incomplete"
	}
	utils.WriteJSON(w, status, utils.SuccessResponse(message, report))
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, op func(string) (*models.AuctionSession, error), message string) {
	if !auth.IsStaff(r.Context()) {
		utils.WriteError(w, errs.Unauthorizedf("staff capability required"))
		return
	}

	session, err := op(chi.URLParam(r, "session_id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(message, session))
}
