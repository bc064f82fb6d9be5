package bid_api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-auction/internal/auth"
	"ms-auction/internal/bids"
	"ms-auction/internal/errs"
	"ms-auction/internal/models"
	"ms-auction/internal/utils"
)

type Handler struct {
	Engine *bids.Engine
}

func NewHandler(engine *bids.Engine) *Handler {
	return &Handler{Engine: engine}
}

// PlaceBid submits a bid on a lot for the authenticated bidder. A rejected
// bid carries the minimum acceptable amount so the client can re-offer
// without an extra round trip.
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var req models.PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validationf("invalid request body: %v", err))
		return
	}
	if !req.Amount.IsPositive() {
		utils.WriteError(w, errs.Validationf("amount must be positive"))
		return
	}

	result, err := h.Engine.PlaceBid(
		chi.URLParam(r, "session_id"),
		chi.URLParam(r, "lot_id"),
		auth.UserID(r.Context()),
		req.Amount,
		req.IdempotencyKey,
	)
	if err != nil {
		writeBidError(w, err)
		return
	}

	status := http.StatusCreated
	message := "bid accepted"
	if result.Replayed {
		status = http.StatusOK
		message = "bid already recorded"
	}
	utils.WriteJSON(w, status, utils.SuccessResponse(message, result))
}

// CancelBid withdraws the authenticated bidder's own bid and returns the
// lot's restored standing.
func (h *Handler) CancelBid(w http.ResponseWriter, r *http.Request) {
	result, err := h.Engine.CancelBid(
		chi.URLParam(r, "session_id"),
		chi.URLParam(r, "lot_id"),
		chi.URLParam(r, "bid_id"),
		auth.UserID(r.Context()),
	)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("bid withdrawn", result))
}

func (h *Handler) GetHighestBid(w http.ResponseWriter, r *http.Request) {
	result, err := h.Engine.GetHighestBid(chi.URLParam(r, "session_id"), chi.URLParam(r, "lot_id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("highest bid", result))
}

func (h *Handler) GetBidHistory(w http.ResponseWriter, r *http.Request) {
	includeInvalid := r.URL.Query().Get("include_invalid") == "true" && auth.IsStaff(r.Context())

	history, err := h.Engine.GetBidHistory(chi.URLParam(r, "session_id"), chi.URLParam(r, "lot_id"), includeInvalid)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("bid history", history))
}

// writeBidError is utils.WriteError plus the minimum_bid hint for too-low bids.
func writeBidError(w http.ResponseWriter, err error) {
	var ve *errs.ValidationError
	if errors.As(err, &ve) && !ve.MinimumBid.IsZero() {
		body := utils.ErrorResponse("bid rejected", err.Error())
		body.Data = map[string]string{"minimum_bid": ve.MinimumBid.String()}
		utils.WriteJSON(w, http.StatusBadRequest, body)
		return
	}
	utils.WriteError(w, err)
}
