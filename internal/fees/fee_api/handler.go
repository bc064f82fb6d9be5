package fee_api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ms-auction/internal/auth"
	"ms-auction/internal/errs"
	"ms-auction/internal/models"
	"ms-auction/internal/utils"
)

type FeeStore interface {
	GetActiveFee() (*models.TransactionFee, error)
	CreateFee(fee models.TransactionFee) error
}

// Handler manages the default fee configuration. GetActiveFee picks the
// newest active row, so creating a new configuration supersedes the old one
// without touching it.
type Handler struct {
	Store FeeStore
}

func NewHandler(store FeeStore) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) GetActiveFee(w http.ResponseWriter, r *http.Request) {
	fee, err := h.Store.GetActiveFee()
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if fee == nil {
		utils.WriteError(w, errs.NotFound("fee configuration", "active"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("active fee configuration", fee))
}

func (h *Handler) CreateFee(w http.ResponseWriter, r *http.Request) {
	if !auth.IsStaff(r.Context()) {
		utils.WriteError(w, errs.Unauthorizedf("staff capability required"))
		return
	}

	var req struct {
		BuyerPercentage  decimal.Decimal `json:"buyer_percentage"`
		SellerPercentage decimal.Decimal `json:"seller_percentage"`
		MinFee           decimal.Decimal `json:"min_fee"`
		MaxFee           decimal.Decimal `json:"max_fee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validationf("invalid request body: %v", err))
		return
	}
	if req.BuyerPercentage.IsNegative() || req.SellerPercentage.IsNegative() {
		utils.WriteError(w, errs.Validationf("fee percentages cannot be negative"))
		return
	}
	if req.MinFee.IsNegative() || req.MaxFee.IsNegative() {
		utils.WriteError(w, errs.Validationf("fee bounds cannot be negative"))
		return
	}

	fee := models.TransactionFee{
		FeeID:            uuid.NewString(),
		BuyerPercentage:  req.BuyerPercentage,
		SellerPercentage: req.SellerPercentage,
		MinFee:           req.MinFee,
		MaxFee:           req.MaxFee,
		Active:           true,
		CreatedAt:        time.Now(),
	}
	if err := h.Store.CreateFee(fee); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("fee configuration created", fee))
}
