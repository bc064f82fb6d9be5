package payment_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-auction/internal/payments"
	"ms-auction/internal/utils"
)

type Handler struct {
	Service *payments.Service
}

func NewHandler(service *payments.Service) *Handler {
	return &Handler{Service: service}
}

// CreateCheckout returns the Stripe client secret and transfer reference for
// a pending buyer payment.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	details, err := h.Service.CreateCheckout(chi.URLParam(r, "payment_id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("checkout created", details))
}
