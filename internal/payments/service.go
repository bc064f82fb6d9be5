package payments

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"ms-auction/internal/errs"
	"ms-auction/internal/logger"
	"ms-auction/internal/models"
)

var decimalHundred = decimal.NewFromInt(100)

// InitStripe initializes the Stripe API with the secret key.
func InitStripe() {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
}

type PaymentStore interface {
	GetPayment(paymentID string) (*models.Payment, error)
	UpdatePaymentIntent(paymentID, intentID string) error
}

// Service turns a PENDING buyer payment into something payable: a Stripe
// payment intent plus a QR-encoded transfer reference. Actual money movement
// stays with the payment gateway.
type Service struct {
	DB     PaymentStore
	Logger *logger.Logger
}

func NewService(db PaymentStore, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

type CheckoutDetails struct {
	PaymentID    string `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
	Reference    string `json:"reference"`
	ReferenceQR  string `json:"reference_qr"` // base64 PNG
}

// CreateCheckout creates (or reuses) a Stripe payment intent for the buyer
// obligation and attaches the transfer reference QR.
func (s *Service) CreateCheckout(paymentID string) (*CheckoutDetails, error) {
	payment, err := s.DB.GetPayment(paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("payment", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("load payment %s: %w", paymentID, err)
	}
	if payment.Status != models.PaymentPending {
		return nil, errs.BusinessRulef("cannot create checkout for a payment with status %s", payment.Status)
	}

	intent, err := s.ensureIntent(payment)
	if err != nil {
		return nil, err
	}

	reference := "AUCTION-" + payment.PaymentID
	qr, err := referenceQR(reference)
	if err != nil {
		s.Logger.Warn("PAYMENT", fmt.Sprintf("failed to generate reference QR for %s: %v", paymentID, err))
	}

	return &CheckoutDetails{
		PaymentID:    payment.PaymentID,
		ClientSecret: intent.ClientSecret,
		Reference:    reference,
		ReferenceQR:  qr,
	}, nil
}

func (s *Service) ensureIntent(payment *models.Payment) (*stripe.PaymentIntent, error) {
	if payment.StripeIntentID != "" {
		intent, err := paymentintent.Get(payment.StripeIntentID, nil)
		if err == nil && intent.Status != stripe.PaymentIntentStatusCanceled {
			return intent, nil
		}
		s.Logger.Warn("PAYMENT", fmt.Sprintf("existing intent %s unusable, creating a new one", payment.StripeIntentID))
	}

	// Stripe wants the smallest currency unit.
	amountInCents := payment.TotalAmount.Mul(decimalHundred).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String("usd"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("payment_id", payment.PaymentID)
	params.AddMetadata("lot_id", payment.LotID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	if err := s.DB.UpdatePaymentIntent(payment.PaymentID, intent.ID); err != nil {
		s.Logger.Error("PAYMENT", fmt.Sprintf("failed to store intent id for payment %s: %v", payment.PaymentID, err))
	}

	s.Logger.Info("PAYMENT", fmt.Sprintf("created intent %s for payment %s", intent.ID, payment.PaymentID))
	return intent, nil
}

func referenceQR(reference string) (string, error) {
	png, err := qrcode.Encode(reference, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
