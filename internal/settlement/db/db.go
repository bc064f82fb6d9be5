package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-auction/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// GetPaymentByLot is the settlement idempotency check: a payment row for the
// lot means the lot is already settled. Returns (nil, nil) when absent.
func (d *DB) GetPaymentByLot(lotID string) (*models.Payment, error) {
	var payment models.Payment
	err := d.Bun.NewSelect().
		Model(&payment).
		Where("lot_id = ?", lotID).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (d *DB) GetPayoutByLot(lotID string) (*models.Payout, error) {
	var payout models.Payout
	err := d.Bun.NewSelect().
		Model(&payout).
		Where("lot_id = ?", lotID).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (d *DB) CreatePayment(payment models.Payment) error {
	_, err := d.Bun.NewInsert().Model(&payment).Exec(context.Background())
	return err
}

func (d *DB) CreatePayout(payout models.Payout) error {
	_, err := d.Bun.NewInsert().Model(&payout).Exec(context.Background())
	return err
}

func (d *DB) GetPayment(paymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := d.Bun.NewSelect().
		Model(&payment).
		Where("payment_id = ?", paymentID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (d *DB) UpdatePaymentIntent(paymentID, intentID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Payment)(nil)).
		Set("stripe_intent_id = ?", intentID).
		Where("payment_id = ?", paymentID).
		Exec(context.Background())
	return err
}
