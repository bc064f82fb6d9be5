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

// GetActiveFee returns the active default fee configuration, or (nil, nil)
// when none is configured (sessions must then carry full overrides).
func (d *DB) GetActiveFee() (*models.TransactionFee, error) {
	var fee models.TransactionFee
	err := d.Bun.NewSelect().
		Model(&fee).
		Where("active = ?", true).
		Order("created_at DESC").
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

func (d *DB) CreateFee(fee models.TransactionFee) error {
	_, err := d.Bun.NewInsert().Model(&fee).Exec(context.Background())
	return err
}
