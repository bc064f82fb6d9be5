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

func (d *DB) CreateBid(bid models.Bid) error {
	_, err := d.Bun.NewInsert().Model(&bid).Exec(context.Background())
	return err
}

func (d *DB) GetBid(bidID string) (*models.Bid, error) {
	var bid models.Bid
	err := d.Bun.NewSelect().
		Model(&bid).
		Where("bid_id = ?", bidID).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// GetBidByIdempotencyKey finds a prior bid from the same bidder on the same
// lot that used the given key. Returns (nil, nil) when there is none.
func (d *DB) GetBidByIdempotencyKey(lotID, bidderID, key string) (*models.Bid, error) {
	var bid models.Bid
	err := d.Bun.NewSelect().
		Model(&bid).
		Where("lot_id = ?", lotID).
		Where("bidder_id = ?", bidderID).
		Where("idempotency_key = ?", key).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (d *DB) UpdateBidStatus(bidID string, status models.BidStatus) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Bid)(nil)).
		Set("status = ?", status).
		Where("bid_id = ?", bidID).
		Exec(context.Background())
	return err
}

// MarkOutbidExcept demotes every live bid on the lot other than the given
// one. Keeps the at-most-one-WINNING invariant after each acceptance.
func (d *DB) MarkOutbidExcept(lotID, bidID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Bid)(nil)).
		Set("status = ?", models.BidOutbid).
		Where("lot_id = ?", lotID).
		Where("bid_id != ?", bidID).
		Where("status IN (?)", bun.In([]models.BidStatus{models.BidValid, models.BidWinning})).
		Exec(context.Background())
	return err
}

func (d *DB) GetWinningBid(lotID string) (*models.Bid, error) {
	var bid models.Bid
	err := d.Bun.NewSelect().
		Model(&bid).
		Where("lot_id = ?", lotID).
		Where("status = ?", models.BidWinning).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// HighestLiveBidExcept finds the best bid that would remain on the lot if the
// given bid were withdrawn. Returns (nil, nil) when none would remain.
func (d *DB) HighestLiveBidExcept(lotID, bidID string) (*models.Bid, error) {
	var bid models.Bid
	err := d.Bun.NewSelect().
		Model(&bid).
		Where("lot_id = ?", lotID).
		Where("bid_id != ?", bidID).
		Where("status != ?", models.BidInvalid).
		Order("amount DESC").
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// ListBidsByLot returns the lot's bid history, newest first.
func (d *DB) ListBidsByLot(lotID string, includeInvalid bool) ([]models.Bid, error) {
	var bids []models.Bid
	q := d.Bun.NewSelect().
		Model(&bids).
		Where("lot_id = ?", lotID).
		Order("placed_at DESC")
	if !includeInvalid {
		q = q.Where("status != ?", models.BidInvalid)
	}

	if err := q.Scan(context.Background()); err != nil {
		return nil, err
	}
	return bids, nil
}
