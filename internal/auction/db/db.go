package db

import (
	"context"

	"ms-auction/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- SESSIONS ----------------

func (d *DB) GetSession(id string) (*models.AuctionSession, error) {
	var session models.AuctionSession
	err := d.Bun.NewSelect().
		Model(&session).
		Where("session_id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (d *DB) CreateSession(session models.AuctionSession) error {
	_, err := d.Bun.NewInsert().Model(&session).Exec(context.Background())
	return err
}

// UpdateSession persists the lifecycle fields: status, schedule and the
// closed/settled timestamps.
func (d *DB) UpdateSession(session models.AuctionSession) error {
	_, err := d.Bun.NewUpdate().
		Model(&session).
		Column("status", "start_at", "end_at", "closed_at", "settled_at").
		Where("session_id = ?", session.SessionID).
		Exec(context.Background())
	return err
}

// UpdateSessionEndAt extends a session deadline (anti-sniping). Callers run
// it only after the lot CAS has committed, so an accepted bid's extension is
// never recorded ahead of the bid itself.
func (d *DB) UpdateSessionEndAt(session *models.AuctionSession) error {
	_, err := d.Bun.NewUpdate().
		Model(session).
		Column("end_at").
		Where("session_id = ?", session.SessionID).
		Exec(context.Background())
	return err
}

// ---------------- LOTS ----------------

func (d *DB) GetLot(lotID string) (*models.SessionLot, error) {
	var lot models.SessionLot
	err := d.Bun.NewSelect().
		Model(&lot).
		Where("lot_id = ?", lotID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (d *DB) ListLots(sessionID string) ([]models.SessionLot, error) {
	var lots []models.SessionLot
	err := d.Bun.NewSelect().
		Model(&lots).
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (d *DB) CountLots(sessionID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.SessionLot)(nil)).
		Where("session_id = ?", sessionID).
		Count(context.Background())
}

func (d *DB) CreateLot(lot models.SessionLot) error {
	_, err := d.Bun.NewInsert().Model(&lot).Exec(context.Background())
	return err
}

// CompareAndSwapLot is the conditional write behind every bid acceptance: the
// update applies only if the lot's version still equals what the caller read.
// Zero rows affected means another bid interleaved first.
func (d *DB) CompareAndSwapLot(lot *models.SessionLot, expectedVersion int64) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model(lot).
		Column("current_highest_bid", "current_winner_id", "bid_count", "version").
		Where("lot_id = ?", lot.LotID).
		Where("version = ?", expectedVersion).
		Exec(context.Background())
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
