package bids

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ms-auction/internal/errs"
	"ms-auction/internal/logger"
	"ms-auction/internal/models"
)

type SessionStore interface {
	GetSession(id string) (*models.AuctionSession, error)
	UpdateSessionEndAt(session *models.AuctionSession) error
	GetLot(lotID string) (*models.SessionLot, error)
	CompareAndSwapLot(lot *models.SessionLot, expectedVersion int64) (bool, error)
}

type BidStore interface {
	CreateBid(bid models.Bid) error
	GetBid(bidID string) (*models.Bid, error)
	GetBidByIdempotencyKey(lotID, bidderID, key string) (*models.Bid, error)
	UpdateBidStatus(bidID string, status models.BidStatus) error
	MarkOutbidExcept(lotID, bidID string) error
	GetWinningBid(lotID string) (*models.Bid, error)
	HighestLiveBidExcept(lotID, bidID string) (*models.Bid, error)
	ListBidsByLot(lotID string, includeInvalid bool) ([]models.Bid, error)
}

type EnrollmentStore interface {
	GetEnrollment(sessionID, userID string) (*models.Enrollment, error)
}

// Throttle limits how often one bidder may bid on one lot (anti-spam).
type Throttle interface {
	Allow(lotID, bidderID string) (bool, error)
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

const (
	TopicBidAccepted     = "auctionly.bid.accepted"
	TopicSessionExtended = "auctionly.session.extended"
)

// Engine accepts bids under concurrent contention. It holds no in-process
// state between calls: every invocation re-reads the lot and validates
// against that snapshot, and the store's version CAS decides races.
type Engine struct {
	Sessions    SessionStore
	Bids        BidStore
	Enrollments EnrollmentStore
	Throttle    Throttle
	Kafka       KafkaPublisher
	Logger      *logger.Logger
	Now         func() time.Time
}

func NewEngine(sessions SessionStore, bids BidStore, enrollments EnrollmentStore, throttle Throttle, kafka KafkaPublisher, log *logger.Logger) *Engine {
	return &Engine{
		Sessions:    sessions,
		Bids:        bids,
		Enrollments: enrollments,
		Throttle:    throttle,
		Kafka:       kafka,
		Logger:      log,
		Now:         time.Now,
	}
}

// PlaceBid validates and accepts a bid for a lot. On a lost write race the
// just-created bid is marked INVALID and the caller gets a retryable
// ConflictError; it must re-read before resubmitting. A bid below an existing
// reserve price is still accepted as VALID; the reserve gate applies only at
// settlement.
func (e *Engine) PlaceBid(sessionID, lotID, bidderID string, amount decimal.Decimal, idempotencyKey string) (*models.PlaceBidResult, error) {
	now := e.Now()

	session, err := e.Sessions.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if session.Status != models.SessionOpen {
		return nil, errs.BusinessRulef("session is not open for bidding (status %s)", session.Status)
	}
	if !now.Before(session.EndAt) {
		return nil, errs.BusinessRulef("session has ended")
	}

	lot, err := e.Sessions.GetLot(lotID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("lot", lotID)
	}
	if err != nil {
		return nil, fmt.Errorf("load lot %s: %w", lotID, err)
	}
	if lot.SessionID != sessionID {
		return nil, errs.NotFound("lot", lotID)
	}

	enrollment, err := e.Enrollments.GetEnrollment(sessionID, bidderID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil || enrollment.Status != models.EnrollmentApproved {
		return nil, errs.BusinessRulef("bidder is not enrolled in this session")
	}
	if session.Rules.DepositRequired && !enrollment.DepositPaid {
		return nil, errs.BusinessRulef("deposit payment is required before bidding")
	}
	if lot.SellerID == bidderID {
		return nil, errs.BusinessRulef("the seller cannot bid on their own lot")
	}

	// Idempotent replay: same bidder, same lot, same key. No side effects,
	// no anti-sniping, no counters.
	if idempotencyKey != "" {
		prior, err := e.Bids.GetBidByIdempotencyKey(lotID, bidderID, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if prior != nil {
			return &models.PlaceBidResult{
				Bid:             prior,
				NextMinimumBid:  lot.NextMinimumBid(),
				PreviousHighest: lot.CurrentHighestBid,
				BidCount:        lot.BidCount,
				EndAt:           session.EndAt,
				Replayed:        true,
			}, nil
		}
	}

	if e.Throttle != nil {
		ok, err := e.Throttle.Allow(lotID, bidderID)
		if err != nil {
			return nil, fmt.Errorf("bid throttle: %w", err)
		}
		if !ok {
			return nil, errs.BusinessRulef("too many bids in the last minute, please wait")
		}
	}

	if lot.CurrentWinnerID == bidderID {
		return nil, errs.BusinessRulef("you already hold the highest bid")
	}

	minimum := lot.NextMinimumBid()
	if amount.LessThan(minimum) {
		return nil, errs.BidTooLow(minimum)
	}

	bid := models.Bid{
		BidID:          uuid.NewString(),
		SessionID:      sessionID,
		LotID:          lotID,
		BidderID:       bidderID,
		Amount:         amount,
		Status:         models.BidValid,
		PlacedAt:       now,
		IdempotencyKey: idempotencyKey,
	}
	if err := e.Bids.CreateBid(bid); err != nil {
		return nil, fmt.Errorf("create bid: %w", err)
	}

	previousHighest := lot.CurrentHighestBid
	expectedVersion := lot.Version

	lot.CurrentHighestBid = amount
	lot.CurrentWinnerID = bidderID
	lot.BidCount++
	lot.Version++

	ok, err := e.Sessions.CompareAndSwapLot(lot, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("lot update: %w", err)
	}
	if !ok {
		// Another bid committed between our read and write. The inserted
		// bid lost the race; keep it as INVALID history, never delete it.
		if markErr := e.Bids.UpdateBidStatus(bid.BidID, models.BidInvalid); markErr != nil {
			e.Logger.Error("BID", fmt.Sprintf("failed to mark racing bid %s invalid: %v", bid.BidID, markErr))
		}
		e.Logger.LogBid("CONFLICT", lotID, fmt.Sprintf("bid %s lost the write race at version %d", bid.BidID, expectedVersion))
		return nil, errs.Conflictf("another bid was accepted first, re-fetch the current price and retry")
	}

	if err := e.Bids.MarkOutbidExcept(lotID, bid.BidID); err != nil {
		e.Logger.Error("BID", fmt.Sprintf("failed to mark outbid bids for lot %s: %v", lotID, err))
	}
	if err := e.Bids.UpdateBidStatus(bid.BidID, models.BidWinning); err != nil {
		e.Logger.Error("BID", fmt.Sprintf("failed to mark bid %s winning: %v", bid.BidID, err))
	}
	bid.Status = models.BidWinning

	extended := e.applyAntiSniping(session, lot, now)

	e.Logger.LogBid("ACCEPT", lotID, fmt.Sprintf("bid %s for %s by %s (version %d)", bid.BidID, amount.String(), bidderID, lot.Version))
	e.publishBidAccepted(&bid, lot)

	return &models.PlaceBidResult{
		Bid:             &bid,
		NextMinimumBid:  lot.NextMinimumBid(),
		PreviousHighest: previousHighest,
		BidCount:        lot.BidCount,
		Extended:        extended,
		EndAt:           session.EndAt,
	}, nil
}

// applyAntiSniping extends the session deadline when an accepted bid lands
// inside the trigger window: the new deadline is placed_at + extension. Runs
// strictly after the lot CAS committed.
func (e *Engine) applyAntiSniping(session *models.AuctionSession, lot *models.SessionLot, placedAt time.Time) bool {
	rules := session.Rules
	if !rules.AntiSnipingEnabled {
		return false
	}
	if session.EndAt.Sub(placedAt) > rules.TriggerWindow() {
		return false
	}

	oldEndAt := session.EndAt
	session.EndAt = placedAt.Add(rules.Extension())
	if err := e.Sessions.UpdateSessionEndAt(session); err != nil {
		e.Logger.Error("BID", fmt.Sprintf("failed to extend session %s: %v", session.SessionID, err))
		session.EndAt = oldEndAt
		return false
	}

	e.Logger.LogSession("EXTEND", session.SessionID, fmt.Sprintf("end time %s -> %s", oldEndAt.Format(time.RFC3339), session.EndAt.Format(time.RFC3339)))

	event := models.SessionExtendedEvent{
		SessionID: session.SessionID,
		LotID:     lot.LotID,
		OldEndAt:  oldEndAt,
		NewEndAt:  session.EndAt,
	}
	e.publish(TopicSessionExtended, session.SessionID, event)
	return true
}

func (e *Engine) publishBidAccepted(bid *models.Bid, lot *models.SessionLot) {
	event := models.BidAcceptedEvent{
		SessionID:      bid.SessionID,
		LotID:          bid.LotID,
		BidID:          bid.BidID,
		BidderID:       bid.BidderID,
		Amount:         bid.Amount,
		NextMinimumBid: lot.NextMinimumBid(),
		PlacedAt:       bid.PlacedAt,
	}
	e.publish(TopicBidAccepted, bid.LotID, event)
}

// publish is fire-and-forget: event delivery failures never roll back an
// accepted bid.
func (e *Engine) publish(topic, key string, event interface{}) {
	if e.Kafka == nil {
		return
	}
	value, err := json.Marshal(event)
	if err != nil {
		e.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal %s event: %v", topic, err))
		return
	}
	if err := e.Kafka.Publish(topic, key, value); err != nil {
		e.Logger.Error("KAFKA", fmt.Sprintf("failed to publish to %s: %v", topic, err))
	}
}

// CancelBid withdraws a bidder's own bid while the session is open. The bid
// stays as INVALID history, and the lot pointer is restored to the best
// remaining bid under the same version discipline as acceptance: the lot is
// swapped first, so a lost race leaves the bid untouched and retryable.
func (e *Engine) CancelBid(sessionID, lotID, bidID, bidderID string) (*models.HighestBidResult, error) {
	session, err := e.Sessions.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if session.Status != models.SessionOpen {
		return nil, errs.BusinessRulef("bids can only be withdrawn while the session is open (status %s)", session.Status)
	}

	lot, err := e.Sessions.GetLot(lotID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("lot", lotID)
	}
	if err != nil {
		return nil, fmt.Errorf("load lot %s: %w", lotID, err)
	}
	if lot.SessionID != sessionID {
		return nil, errs.NotFound("lot", lotID)
	}

	bid, err := e.Bids.GetBid(bidID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("bid", bidID)
	}
	if err != nil {
		return nil, fmt.Errorf("load bid %s: %w", bidID, err)
	}
	if bid.LotID != lotID {
		return nil, errs.NotFound("bid", bidID)
	}
	if bid.BidderID != bidderID {
		return nil, errs.Unauthorizedf("only the bidder who placed a bid may withdraw it")
	}
	if bid.Status == models.BidInvalid {
		return nil, errs.BusinessRulef("bid is already withdrawn")
	}

	next, err := e.Bids.HighestLiveBidExcept(lotID, bidID)
	if err != nil {
		return nil, fmt.Errorf("find remaining bids: %w", err)
	}

	expectedVersion := lot.Version
	if next != nil {
		lot.CurrentHighestBid = next.Amount
		lot.CurrentWinnerID = next.BidderID
	} else {
		lot.CurrentHighestBid = lot.StartPrice
		lot.CurrentWinnerID = ""
	}
	lot.BidCount--
	lot.Version++

	ok, err := e.Sessions.CompareAndSwapLot(lot, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("lot update: %w", err)
	}
	if !ok {
		return nil, errs.Conflictf("the lot changed while withdrawing, re-fetch and retry")
	}

	if err := e.Bids.UpdateBidStatus(bid.BidID, models.BidInvalid); err != nil {
		e.Logger.Error("BID", fmt.Sprintf("failed to mark withdrawn bid %s invalid: %v", bid.BidID, err))
	}
	if next != nil && next.Status != models.BidWinning {
		if err := e.Bids.UpdateBidStatus(next.BidID, models.BidWinning); err != nil {
			e.Logger.Error("BID", fmt.Sprintf("failed to promote bid %s after withdrawal: %v", next.BidID, err))
		}
	}

	e.Logger.LogBid("CANCEL", lotID, fmt.Sprintf("bid %s withdrawn by %s, lot back to %s (version %d)",
		bid.BidID, bidderID, lot.CurrentHighestBid.String(), lot.Version))

	return &models.HighestBidResult{
		LotID:             lot.LotID,
		CurrentHighestBid: lot.CurrentHighestBid,
		CurrentWinnerID:   lot.CurrentWinnerID,
		BidCount:          lot.BidCount,
		NextMinimumBid:    lot.NextMinimumBid(),
	}, nil
}

// GetHighestBid reports the lot's current standing from the lot pointer.
func (e *Engine) GetHighestBid(sessionID, lotID string) (*models.HighestBidResult, error) {
	lot, err := e.Sessions.GetLot(lotID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("lot", lotID)
	}
	if err != nil {
		return nil, fmt.Errorf("load lot %s: %w", lotID, err)
	}
	if lot.SessionID != sessionID {
		return nil, errs.NotFound("lot", lotID)
	}

	return &models.HighestBidResult{
		LotID:             lot.LotID,
		CurrentHighestBid: lot.CurrentHighestBid,
		CurrentWinnerID:   lot.CurrentWinnerID,
		BidCount:          lot.BidCount,
		NextMinimumBid:    lot.NextMinimumBid(),
	}, nil
}

// GetBidHistory returns the lot's bids, newest first. Invalid bids (lost
// races) are included only on request.
func (e *Engine) GetBidHistory(sessionID, lotID string, includeInvalid bool) ([]models.Bid, error) {
	lot, err := e.Sessions.GetLot(lotID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("lot", lotID)
	}
	if err != nil {
		return nil, fmt.Errorf("load lot %s: %w", lotID, err)
	}
	if lot.SessionID != sessionID {
		return nil, errs.NotFound("lot", lotID)
	}

	return e.Bids.ListBidsByLot(lotID, includeInvalid)
}
