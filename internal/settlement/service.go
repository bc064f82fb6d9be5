package settlement

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-auction/internal/errs"
	"ms-auction/internal/fees"
	"ms-auction/internal/logger"
	"ms-auction/internal/models"
)

type SessionStore interface {
	GetSession(id string) (*models.AuctionSession, error)
	ListLots(sessionID string) ([]models.SessionLot, error)
}

type PaymentStore interface {
	GetPaymentByLot(lotID string) (*models.Payment, error)
	GetPayoutByLot(lotID string) (*models.Payout, error)
	CreatePayment(payment models.Payment) error
	CreatePayout(payout models.Payout) error
}

type FeeStore interface {
	GetActiveFee() (*models.TransactionFee, error)
}

// Catalog flags jewelry items back to the catalog service after settlement.
type Catalog interface {
	MarkItemSold(itemID string) error
	MarkItemAvailable(itemID string) error
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

const TopicLotSettled = "auctionly.lot.settled"

// Engine converts a CLOSED session into final per-lot outcomes. Settlement
// is idempotent: an existing payment row for a lot means the lot is already
// settled and is reported from the stored records instead of re-created.
type Engine struct {
	Sessions SessionStore
	Payments PaymentStore
	Fees     FeeStore
	Catalog  Catalog
	Kafka    KafkaPublisher
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewEngine(sessions SessionStore, payments PaymentStore, feeStore FeeStore, catalog Catalog, kafka KafkaPublisher, log *logger.Logger) *Engine {
	return &Engine{
		Sessions: sessions,
		Payments: payments,
		Fees:     feeStore,
		Catalog:  catalog,
		Kafka:    kafka,
		Logger:   log,
		Now:      time.Now,
	}
}

// Settle processes every lot of the session in lot order. Lots that fail are
// reported in their entry and counted; the report's Settled flag is true only
// when all lots were decided, which is when the caller may move the session
// to SETTLED.
func (e *Engine) Settle(sessionID string) (*models.SettlementReport, error) {
	session, err := e.Sessions.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if session.Status != models.SessionClosed && session.Status != models.SessionSettled {
		return nil, errs.BusinessRulef("only a closed session can be settled (status %s)", session.Status)
	}

	defaultFee, err := e.Fees.GetActiveFee()
	if err != nil {
		return nil, fmt.Errorf("load fee configuration: %w", err)
	}
	schedule := fees.Resolve(session.Rules, defaultFee)

	lots, err := e.Sessions.ListLots(sessionID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}

	report := &models.SettlementReport{SessionID: sessionID}
	for _, lot := range lots {
		entry := e.settleLot(session, &lot, schedule)
		if entry.Error != "" {
			report.FailedLots++
		}
		report.Entries = append(report.Entries, entry)
	}
	report.Settled = report.FailedLots == 0

	e.Logger.LogSettlement(sessionID, fmt.Sprintf("%d lots processed, %d failed", len(report.Entries), report.FailedLots))
	return report, nil
}

func (e *Engine) settleLot(session *models.AuctionSession, lot *models.SessionLot, schedule fees.Schedule) models.SettlementEntry {
	entry := models.SettlementEntry{LotID: lot.LotID}

	// No bids: the lot never moved off its start price.
	if lot.BidCount == 0 {
		entry.Outcome = models.LotUnsold
		entry.Reason = models.UnsoldNoBids
		e.releaseItem(lot)
		e.publishLotSettled(session.SessionID, entry)
		return entry
	}

	// Reserve not met: bids below reserve were accepted as valid, but the
	// lot does not sell.
	if lot.HasReserve() && lot.CurrentHighestBid.LessThan(lot.ReservePrice.Decimal) {
		entry.Outcome = models.LotUnsold
		entry.Reason = models.UnsoldReserveNotMet
		entry.HammerPrice = lot.CurrentHighestBid
		e.releaseItem(lot)
		e.publishLotSettled(session.SessionID, entry)
		return entry
	}

	entry.Outcome = models.LotSold
	entry.WinnerID = lot.CurrentWinnerID
	entry.HammerPrice = lot.CurrentHighestBid
	entry.BuyerFee = schedule.BuyerFee(lot.CurrentHighestBid)
	entry.BuyerTotal = lot.CurrentHighestBid.Add(entry.BuyerFee)
	entry.SellerFee = schedule.SellerFee(lot.CurrentHighestBid)
	entry.SellerNet = lot.CurrentHighestBid.Sub(entry.SellerFee)

	// Idempotency: a payment row for this lot means a prior settlement run
	// already decided it.
	existing, err := e.Payments.GetPaymentByLot(lot.LotID)
	if err != nil {
		entry.Error = fmt.Sprintf("payment lookup: %v", err)
		return entry
	}
	if existing != nil {
		entry.PaymentID = existing.PaymentID
		payout, err := e.Payments.GetPayoutByLot(lot.LotID)
		if err != nil {
			entry.Error = fmt.Sprintf("payout lookup: %v", err)
			return entry
		}
		if payout != nil {
			entry.PayoutID = payout.PayoutID
			return entry
		}
		// A prior run stopped between the payment and the payout. Finish the
		// seller side now instead of reporting the lot as done.
		if !e.createPayout(session, lot, &entry) {
			return entry
		}
		e.Logger.LogSettlement(session.SessionID, fmt.Sprintf("lot %s: recovered missing payout %s", lot.LotID, entry.PayoutID))
		e.publishLotSettled(session.SessionID, entry)
		return entry
	}

	payment := models.Payment{
		PaymentID:   uuid.NewString(),
		SessionID:   session.SessionID,
		LotID:       lot.LotID,
		PayerID:     lot.CurrentWinnerID,
		Amount:      lot.CurrentHighestBid,
		FeeAmount:   entry.BuyerFee,
		TotalAmount: entry.BuyerTotal,
		Status:      models.PaymentPending,
		CreatedAt:   e.Now(),
	}
	if err := e.Payments.CreatePayment(payment); err != nil {
		entry.Error = fmt.Sprintf("create payment: %v", err)
		return entry
	}
	entry.PaymentID = payment.PaymentID

	if !e.createPayout(session, lot, &entry) {
		return entry
	}

	if e.Catalog != nil {
		if err := e.Catalog.MarkItemSold(lot.JewelryItemID); err != nil {
			e.Logger.Warn("SETTLEMENT", fmt.Sprintf("failed to flag item %s sold: %v", lot.JewelryItemID, err))
		}
	}

	e.Logger.LogSettlement(session.SessionID, fmt.Sprintf("lot %s sold to %s for %s (buyer pays %s, seller nets %s)",
		lot.LotID, lot.CurrentWinnerID, entry.HammerPrice.String(), entry.BuyerTotal.String(), entry.SellerNet.String()))
	e.publishLotSettled(session.SessionID, entry)
	return entry
}

// createPayout records the seller's side of a sale. On an insert failure the
// entry's Error is set and false is returned.
func (e *Engine) createPayout(session *models.AuctionSession, lot *models.SessionLot, entry *models.SettlementEntry) bool {
	payout := models.Payout{
		PayoutID:  uuid.NewString(),
		SessionID: session.SessionID,
		LotID:     lot.LotID,
		SellerID:  lot.SellerID,
		Amount:    lot.CurrentHighestBid,
		FeeAmount: entry.SellerFee,
		NetAmount: entry.SellerNet,
		Status:    models.PaymentPending,
		CreatedAt: e.Now(),
	}
	if err := e.Payments.CreatePayout(payout); err != nil {
		entry.Error = fmt.Sprintf("create payout: %v", err)
		return false
	}
	entry.PayoutID = payout.PayoutID
	return true
}

// releaseItem returns an unsold lot's jewelry item to the catalog. Catalog
// failures never fail the settlement of the lot.
func (e *Engine) releaseItem(lot *models.SessionLot) {
	if e.Catalog == nil {
		return
	}
	if err := e.Catalog.MarkItemAvailable(lot.JewelryItemID); err != nil {
		e.Logger.Warn("SETTLEMENT", fmt.Sprintf("failed to release item %s: %v", lot.JewelryItemID, err))
	}
}

func (e *Engine) publishLotSettled(sessionID string, entry models.SettlementEntry) {
	if e.Kafka == nil {
		return
	}
	event := models.LotSettledEvent{
		SessionID:   sessionID,
		LotID:       entry.LotID,
		Outcome:     entry.Outcome,
		Reason:      entry.Reason,
		WinnerID:    entry.WinnerID,
		HammerPrice: entry.HammerPrice,
		SettledAt:   e.Now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		e.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal lot settled event: %v", err))
		return
	}
	if err := e.Kafka.Publish(TopicLotSettled, entry.LotID, value); err != nil {
		e.Logger.Error("KAFKA", fmt.Sprintf("failed to publish lot settled event: %v", err))
	}
}
