package settlement_test

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-auction/internal/errs"
	"ms-auction/internal/logger"
	"ms-auction/internal/models"
	"ms-auction/internal/settlement"
)

type fakeSessionStore struct {
	session *models.AuctionSession
	lots    []models.SessionLot
}

func (f *fakeSessionStore) GetSession(id string) (*models.AuctionSession, error) {
	if f.session == nil || f.session.SessionID != id {
		return nil, sql.ErrNoRows
	}
	copied := *f.session
	return &copied, nil
}

func (f *fakeSessionStore) ListLots(sessionID string) ([]models.SessionLot, error) {
	return f.lots, nil
}

type fakePaymentStore struct {
	payments      map[string]models.Payment
	payouts       map[string]models.Payout
	failOnPayment bool
	failOnPayout  bool
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		payments: make(map[string]models.Payment),
		payouts:  make(map[string]models.Payout),
	}
}

func (f *fakePaymentStore) GetPaymentByLot(lotID string) (*models.Payment, error) {
	p, ok := f.payments[lotID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePaymentStore) GetPayoutByLot(lotID string) (*models.Payout, error) {
	p, ok := f.payouts[lotID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePaymentStore) CreatePayment(payment models.Payment) error {
	if f.failOnPayment {
		return errors.New("payment insert failed")
	}
	f.payments[payment.LotID] = payment
	return nil
}

func (f *fakePaymentStore) CreatePayout(payout models.Payout) error {
	if f.failOnPayout {
		return errors.New("payout insert failed")
	}
	f.payouts[payout.LotID] = payout
	return nil
}

type fakeFeeStore struct {
	fee *models.TransactionFee
}

func (f *fakeFeeStore) GetActiveFee() (*models.TransactionFee, error) { return f.fee, nil }

type fakeCatalog struct {
	sold     []string
	released []string
}

func (f *fakeCatalog) MarkItemSold(itemID string) error {
	f.sold = append(f.sold, itemID)
	return nil
}

func (f *fakeCatalog) MarkItemAvailable(itemID string) error {
	f.released = append(f.released, itemID)
	return nil
}

func closedSession() *models.AuctionSession {
	return &models.AuctionSession{
		SessionID: "session-1",
		Status:    models.SessionClosed,
	}
}

func soldLot(id string, hammer int64) models.SessionLot {
	return models.SessionLot{
		LotID:             id,
		SessionID:         "session-1",
		JewelryItemID:     "item-" + id,
		SellerID:          "seller-1",
		StartPrice:        decimal.NewFromInt(100),
		StepPrice:         decimal.NewFromInt(10),
		CurrentHighestBid: decimal.NewFromInt(hammer),
		CurrentWinnerID:   "bidder-1",
		BidCount:          3,
		Version:           4,
	}
}

func newEngine(sessions *fakeSessionStore, payments *fakePaymentStore, catalog *fakeCatalog) *settlement.Engine {
	fees := &fakeFeeStore{fee: &models.TransactionFee{
		FeeID:            "fee-default",
		BuyerPercentage:  decimal.NewFromInt(10),
		SellerPercentage: decimal.NewFromInt(15),
		MinFee:           decimal.NewFromInt(5),
		MaxFee:           decimal.Zero,
	}}
	engine := settlement.NewEngine(sessions, payments, fees, catalog, nil, logger.NewLogger())
	engine.Now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	return engine
}

func TestSettleRequiresClosedSession(t *testing.T) {
	sessions := &fakeSessionStore{session: &models.AuctionSession{
		SessionID: "session-1",
		Status:    models.SessionOpen,
	}}
	engine := newEngine(sessions, newFakePaymentStore(), &fakeCatalog{})

	_, err := engine.Settle("session-1")

	var br *errs.BusinessRuleError
	assert.ErrorAs(t, err, &br)
}

func TestSettleUnknownSession(t *testing.T) {
	engine := newEngine(&fakeSessionStore{}, newFakePaymentStore(), &fakeCatalog{})

	_, err := engine.Settle("missing")

	assert.True(t, errs.IsNotFound(err))
}

func TestLotWithoutBidsIsUnsold(t *testing.T) {
	lot := soldLot("lot-1", 100)
	lot.BidCount = 0
	lot.CurrentWinnerID = ""

	sessions := &fakeSessionStore{session: closedSession(), lots: []models.SessionLot{lot}}
	payments := newFakePaymentStore()
	catalog := &fakeCatalog{}
	engine := newEngine(sessions, payments, catalog)

	report, err := engine.Settle("session-1")

	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, models.LotUnsold, report.Entries[0].Outcome)
	assert.Equal(t, models.UnsoldNoBids, report.Entries[0].Reason)
	assert.True(t, report.Settled)
	assert.Empty(t, payments.payments, "unsold lots create no payment")
	assert.Equal(t, []string{"item-lot-1"}, catalog.released)
}

func TestReserveNotMetIsUnsold(t *testing.T) {
	// Reserve 900, highest bid 600: accepted bids below reserve do not sell.
	lot := soldLot("lot-1", 600)
	lot.ReservePrice = decimal.NewNullDecimal(decimal.NewFromInt(900))

	sessions := &fakeSessionStore{session: closedSession(), lots: []models.SessionLot{lot}}
	payments := newFakePaymentStore()
	catalog := &fakeCatalog{}
	engine := newEngine(sessions, payments, catalog)

	report, err := engine.Settle("session-1")

	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, models.LotUnsold, entry.Outcome)
	assert.Equal(t, models.UnsoldReserveNotMet, entry.Reason)
	assert.True(t, entry.HammerPrice.Equal(decimal.NewFromInt(600)))
	assert.Empty(t, payments.payments)
	assert.Equal(t, []string{"item-lot-1"}, catalog.released)
}

func TestSoldLotFeeMath(t *testing.T) {
	// Hammer 600: buyer fee 10% = 60, buyer pays 660; seller fee 15% = 90,
	// seller nets 510.
	sessions := &fakeSessionStore{session: closedSession(), lots: []models.SessionLot{soldLot("lot-1", 600)}}
	payments := newFakePaymentStore()
	catalog := &fakeCatalog{}
	engine := newEngine(sessions, payments, catalog)

	report, err := engine.Settle("session-1")

	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, models.LotSold, entry.Outcome)
	assert.Equal(t, "bidder-1", entry.WinnerID)
	assert.True(t, entry.BuyerFee.Equal(decimal.NewFromInt(60)), "buyer fee %s", entry.BuyerFee)
	assert.True(t, entry.BuyerTotal.Equal(decimal.NewFromInt(660)), "buyer total %s", entry.BuyerTotal)
	assert.True(t, entry.SellerFee.Equal(decimal.NewFromInt(90)), "seller fee %s", entry.SellerFee)
	assert.True(t, entry.SellerNet.Equal(decimal.NewFromInt(510)), "seller net %s", entry.SellerNet)
	assert.True(t, report.Settled)

	payment := payments.payments["lot-1"]
	assert.Equal(t, "bidder-1", payment.PayerID)
	assert.True(t, payment.TotalAmount.Equal(decimal.NewFromInt(660)))
	assert.Equal(t, models.PaymentPending, payment.Status)

	payout := payments.payouts["lot-1"]
	assert.Equal(t, "seller-1", payout.SellerID)
	assert.True(t, payout.NetAmount.Equal(decimal.NewFromInt(510)))

	assert.Equal(t, []string{"item-lot-1"}, catalog.sold)
}

func TestReserveMetSellsNormally(t *testing.T) {
	lot := soldLot("lot-1", 900)
	lot.ReservePrice = decimal.NewNullDecimal(decimal.NewFromInt(900))

	sessions := &fakeSessionStore{session: closedSession(), lots: []models.SessionLot{lot}}
	payments := newFakePaymentStore()
	engine := newEngine(sessions, payments, &fakeCatalog{})

	report, err := engine.Settle("session-1")

	require.NoError(t, err)
	assert.Equal(t, models.LotSold, report.Entries[0].Outcome)
}

func TestSettleTwiceReusesExistingPayment(t *testing.T) {
	sessions := &fakeSessionStore{session: closedSession(), lots: []models.SessionLot{soldLot("lot-1", 600)}}
	payments := newFakePaymentStore()
	engine := newEngine(sessions, payments, &fakeCatalog{})

	first, err := engine.Settle("session-1")
	require.NoError(t, err)

	second, err := engine.Settle("session-1")
	require.NoError(t, err)

	assert.Equal(t, first.Entries[0].PaymentID, second.Entries[0].PaymentID)
	assert.Equal(t, first.Entries[0].PayoutID, second.Entries[0].PayoutID)
	assert.Len(t, payments.payments, 1, "no duplicate obligations on re-run")
	assert.Len(t, payments.payouts, 1)
	assert.True(t, second.Settled)
}

func TestPartialFailureIsReportedAndRetryable(t *testing.T) {
	sessions := &fakeSessionStore{session: closedSession(), lots: []models.SessionLot{
		soldLot("lot-1", 600),
		soldLot("lot-2", 300),
	}}
	payments := newFakePaymentStore()
	payments.failOnPayment = true
	engine := newEngine(sessions, payments, &fakeCatalog{})

	report, err := engine.Settle("session-1")

	require.NoError(t, err)
	assert.Equal(t, 2, report.FailedLots)
	assert.False(t, report.Settled)
	for _, entry := range report.Entries {
		assert.NotEmpty(t, entry.Error)
	}

	// After the cause is fixed the same session settles cleanly.
	payments.failOnPayment = false
	retry, err := engine.Settle("session-1")
	require.NoError(t, err)
	assert.True(t, retry.Settled)
	assert.Zero(t, retry.FailedLots)
}

func TestRetryRecoversPayoutAfterPartialWrite(t *testing.T) {
	// A run that dies between the payment insert and the payout insert leaves
	// a sold lot with a buyer obligation but no seller obligation. The retry
	// must not treat the payment row as proof the lot is fully settled.
	sessions := &fakeSessionStore{session: closedSession(), lots: []models.SessionLot{soldLot("lot-1", 600)}}
	payments := newFakePaymentStore()
	payments.failOnPayout = true
	engine := newEngine(sessions, payments, &fakeCatalog{})

	first, err := engine.Settle("session-1")

	require.NoError(t, err)
	assert.Equal(t, 1, first.FailedLots)
	assert.False(t, first.Settled)
	assert.NotEmpty(t, first.Entries[0].Error)
	require.Len(t, payments.payments, 1, "payment committed before the failure")
	assert.Empty(t, payments.payouts)

	payments.failOnPayout = false
	retry, err := engine.Settle("session-1")

	require.NoError(t, err)
	assert.True(t, retry.Settled)
	assert.Zero(t, retry.FailedLots)
	assert.Equal(t, first.Entries[0].PaymentID, retry.Entries[0].PaymentID, "retry reuses the committed payment")
	assert.NotEmpty(t, retry.Entries[0].PayoutID)
	require.Len(t, payments.payouts, 1, "retry creates the missing payout")
	payout := payments.payouts["lot-1"]
	assert.Equal(t, "seller-1", payout.SellerID)
	assert.True(t, payout.NetAmount.Equal(decimal.NewFromInt(510)))
	assert.Len(t, payments.payments, 1, "no duplicate payment on retry")
}

func TestSettleAlreadySettledSession(t *testing.T) {
	session := closedSession()
	session.Status = models.SessionSettled

	sessions := &fakeSessionStore{session: session, lots: []models.SessionLot{soldLot("lot-1", 600)}}
	payments := newFakePaymentStore()
	engine := newEngine(sessions, payments, &fakeCatalog{})

	// A SETTLED session may be re-settled; everything reports from storage.
	first, err := engine.Settle("session-1")
	require.NoError(t, err)
	second, err := engine.Settle("session-1")
	require.NoError(t, err)
	assert.Equal(t, first.Entries[0].PaymentID, second.Entries[0].PaymentID)
}
