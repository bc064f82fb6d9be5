package auction

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-auction/internal/errs"
	"ms-auction/internal/logger"
	"ms-auction/internal/models"
)

type DBLayer interface {
	GetSession(id string) (*models.AuctionSession, error)
	CreateSession(session models.AuctionSession) error
	UpdateSession(session models.AuctionSession) error
	CountLots(sessionID string) (int, error)
	ListLots(sessionID string) ([]models.SessionLot, error)
	CreateLot(lot models.SessionLot) error
}

// Settler converts a closed session into per-lot outcomes. Implemented by
// the settlement engine; injected to keep the dependency one-way.
type Settler interface {
	Settle(sessionID string) (*models.SettlementReport, error)
}

// Catalog flags a jewelry item on the catalog service when it enters an
// auction, so it cannot be listed or sold elsewhere while the session runs.
type Catalog interface {
	MarkItemInAuction(itemID string) error
}

// SessionService owns the auction-session state machine. It holds no mutable
// state between calls; every operation re-reads the session from the store.
type SessionService struct {
	DB      DBLayer
	Settler Settler
	Catalog Catalog
	Logger  *logger.Logger
	Now     func() time.Time
}

func NewSessionService(db DBLayer, settler Settler, catalog Catalog, log *logger.Logger) *SessionService {
	return &SessionService{DB: db, Settler: settler, Catalog: catalog, Logger: log, Now: time.Now}
}

func (s *SessionService) getSession(id string) (*models.AuctionSession, error) {
	session, err := s.DB.GetSession(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return session, nil
}

func (s *SessionService) CreateSession(req models.CreateSessionRequest, createdBy string) (*models.AuctionSession, error) {
	if req.Code == "" || req.Name == "" {
		return nil, errs.Validationf("session code and name are required")
	}

	session := models.AuctionSession{
		SessionID: uuid.NewString(),
		Code:      req.Code,
		Name:      req.Name,
		Status:    models.SessionDraft,
		Rules:     req.Rules,
		CreatedBy: createdBy,
		CreatedAt: s.Now(),
	}
	if err := s.DB.CreateSession(session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.Logger.LogSession("CREATE", session.SessionID, "draft session created")
	return &session, nil
}

// AddLot assigns a lot to a session. Only allowed before the session opens.
func (s *SessionService) AddLot(sessionID string, req models.AddLotRequest) (*models.SessionLot, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionDraft && session.Status != models.SessionScheduled {
		return nil, errs.BusinessRulef("lots can only be added before the session opens (status %s)", session.Status)
	}
	if !req.StartPrice.IsPositive() || !req.StepPrice.IsPositive() {
		return nil, errs.Validationf("start price and step price must be positive")
	}

	count, err := s.DB.CountLots(sessionID)
	if err != nil {
		return nil, fmt.Errorf("count lots: %w", err)
	}

	lot := models.SessionLot{
		LotID:             uuid.NewString(),
		SessionID:         sessionID,
		JewelryItemID:     req.JewelryItemID,
		SellerID:          req.SellerID,
		Position:          count + 1,
		StartPrice:        req.StartPrice,
		StepPrice:         req.StepPrice,
		ReservePrice:      req.ReservePrice,
		CurrentHighestBid: req.StartPrice,
		BidCount:          0,
		Version:           1,
	}
	if err := s.DB.CreateLot(lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	// Catalog failures never fail the lot: the item flag is advisory and the
	// catalog reconciles from settlement events anyway.
	if s.Catalog != nil {
		if err := s.Catalog.MarkItemInAuction(req.JewelryItemID); err != nil {
			s.Logger.Warn("SESSION", fmt.Sprintf("failed to flag item %s in auction: %v", req.JewelryItemID, err))
		}
	}

	s.Logger.LogSession("ADD_LOT", sessionID, fmt.Sprintf("lot %s added at position %d", lot.LotID, lot.Position))
	return &lot, nil
}

// Schedule moves DRAFT -> SCHEDULED with a validated time window.
func (s *SessionService) Schedule(sessionID string, startAt, endAt time.Time) (*models.AuctionSession, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardTransition(session.Status, models.SessionScheduled); err != nil {
		return nil, err
	}
	if !startAt.Before(endAt) {
		return nil, errs.Validationf("start time must be before end time")
	}
	if !startAt.After(s.Now()) {
		return nil, errs.Validationf("start time must be in the future")
	}

	session.Status = models.SessionScheduled
	session.StartAt = startAt
	session.EndAt = endAt
	if err := s.DB.UpdateSession(*session); err != nil {
		return nil, fmt.Errorf("schedule session: %w", err)
	}

	s.Logger.LogSession("SCHEDULE", sessionID, fmt.Sprintf("scheduled %s - %s", startAt.Format(time.RFC3339), endAt.Format(time.RFC3339)))
	return session, nil
}

// Open moves SCHEDULED -> OPEN. A session cannot open without lots or before
// its scheduled start.
func (s *SessionService) Open(sessionID string) (*models.AuctionSession, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardTransition(session.Status, models.SessionOpen); err != nil {
		return nil, err
	}

	count, err := s.DB.CountLots(sessionID)
	if err != nil {
		return nil, fmt.Errorf("count lots: %w", err)
	}
	if count == 0 {
		return nil, errs.BusinessRulef("cannot open a session with no lots")
	}
	if s.Now().Before(session.StartAt) {
		return nil, errs.BusinessRulef("cannot open before the scheduled start time")
	}

	session.Status = models.SessionOpen
	if err := s.DB.UpdateSession(*session); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	s.Logger.LogSession("OPEN", sessionID, fmt.Sprintf("session opened with %d lots", count))
	return session, nil
}

func (s *SessionService) Pause(sessionID string) (*models.AuctionSession, error) {
	return s.transition(sessionID, models.SessionPaused, "PAUSE")
}

func (s *SessionService) Resume(sessionID string) (*models.AuctionSession, error) {
	return s.transition(sessionID, models.SessionOpen, "RESUME")
}

// Close moves OPEN or PAUSED -> CLOSED and records the close timestamp.
func (s *SessionService) Close(sessionID string) (*models.AuctionSession, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardTransition(session.Status, models.SessionClosed); err != nil {
		return nil, err
	}

	session.Status = models.SessionClosed
	session.ClosedAt = s.Now()
	if err := s.DB.UpdateSession(*session); err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}

	s.Logger.LogSession("CLOSE", sessionID, "session closed")
	return session, nil
}

func (s *SessionService) Cancel(sessionID string) (*models.AuctionSession, error) {
	return s.transition(sessionID, models.SessionCanceled, "CANCEL")
}

// Settle delegates to the settlement engine and, once every lot is decided,
// records the CLOSED -> SETTLED transition. A partially failed settlement
// leaves the session CLOSED and retryable.
func (s *SessionService) Settle(sessionID string) (*models.SettlementReport, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionClosed && session.Status != models.SessionSettled {
		return nil, errs.InvalidTransition(string(session.Status), string(models.SessionSettled))
	}

	report, err := s.Settler.Settle(sessionID)
	if err != nil {
		return nil, err
	}

	if report.Settled && session.Status == models.SessionClosed {
		session.Status = models.SessionSettled
		session.SettledAt = s.Now()
		if err := s.DB.UpdateSession(*session); err != nil {
			return nil, fmt.Errorf("mark session settled: %w", err)
		}
		s.Logger.LogSession("SETTLE", sessionID, fmt.Sprintf("session settled, %d lots", len(report.Entries)))
	} else if !report.Settled {
		s.Logger.Warn("SESSION", fmt.Sprintf("settlement of %s incomplete: %d lots failed, session stays closed", sessionID, report.FailedLots))
	}

	return report, nil
}

func (s *SessionService) GetSession(sessionID string) (*models.AuctionSession, error) {
	return s.getSession(sessionID)
}

func (s *SessionService) ListLots(sessionID string) ([]models.SessionLot, error) {
	if _, err := s.getSession(sessionID); err != nil {
		return nil, err
	}
	return s.DB.ListLots(sessionID)
}

func (s *SessionService) transition(sessionID string, to models.SessionStatus, action string) (*models.AuctionSession, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardTransition(session.Status, to); err != nil {
		return nil, err
	}

	session.Status = to
	if err := s.DB.UpdateSession(*session); err != nil {
		return nil, fmt.Errorf("%s session: %w", action, err)
	}

	s.Logger.LogSession(action, sessionID, fmt.Sprintf("status now %s", to))
	return session, nil
}
