package enrollment

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
	GetEnrollment(sessionID, userID string) (*models.Enrollment, error)
	CreateEnrollment(enrollment models.Enrollment) error
	UpdateEnrollment(enrollment models.Enrollment) error
}

type SessionStore interface {
	GetSession(id string) (*models.AuctionSession, error)
}

// Service manages who may bid in a session. An APPROVED enrollment (with a
// paid deposit when required) is the bidding gate checked by the bid engine.
type Service struct {
	DB       DBLayer
	Sessions SessionStore
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewService(db DBLayer, sessions SessionStore, log *logger.Logger) *Service {
	return &Service{DB: db, Sessions: sessions, Logger: log, Now: time.Now}
}

// Request creates a PENDING enrollment for the user. Enrollment closes once
// the session is closed, settled or canceled.
func (s *Service) Request(sessionID, userID string) (*models.Enrollment, error) {
	session, err := s.Sessions.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	switch session.Status {
	case models.SessionClosed, models.SessionSettled, models.SessionCanceled:
		return nil, errs.BusinessRulef("enrollment is closed for this session (status %s)", session.Status)
	}

	existing, err := s.DB.GetEnrollment(sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if existing != nil {
		return nil, errs.BusinessRulef("user is already enrolled with status %s", existing.Status)
	}

	enrollment := models.Enrollment{
		EnrollmentID: uuid.NewString(),
		SessionID:    sessionID,
		UserID:       userID,
		Status:       models.EnrollmentPending,
		CreatedAt:    s.Now(),
	}
	if err := s.DB.CreateEnrollment(enrollment); err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}

	s.Logger.Info("ENROLLMENT", fmt.Sprintf("user %s requested enrollment in session %s", userID, sessionID))
	return &enrollment, nil
}

// Approve marks a pending enrollment approved; depositPaid records whether
// the deposit was collected.
func (s *Service) Approve(sessionID, userID string, depositPaid bool) (*models.Enrollment, error) {
	return s.decide(sessionID, userID, models.EnrollmentApproved, depositPaid)
}

func (s *Service) Reject(sessionID, userID string) (*models.Enrollment, error) {
	return s.decide(sessionID, userID, models.EnrollmentRejected, false)
}

func (s *Service) decide(sessionID, userID string, status models.EnrollmentStatus, depositPaid bool) (*models.Enrollment, error) {
	enrollment, err := s.DB.GetEnrollment(sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, errs.NotFound("enrollment", sessionID+"/"+userID)
	}
	if enrollment.Status != models.EnrollmentPending {
		return nil, errs.BusinessRulef("only pending enrollments can be decided (status %s)", enrollment.Status)
	}

	enrollment.Status = status
	enrollment.DepositPaid = depositPaid
	if err := s.DB.UpdateEnrollment(*enrollment); err != nil {
		return nil, fmt.Errorf("update enrollment: %w", err)
	}

	s.Logger.Info("ENROLLMENT", fmt.Sprintf("enrollment of %s in %s now %s", userID, sessionID, status))
	return enrollment, nil
}
