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

// GetEnrollment returns (nil, nil) when the user never enrolled.
func (d *DB) GetEnrollment(sessionID, userID string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := d.Bun.NewSelect().
		Model(&enrollment).
		Where("session_id = ?", sessionID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (d *DB) CreateEnrollment(enrollment models.Enrollment) error {
	_, err := d.Bun.NewInsert().Model(&enrollment).Exec(context.Background())
	return err
}

func (d *DB) UpdateEnrollment(enrollment models.Enrollment) error {
	_, err := d.Bun.NewUpdate().
		Model(&enrollment).
		Column("status", "deposit_paid").
		Where("enrollment_id = ?", enrollment.EnrollmentID).
		Exec(context.Background())
	return err
}
