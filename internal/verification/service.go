// internal/verification/service.go

// Package verification stores identity verification submissions for manual
// review. Document and selfie images are referenced by storage URL; the
// upload itself happens before the wizard reaches this layer.
package verification

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/models"
)

type Service struct {
	db  *sql.DB
	log logger.Logger
}

func NewService(db *sql.DB, log logger.Logger) *Service {
	return &Service{db: db, log: log}
}

// Submit records a new verification request in pending state. A user can have
// multiple submissions; reviewers see the latest.
func (s *Service) Submit(ctx context.Context, userID, documentType, documentURL, selfieURL string) (*models.IdentityVerification, error) {
	now := time.Now().UTC()
	record := &models.IdentityVerification{
		ID:           uuid.New().String(),
		UserID:       userID,
		DocumentType: documentType,
		DocumentURL:  documentURL,
		SelfieURL:    selfieURL,
		Status:       models.VerificationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identity_verifications
			(id, user_id, document_type, document_url, selfie_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.UserID, record.DocumentType, record.DocumentURL,
		record.SelfieURL, record.Status, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	s.log.WithFields(map[string]interface{}{
		"verificationId": record.ID,
		"userId":         userID,
	}).Info("Identity verification submitted", nil)
	return record, nil
}

// Latest returns the user's most recent submission, nil when none exists.
func (s *Service) Latest(ctx context.Context, userID string) (*models.IdentityVerification, error) {
	var rec models.IdentityVerification
	var reviewedBy sql.NullString
	var reviewedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, document_type, document_url, selfie_url, status,
		       reviewed_by, reviewed_at, notes, created_at, updated_at
		FROM identity_verifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, userID).Scan(
		&rec.ID, &rec.UserID, &rec.DocumentType, &rec.DocumentURL,
		&rec.SelfieURL, &rec.Status, &reviewedBy, &reviewedAt,
		&rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("verification.Latest", err)
	}

	if reviewedBy.Valid {
		rec.ReviewedBy = &reviewedBy.String
	}
	if reviewedAt.Valid {
		rec.ReviewedAt = &reviewedAt.Time
	}
	return &rec, nil
}

// Review resolves a pending submission. reviewer is the admin account id.
func (s *Service) Review(ctx context.Context, id, reviewer, status, notes string) error {
	if status != models.VerificationVerified && status != models.VerificationRejected {
		return &errors.StandardError{
			Code:      errors.ErrCodeFieldValidationFailed,
			Message:   "Review status must be verified or rejected",
			Fields:    map[string]string{"status": "must be verified or rejected"},
			Timestamp: time.Now().UTC(),
		}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE identity_verifications
		SET status = $1, reviewed_by = $2, reviewed_at = $3, notes = $4, updated_at = $3
		WHERE id = $5 AND status = $6`,
		status, reviewer, time.Now().UTC(), notes, id, models.VerificationPending,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("verification.Review", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("verification.Review", err)
	}
	if affected == 0 {
		return &errors.StandardError{
			Code:      errors.ErrCodeVerificationNotFound,
			Message:   "No pending verification with that id",
			Timestamp: time.Now().UTC(),
		}
	}
	return nil
}
