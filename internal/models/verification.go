package models

import "time"

// Identity verification review states.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// IdentityVerification is the record produced by the identity-verification
// wizard: an uploaded document plus a captured selfie awaiting manual review.
type IdentityVerification struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"userId" db:"user_id"`
	DocumentType string     `json:"documentType" db:"document_type"`
	DocumentURL  string     `json:"documentUrl" db:"document_url"`
	SelfieURL    string     `json:"selfieUrl" db:"selfie_url"`
	Status       string     `json:"status" db:"status"`
	ReviewedBy   *string    `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty" db:"reviewed_at"`
	Notes        string     `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}
