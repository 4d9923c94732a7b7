package models

import "time"

// VendorProfile is the record produced by the vendor registration wizard: a
// service business attached to an existing account.
type VendorProfile struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"userId" db:"user_id"`
	BusinessName    string    `json:"businessName" db:"business_name"`
	ServiceCategory string    `json:"serviceCategory" db:"service_category"`
	Description     string    `json:"description" db:"description"`
	ContactName     string    `json:"contactName" db:"contact_name"`
	ContactEmail    string    `json:"contactEmail" db:"contact_email"`
	ContactPhone    string    `json:"contactPhone" db:"contact_phone"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}
