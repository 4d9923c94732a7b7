package models

import "time"

// UserType enumerates the marketplace roles.
const (
	UserTypeBuyer  = "buyer"
	UserTypeSeller = "seller"
	UserTypeAgent  = "agent"
	UserTypeVendor = "vendor"
)

// User is the account record. The identity provider's user object is opaque
// beyond id, email and the metadata bag.
type User struct {
	ID           string       `json:"id" db:"id"`
	Email        string       `json:"email" db:"email"`
	PasswordHash string       `json:"-" db:"password_hash"`
	Metadata     UserMetadata `json:"userMetadata" db:"-"`
	Verified     bool         `json:"verified" db:"verified"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
}

// UserMetadata mirrors the provider's user_metadata bag.
type UserMetadata struct {
	FullName    string `json:"fullName"`
	UserType    string `json:"userType"`
	PhoneNumber string `json:"phoneNumber"`
}
