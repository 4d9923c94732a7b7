package models

import "time"

// Property is the marketplace listing. Internal code uses these camelCase
// names; the REST boundary translates to snake_case keys.
type Property struct {
	ID           string    `json:"id" db:"id"`
	SellerID     string    `json:"sellerId" db:"seller_id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Price        string    `json:"price" db:"price"` // display string, e.g. "$250,000"
	PropertyType string    `json:"propertyType" db:"property_type"`
	Bedrooms     int       `json:"bedrooms" db:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms" db:"bathrooms"`
	Area         int       `json:"area" db:"area"` // sqft
	YearBuilt    int       `json:"yearBuilt,omitempty" db:"year_built"`
	Address      string    `json:"address" db:"address"`
	City         string    `json:"city" db:"city"`
	State        string    `json:"state" db:"state"`
	ZipCode      string    `json:"zipCode" db:"zip_code"`
	Amenities    []string  `json:"amenities,omitempty" db:"amenities"`
	// Images preserve upload order; the featured image is always element 0.
	Images       []string  `json:"images" db:"images"`
	ContactName  string    `json:"contactName,omitempty" db:"contact_name"`
	ContactEmail string    `json:"contactEmail,omitempty" db:"contact_email"`
	ContactPhone string    `json:"contactPhone,omitempty" db:"contact_phone"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// OwnedBy reports whether userID may mutate this property. A property is
// visible to everyone but mutable only by its owner.
func (p *Property) OwnedBy(userID string) bool {
	return p.SellerID != "" && p.SellerID == userID
}

// FeaturedImage returns the primary gallery image, or "" for an empty gallery.
func (p *Property) FeaturedImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
