// internal/property/codec.go
package property

import (
	"time"

	"oikos-server/internal/models"
)

// ListingPayload is the snake_case wire shape of a property listing. The
// internal model uses camelCase; this codec is the only place where the two
// spellings meet. image_urls preserve upload order and the featured image is
// always element 0.
type ListingPayload struct {
	ID           string   `json:"id,omitempty"`
	SellerID     string   `json:"seller_id,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Price        string   `json:"price"`
	PropertyType string   `json:"property_type"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms"`
	SquareFeet   int      `json:"square_feet"`
	YearBuilt    int      `json:"year_built,omitempty"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	Amenities    []string `json:"amenities,omitempty"`
	ImageURLs    []string `json:"image_urls"`
	ContactName  string   `json:"contact_name,omitempty"`
	ContactEmail string   `json:"contact_email,omitempty"`
	ContactPhone string   `json:"contact_phone,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

// Encode translates the internal model to its wire shape.
func Encode(prop *models.Property) *ListingPayload {
	return &ListingPayload{
		ID:           prop.ID,
		SellerID:     prop.SellerID,
		Title:        prop.Title,
		Description:  prop.Description,
		Price:        prop.Price,
		PropertyType: prop.PropertyType,
		Bedrooms:     prop.Bedrooms,
		Bathrooms:    prop.Bathrooms,
		SquareFeet:   prop.Area,
		YearBuilt:    prop.YearBuilt,
		Address:      prop.Address,
		City:         prop.City,
		State:        prop.State,
		ZipCode:      prop.ZipCode,
		Amenities:    prop.Amenities,
		ImageURLs:    prop.Images,
		ContactName:  prop.ContactName,
		ContactEmail: prop.ContactEmail,
		ContactPhone: prop.ContactPhone,
		CreatedAt:    formatTime(prop.CreatedAt),
		UpdatedAt:    formatTime(prop.UpdatedAt),
	}
}

// EncodeAll translates a listing slice, preserving order.
func EncodeAll(props []*models.Property) []*ListingPayload {
	out := make([]*ListingPayload, 0, len(props))
	for _, prop := range props {
		out = append(out, Encode(prop))
	}
	return out
}

// Decode translates an inbound payload to the internal model. ID, seller and
// timestamps are never taken from the wire; the service owns those.
func Decode(payload *ListingPayload) *models.Property {
	return &models.Property{
		Title:        payload.Title,
		Description:  payload.Description,
		Price:        payload.Price,
		PropertyType: payload.PropertyType,
		Bedrooms:     payload.Bedrooms,
		Bathrooms:    payload.Bathrooms,
		Area:         payload.SquareFeet,
		YearBuilt:    payload.YearBuilt,
		Address:      payload.Address,
		City:         payload.City,
		State:        payload.State,
		ZipCode:      payload.ZipCode,
		Amenities:    payload.Amenities,
		Images:       payload.ImageURLs,
		ContactName:  payload.ContactName,
		ContactEmail: payload.ContactEmail,
		ContactPhone: payload.ContactPhone,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
