// internal/search/criteria.go
package search

import (
	"strconv"
	"strings"

	"oikos-server/internal/common/errors"
)

// Any disables a string-valued constraint.
const Any = "All"

// Criteria is the structured constraint set applied to a property list.
// Zero-valued bed/bath minimums mean unconstrained; string constraints use
// "All" for the same.
type Criteria struct {
	FreeTextQuery string
	MinPrice      float64
	MaxPrice      float64
	MinBeds       int
	MinBaths      int
	PropertyType  string
	Location      string
}

// DefaultCriteria returns the unconstrained criteria with the configured
// price ceiling.
func DefaultCriteria(maxPrice float64) Criteria {
	return Criteria{
		MinPrice:     0,
		MaxPrice:     maxPrice,
		PropertyType: Any,
		Location:     Any,
	}
}

// Validate enforces min <= max and non-negative bounds.
func (c Criteria) Validate() error {
	if c.MinPrice < 0 || c.MaxPrice < 0 || c.MinBeds < 0 || c.MinBaths < 0 {
		return &errors.StandardError{
			Code:    errors.ErrCodeInvalidCriteria,
			Message: "Criteria bounds must be non-negative",
		}
	}
	if c.MinPrice > c.MaxPrice {
		return &errors.StandardError{
			Code:    errors.ErrCodeInvalidCriteria,
			Message: "Minimum price exceeds maximum price",
		}
	}
	return nil
}

// ParsePrice extracts the numeric value from a display price such as
// "$250,000". Currency symbols and grouping commas are stripped; anything
// that still fails to parse comes back as ok=false and the property is
// excluded from price-constrained results rather than treated as free.
func ParsePrice(display string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ':
			return -1
		}
		return r
	}, display)

	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
