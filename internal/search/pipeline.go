// internal/search/pipeline.go
package search

import (
	"strings"
	"time"

	"oikos-server/internal/common/logger"
	"oikos-server/internal/common/metrics"
	"oikos-server/internal/models"
)

// Result pairs a filtered property list with the selection the caller should
// show. A non-empty result always has a selection.
type Result struct {
	Properties []*models.Property
	// SelectedID is the retained previous selection when it survived the
	// filter, otherwise the first matching property.
	SelectedID string
}

// Pipeline applies Criteria to in-memory property lists. Filtering is pure;
// selection maintenance is the only stateful concern and is driven entirely
// by the caller-supplied previous selection.
type Pipeline struct {
	log logger.Logger
}

func NewPipeline(log logger.Logger) *Pipeline {
	return &Pipeline{log: log}
}

// Apply filters properties by the conjunction of all active constraints and
// computes the surviving selection. The input slice is never mutated and
// relative order is preserved.
func (p *Pipeline) Apply(properties []*models.Property, c Criteria, previousSelection string) Result {
	start := time.Now()

	matched := make([]*models.Property, 0, len(properties))
	for _, prop := range properties {
		if Matches(prop, c) {
			matched = append(matched, prop)
		}
	}

	res := Result{Properties: matched, SelectedID: reselect(matched, previousSelection)}

	metrics.SearchDuration.WithLabelValues("memory").Observe(time.Since(start).Seconds())
	p.log.WithFields(map[string]interface{}{
		"total":    len(properties),
		"matched":  len(matched),
		"selected": res.SelectedID,
	}).Debug("Filter pipeline applied", nil)

	return res
}

// Matches reports whether a single property satisfies every active
// constraint. Constraints at their neutral value (empty query, "All",
// zero minimums) always pass.
func Matches(prop *models.Property, c Criteria) bool {
	if !textMatch(prop, c.FreeTextQuery) {
		return false
	}
	price, ok := ParsePrice(prop.Price)
	if !ok {
		return false
	}
	if price < c.MinPrice || price > c.MaxPrice {
		return false
	}
	if c.MinBeds > 0 && prop.Bedrooms < c.MinBeds {
		return false
	}
	if c.MinBaths > 0 && prop.Bathrooms < float64(c.MinBaths) {
		return false
	}
	if c.PropertyType != "" && c.PropertyType != Any &&
		!strings.EqualFold(prop.PropertyType, c.PropertyType) {
		return false
	}
	if c.Location != "" && c.Location != Any &&
		!strings.EqualFold(prop.City, c.Location) {
		return false
	}
	return true
}

// textMatch is a case-insensitive substring test against the title or city.
func textMatch(prop *models.Property, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(prop.Title), q) ||
		strings.Contains(strings.ToLower(prop.City), q)
}

// reselect keeps the previous selection when it survived filtering, falls
// back to the first match, and clears the selection for an empty result.
func reselect(matched []*models.Property, previous string) string {
	if len(matched) == 0 {
		return ""
	}
	if previous != "" {
		for _, prop := range matched {
			if prop.ID == previous {
				return previous
			}
		}
	}
	return matched[0].ID
}
