// internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"oikos-server/internal/common/database"
	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/common/metrics"
	"oikos-server/internal/models"
)

// Indexer mirrors the property catalog into Elasticsearch so free-text search
// can be served by the index instead of the in-memory pipeline. The index is
// an optimization: Postgres stays the source of truth and every indexer
// failure is surfaced but non-fatal to the write path.
type Indexer struct {
	es    *database.ElasticsearchClient
	index string
	log   logger.Logger
}

func NewIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *Indexer {
	return &Indexer{es: es, index: index, log: log}
}

type indexedProperty struct {
	ID           string   `json:"id"`
	SellerID     string   `json:"seller_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	PropertyType string   `json:"property_type"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Amenities    []string `json:"amenities,omitempty"`
}

// IndexProperty upserts one property document keyed by its ID.
func (i *Indexer) IndexProperty(ctx context.Context, prop *models.Property) error {
	price, _ := ParsePrice(prop.Price)
	doc := indexedProperty{
		ID:           prop.ID,
		SellerID:     prop.SellerID,
		Title:        prop.Title,
		Description:  prop.Description,
		Price:        price,
		PropertyType: prop.PropertyType,
		Bedrooms:     prop.Bedrooms,
		Bathrooms:    prop.Bathrooms,
		City:         prop.City,
		State:        prop.State,
		Amenities:    prop.Amenities,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal property document: %w", err)
	}

	res, err := i.es.Client.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Client.Index.WithDocumentID(prop.ID),
		i.es.Client.Index.WithContext(ctx),
		i.es.Client.Index.WithRefresh("false"),
	)
	if err != nil {
		return &errors.StandardError{
			Code:      errors.ErrCodeSearchIndexFailed,
			Message:   "Failed to index property",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &errors.StandardError{
			Code:      errors.ErrCodeSearchIndexFailed,
			Message:   "Failed to index property",
			Details:   res.Status(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}

	i.log.WithFields(map[string]interface{}{
		"propertyId": prop.ID,
		"index":      i.index,
	}).Debug("Property indexed", nil)
	return nil
}

// DeleteProperty removes a property document. A missing document is not an
// error; the delete is idempotent.
func (i *Indexer) DeleteProperty(ctx context.Context, id string) error {
	res, err := i.es.Client.Delete(
		i.index,
		id,
		i.es.Client.Delete.WithContext(ctx),
	)
	if err != nil {
		return &errors.StandardError{
			Code:      errors.ErrCodeSearchIndexFailed,
			Message:   "Failed to remove property from index",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return &errors.StandardError{
			Code:      errors.ErrCodeSearchIndexFailed,
			Message:   "Failed to remove property from index",
			Details:   res.Status(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}
	return nil
}

// Search runs a free-text query against the index and returns matching
// property IDs. Structured constraints still go through the filter pipeline;
// the index only narrows the candidate set.
func (i *Indexer) Search(ctx context.Context, query string, limit int) ([]string, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 50
	}

	q := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "city", "description"},
			},
		},
		"_source": []string{"id"},
	}
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := i.es.Client.Search(
		i.es.Client.Search.WithContext(ctx),
		i.es.Client.Search.WithIndex(i.index),
		i.es.Client.Search.WithBody(strings.NewReader(string(body))),
	)
	if err != nil {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeSearchIndexFailed,
			Message:   "Search query failed",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeSearchIndexFailed,
			Message:   "Search query failed",
			Details:   res.Status(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}

	metrics.SearchDuration.WithLabelValues("elasticsearch").Observe(time.Since(start).Seconds())
	return ids, nil
}
