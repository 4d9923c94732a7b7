// internal/property/service.go
package property

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"oikos-server/internal/common/database"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/models"
	"oikos-server/internal/search"
)

const (
	cachePrefix = "properties:search:"
	cacheTTL    = 10 * time.Minute
)

// TextIndex is the slice of the search indexer this service consumes:
// best-effort mirroring on writes, candidate narrowing on free-text reads.
type TextIndex interface {
	IndexProperty(ctx context.Context, prop *models.Property) error
	DeleteProperty(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Service owns the listing catalog: Postgres is the source of truth, search
// results are cached in Redis, and the Elasticsearch index is mirrored on a
// best-effort basis. Index and cache failures are logged but never fail the
// write.
type Service struct {
	repo    *Repository
	cache   *database.RedisClient
	indexer TextIndex
	filter  *search.Pipeline
	log     logger.Logger
}

func NewService(repo *Repository, cache *database.RedisClient, indexer TextIndex, log logger.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		indexer: indexer,
		filter:  search.NewPipeline(log),
		log:     log,
	}
}

// Create persists a new listing owned by sellerID and mirrors it into the
// search index.
func (s *Service) Create(ctx context.Context, sellerID string, prop *models.Property) (*models.Property, error) {
	prop.ID = uuid.New().String()
	prop.SellerID = sellerID

	if err := s.repo.Create(ctx, prop); err != nil {
		return nil, err
	}

	s.mirrorIndex(ctx, prop)
	s.invalidateCache(ctx)

	s.log.WithFields(map[string]interface{}{
		"propertyId": prop.ID,
		"sellerId":   sellerID,
	}).Info("Property listing created", nil)
	return prop, nil
}

// Get fetches one listing. Listings are publicly readable.
func (s *Service) Get(ctx context.Context, id string) (*models.Property, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns listings, optionally restricted to one seller.
func (s *Service) List(ctx context.Context, sellerID string, limit int) ([]*models.Property, error) {
	return s.repo.List(ctx, sellerID, limit)
}

// Update rewrites a listing. Only the owner may mutate it.
func (s *Service) Update(ctx context.Context, sellerID string, prop *models.Property) (*models.Property, error) {
	// Disambiguate missing row from foreign owner before the guarded update.
	existing, err := s.repo.GetByID(ctx, prop.ID)
	if err != nil {
		return nil, err
	}
	prop.SellerID = existing.SellerID
	prop.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, sellerID, prop); err != nil {
		return nil, err
	}

	s.mirrorIndex(ctx, prop)
	s.invalidateCache(ctx)
	return prop, nil
}

// Delete removes a listing. Only the owner may delete it.
func (s *Service) Delete(ctx context.Context, sellerID, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, sellerID, id); err != nil {
		return err
	}

	if s.indexer != nil {
		if err := s.indexer.DeleteProperty(ctx, id); err != nil {
			s.log.WithError(err).Warn("Failed to remove property from search index", nil)
		}
	}
	s.invalidateCache(ctx)
	return nil
}

// Search applies the filter criteria over the catalog and returns the
// filtered list plus the selection to show. Results are cached per criteria;
// the selection is computed per request and never cached because it depends
// on the caller's previous selection.
func (s *Service) Search(ctx context.Context, criteria search.Criteria, previousSelection string) (search.Result, error) {
	if err := criteria.Validate(); err != nil {
		return search.Result{}, err
	}

	key := cacheKey(criteria)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var props []*models.Property
		if err := json.Unmarshal([]byte(cached), &props); err == nil {
			s.log.WithFields(map[string]interface{}{"key": key}).Debug("Search cache hit", nil)
			return s.filter.Apply(props, criteria, previousSelection), nil
		}
	} else if err != redis.Nil {
		s.log.WithError(err).Warn("Search cache read failed", nil)
	}

	props, err := s.repo.List(ctx, "", 0)
	if err != nil {
		return search.Result{}, err
	}
	props = s.narrowByIndex(ctx, props, criteria.FreeTextQuery)

	result := s.filter.Apply(props, criteria, previousSelection)

	if data, err := json.Marshal(result.Properties); err == nil {
		if err := s.cache.Set(ctx, key, data, cacheTTL); err != nil {
			s.log.WithError(err).Warn("Search cache write failed", nil)
		}
	}
	return result, nil
}

// narrowByIndex restricts the candidate set to the ids the text index
// returns for the query. The pipeline still applies every structured
// constraint afterwards; an index failure falls back to the full catalog so
// search degrades instead of erroring.
func (s *Service) narrowByIndex(ctx context.Context, props []*models.Property, query string) []*models.Property {
	query = strings.TrimSpace(query)
	if s.indexer == nil || query == "" {
		return props
	}

	ids, err := s.indexer.Search(ctx, query, len(props))
	if err != nil {
		s.log.WithError(err).Warn("Text index query failed, searching full catalog", nil)
		return props
	}

	hits := make(map[string]bool, len(ids))
	for _, id := range ids {
		hits[id] = true
	}
	narrowed := make([]*models.Property, 0, len(ids))
	for _, prop := range props {
		if hits[prop.ID] {
			narrowed = append(narrowed, prop)
		}
	}
	return narrowed
}

func (s *Service) mirrorIndex(ctx context.Context, prop *models.Property) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexProperty(ctx, prop); err != nil {
		s.log.WithError(err).WithFields(map[string]interface{}{
			"propertyId": prop.ID,
		}).Warn("Failed to index property", nil)
	}
}

// invalidateCache drops all cached search results after a catalog write.
func (s *Service) invalidateCache(ctx context.Context) {
	rdb := s.cache.GetClient()
	var cursor uint64
	var keys []string
	for {
		batch, next, err := rdb.Scan(ctx, cursor, cachePrefix+"*", 100).Result()
		if err != nil {
			s.log.WithError(err).Warn("Search cache invalidation scan failed", nil)
			return
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.WithError(err).Warn("Search cache invalidation failed", nil)
	}
}

// cacheKey hashes the criteria into a stable cache key.
func cacheKey(c search.Criteria) string {
	parts := []string{
		fmt.Sprintf("q=%s", strings.ToLower(strings.TrimSpace(c.FreeTextQuery))),
		fmt.Sprintf("min=%g", c.MinPrice),
		fmt.Sprintf("max=%g", c.MaxPrice),
		fmt.Sprintf("beds=%d", c.MinBeds),
		fmt.Sprintf("baths=%d", c.MinBaths),
		fmt.Sprintf("type=%s", c.PropertyType),
		fmt.Sprintf("loc=%s", c.Location),
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, "&")))
	return cachePrefix + hex.EncodeToString(sum[:])
}
