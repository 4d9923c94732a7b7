// internal/property/service_test.go
package property

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oikos-server/internal/common/database"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/models"
	"oikos-server/internal/search"
)

func setupService(t *testing.T) (*Service, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { cache.Close() })

	svc := NewService(NewRepository(db), cache, nil, logger.NewTestLogger(t))
	return svc, mock, mr
}

func catalogRows() *sqlmock.Rows {
	rows := sqlmock.NewRows(scanColumns)
	add := func(id, title, city, price, ptype string, beds int, baths float64) {
		rows.AddRow(id, "user-1", title, "", price, ptype, beds, baths, 900, 2000,
			"", city, "TX", "78701", "{}", "{}", "", "", "",
			testTimestamp(), testTimestamp())
	}
	add("p1", "Cozy Cottage", "Austin", "$250,000", "House", 2, 1)
	add("p2", "Downtown Loft", "Austin", "$450,000", "Apartment", 1, 1)
	add("p3", "Lakeside Villa", "Seattle", "$900,000", "House", 4, 3)
	return rows
}

// ========================== Create Tests

func TestService_CreateAssignsIdentityAndOwner(t *testing.T) {
	svc, mock, _ := setupService(t)

	mock.ExpectExec(`INSERT INTO properties`).WillReturnResult(sqlmock.NewResult(0, 1))

	prop, err := svc.Create(context.Background(), "user-1", &models.Property{
		Title: "Cozy Cottage",
		Price: "$250,000",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, prop.ID)
	assert.Equal(t, "user-1", prop.SellerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ========================== Search Cache Tests

func TestService_SearchCachesFilteredList(t *testing.T) {
	svc, mock, mr := setupService(t)
	ctx := context.Background()

	// Only the first search may touch the database.
	mock.ExpectQuery(`FROM properties`).WillReturnRows(catalogRows())

	criteria := search.DefaultCriteria(2500000)
	criteria.Location = "Austin"

	first, err := svc.Search(ctx, criteria, "")
	require.NoError(t, err)
	require.Len(t, first.Properties, 2)
	assert.Equal(t, "p1", first.SelectedID)

	second, err := svc.Search(ctx, criteria, "p2")
	require.NoError(t, err)
	require.Len(t, second.Properties, 2)
	// Selection is per request, not part of the cached entry.
	assert.Equal(t, "p2", second.SelectedID)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NotEmpty(t, mr.Keys(), "the filtered list is cached under the criteria hash")
}

func TestService_SearchCacheExpires(t *testing.T) {
	svc, mock, mr := setupService(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM properties`).WillReturnRows(catalogRows())
	mock.ExpectQuery(`FROM properties`).WillReturnRows(catalogRows())

	criteria := search.DefaultCriteria(2500000)
	_, err := svc.Search(ctx, criteria, "")
	require.NoError(t, err)

	mr.FastForward(cacheTTL + 1)

	_, err = svc.Search(ctx, criteria, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateInvalidatesSearchCache(t *testing.T) {
	svc, mock, mr := setupService(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM properties`).WillReturnRows(catalogRows())
	_, err := svc.Search(ctx, search.DefaultCriteria(2500000), "")
	require.NoError(t, err)
	require.NotEmpty(t, mr.Keys())

	mock.ExpectExec(`INSERT INTO properties`).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = svc.Create(ctx, "user-1", &models.Property{Title: "New Build", Price: "$300,000"})
	require.NoError(t, err)

	assert.Empty(t, mr.Keys(), "a catalog write drops every cached search result")
}

func TestService_SearchRejectsInvalidCriteria(t *testing.T) {
	svc, _, _ := setupService(t)

	criteria := search.DefaultCriteria(2500000)
	criteria.MinPrice = 500000
	criteria.MaxPrice = 100000

	_, err := svc.Search(context.Background(), criteria, "")
	assert.Error(t, err)
}

func TestService_DistinctCriteriaDistinctCacheEntries(t *testing.T) {
	svc, mock, mr := setupService(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM properties`).WillReturnRows(catalogRows())
	mock.ExpectQuery(`FROM properties`).WillReturnRows(catalogRows())

	austin := search.DefaultCriteria(2500000)
	austin.Location = "Austin"
	seattle := search.DefaultCriteria(2500000)
	seattle.Location = "Seattle"

	_, err := svc.Search(ctx, austin, "")
	require.NoError(t, err)
	_, err = svc.Search(ctx, seattle, "")
	require.NoError(t, err)

	assert.Len(t, mr.Keys(), 2)
}

// ========================== Text Index Tests

type fakeTextIndex struct {
	ids     []string
	err     error
	queries []string
}

func (f *fakeTextIndex) IndexProperty(ctx context.Context, prop *models.Property) error { return nil }
func (f *fakeTextIndex) DeleteProperty(ctx context.Context, id string) error            { return nil }
func (f *fakeTextIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	f.queries = append(f.queries, query)
	return f.ids, f.err
}

func TestService_SearchNarrowsByTextIndex(t *testing.T) {
	svc, mock, _ := setupService(t)
	// The index ranks p2 as the only hit even though both Austin listings
	// pass the substring test; the candidate set is narrowed to its ids
	// before the pipeline runs.
	index := &fakeTextIndex{ids: []string{"p2"}}
	svc.indexer = index
	ctx := context.Background()

	mock.ExpectQuery(`FROM properties`).WillReturnRows(catalogRows())

	result, err := svc.Search(ctx, search.Criteria{
		FreeTextQuery: "austin",
		MaxPrice:      1_000_000,
	}, "")

	require.NoError(t, err)
	require.Len(t, result.Properties, 1)
	assert.Equal(t, "p2", result.Properties[0].ID)
	assert.Equal(t, []string{"austin"}, index.queries)
}

func TestService_SearchFallsBackWhenIndexFails(t *testing.T) {
	svc, mock, _ := setupService(t)
	svc.indexer = &fakeTextIndex{err: assert.AnError}
	ctx := context.Background()

	mock.ExpectQuery(`FROM properties`).WillReturnRows(catalogRows())

	// A broken index degrades to the full-catalog pipeline instead of
	// erroring the search.
	result, err := svc.Search(ctx, search.Criteria{
		FreeTextQuery: "austin",
		MaxPrice:      1_000_000,
	}, "")

	require.NoError(t, err)
	assert.Len(t, result.Properties, 2)
}

func TestService_SearchSkipsIndexWithoutQuery(t *testing.T) {
	svc, mock, _ := setupService(t)
	index := &fakeTextIndex{ids: []string{}}
	svc.indexer = index
	ctx := context.Background()

	mock.ExpectQuery(`FROM properties`).WillReturnRows(catalogRows())

	result, err := svc.Search(ctx, search.Criteria{MaxPrice: 1_000_000}, "")

	require.NoError(t, err)
	assert.Len(t, result.Properties, 3)
	assert.Empty(t, index.queries, "structured-only searches never hit the index")
}
