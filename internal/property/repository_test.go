// internal/property/repository_test.go
package property

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "oikos-server/internal/common/errors"
	"oikos-server/internal/models"
)

func setupMockDB(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func testTimestamp() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

var scanColumns = []string{
	"id", "seller_id", "title", "description", "price", "property_type",
	"bedrooms", "bathrooms", "area", "year_built", "address", "city", "state",
	"zip_code", "amenities", "images", "contact_name", "contact_email",
	"contact_phone", "created_at", "updated_at",
}

func propertyRow(id string) *sqlmock.Rows {
	return sqlmock.NewRows(scanColumns).AddRow(
		id, "user-1", "Cozy Cottage", "Two bed cottage", "$250,000", "House",
		2, 1.5, 900, 1978, "12 Oak Ln", "Austin", "TX", "78701",
		"{pool,garage}", "{https://img/1.jpg,https://img/2.jpg}",
		"Jane Doe", "jane@example.com", "555-0100",
		time.Now().UTC(), time.Now().UTC(),
	)
}

// ========================== Create Tests

func TestRepository_Create(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO properties`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	prop := &models.Property{
		ID:       "prop-1",
		SellerID: "user-1",
		Title:    "Cozy Cottage",
		Price:    "$250,000",
		Images:   []string{"https://img/1.jpg"},
	}
	err := repo.Create(context.Background(), prop)

	require.NoError(t, err)
	assert.False(t, prop.CreatedAt.IsZero(), "Create stamps the timestamps")
	assert.Equal(t, prop.CreatedAt, prop.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateInsertError(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO properties`).WillReturnError(sql.ErrConnDone)

	err := repo.Create(context.Background(), &models.Property{ID: "prop-1"})

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeDatabaseInsertFailed, stderrors.AsStandard(err).Code)
}

// ========================== Read Tests

func TestRepository_GetByID(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`FROM properties\s+WHERE id = \$1`).
		WithArgs("prop-1").
		WillReturnRows(propertyRow("prop-1"))

	prop, err := repo.GetByID(context.Background(), "prop-1")

	require.NoError(t, err)
	assert.Equal(t, "prop-1", prop.ID)
	assert.Equal(t, "Cozy Cottage", prop.Title)
	assert.Equal(t, 1978, prop.YearBuilt)
	assert.Equal(t, []string{"pool", "garage"}, prop.Amenities)
	assert.Equal(t, "https://img/1.jpg", prop.FeaturedImage())
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`FROM properties\s+WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(scanColumns))

	_, err := repo.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodePropertyNotFound, stderrors.AsStandard(err).Code)
}

func TestRepository_ListAll(t *testing.T) {
	repo, mock := setupMockDB(t)

	rows := propertyRow("prop-1").AddRow(
		"prop-2", "user-2", "Downtown Loft", "City loft", "$450,000", "Apartment",
		1, 1.0, 600, 2005, "9 Elm St", "Austin", "TX", "78702",
		"{}", "{}", "", "", "",
		time.Now().UTC(), time.Now().UTC(),
	)
	mock.ExpectQuery(`FROM properties\s+ORDER BY created_at DESC`).
		WithArgs(100).
		WillReturnRows(rows)

	// limit <= 0 falls back to the default page size.
	properties, err := repo.List(context.Background(), "", 0)

	require.NoError(t, err)
	require.Len(t, properties, 2)
	assert.Equal(t, "prop-1", properties[0].ID)
	assert.Equal(t, "prop-2", properties[1].ID)
}

func TestRepository_ListBySeller(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`FROM properties\s+WHERE seller_id = \$1`).
		WithArgs("user-1", 10).
		WillReturnRows(propertyRow("prop-1"))

	properties, err := repo.List(context.Background(), "user-1", 10)

	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, "user-1", properties[0].SellerID)
}

// ========================== Ownership Tests

func TestRepository_UpdateNotOwner(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectExec(`UPDATE properties`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "stranger", &models.Property{ID: "prop-1"})

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeNotPropertyOwner, stderrors.AsStandard(err).Code)
}

func TestRepository_UpdateByOwner(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectExec(`UPDATE properties`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	prop := &models.Property{ID: "prop-1", Title: "Renamed Cottage"}
	err := repo.Update(context.Background(), "user-1", prop)

	require.NoError(t, err)
	assert.False(t, prop.UpdatedAt.IsZero())
}

func TestRepository_DeleteNotOwner(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectExec(`DELETE FROM properties`).
		WithArgs("prop-1", "stranger").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "stranger", "prop-1")

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeNotPropertyOwner, stderrors.AsStandard(err).Code)
}

func TestRepository_DeleteByOwner(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectExec(`DELETE FROM properties`).
		WithArgs("prop-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "user-1", "prop-1")

	require.NoError(t, err)
}
