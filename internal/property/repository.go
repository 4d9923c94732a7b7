// internal/property/repository.go
package property

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"oikos-server/internal/common/errors"
	"oikos-server/internal/models"
)

const propertyColumns = `id, seller_id, title, description, price, property_type,
	bedrooms, bathrooms, area, year_built, address, city, state, zip_code,
	amenities, images, contact_name, contact_email, contact_phone,
	created_at, updated_at`

// Repository is the Postgres persistence layer for property listings.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new listing. Timestamps are set here, not by the caller.
func (r *Repository) Create(ctx context.Context, prop *models.Property) error {
	now := time.Now().UTC()
	prop.CreatedAt = now
	prop.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO properties (`+propertyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		prop.ID, prop.SellerID, prop.Title, prop.Description, prop.Price,
		prop.PropertyType, prop.Bedrooms, prop.Bathrooms, prop.Area,
		prop.YearBuilt, prop.Address, prop.City, prop.State, prop.ZipCode,
		pq.Array(prop.Amenities), pq.Array(prop.Images),
		prop.ContactName, prop.ContactEmail, prop.ContactPhone,
		prop.CreatedAt, prop.UpdatedAt,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// GetByID fetches one listing.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE id = $1`, id)

	prop, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewPropertyNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("property.GetByID", err)
	}
	return prop, nil
}

// List returns listings newest first. A non-empty sellerID restricts the
// result to one owner.
func (r *Repository) List(ctx context.Context, sellerID string, limit int) ([]*models.Property, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		ORDER BY created_at DESC
		LIMIT $1`
	args := []interface{}{limit}
	if sellerID != "" {
		query = `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
		args = []interface{}{sellerID, limit}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("property.List", err)
	}
	defer rows.Close()

	var properties []*models.Property
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("property.List", err)
		}
		properties = append(properties, prop)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("property.List", err)
	}
	return properties, nil
}

// Update rewrites the mutable columns of a listing owned by sellerID. The
// ownership check happens in the WHERE clause so a non-owner update is
// indistinguishable from a missing row at the SQL level; the service layer
// disambiguates the two.
func (r *Repository) Update(ctx context.Context, sellerID string, prop *models.Property) error {
	prop.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE properties
		SET title = $1, description = $2, price = $3, property_type = $4,
		    bedrooms = $5, bathrooms = $6, area = $7, year_built = $8,
		    address = $9, city = $10, state = $11, zip_code = $12,
		    amenities = $13, images = $14,
		    contact_name = $15, contact_email = $16, contact_phone = $17,
		    updated_at = $18
		WHERE id = $19 AND seller_id = $20`,
		prop.Title, prop.Description, prop.Price, prop.PropertyType,
		prop.Bedrooms, prop.Bathrooms, prop.Area, prop.YearBuilt,
		prop.Address, prop.City, prop.State, prop.ZipCode,
		pq.Array(prop.Amenities), pq.Array(prop.Images),
		prop.ContactName, prop.ContactEmail, prop.ContactPhone,
		prop.UpdatedAt, prop.ID, sellerID,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("property.Update", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("property.Update", err)
	}
	if affected == 0 {
		return errors.NewNotPropertyOwnerError(prop.ID)
	}
	return nil
}

// Delete removes a listing owned by sellerID.
func (r *Repository) Delete(ctx context.Context, sellerID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM properties
		WHERE id = $1 AND seller_id = $2`, id, sellerID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("property.Delete", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("property.Delete", err)
	}
	if affected == 0 {
		return errors.NewNotPropertyOwnerError(id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var prop models.Property
	var yearBuilt sql.NullInt64
	var amenities, images pq.StringArray

	err := row.Scan(
		&prop.ID, &prop.SellerID, &prop.Title, &prop.Description, &prop.Price,
		&prop.PropertyType, &prop.Bedrooms, &prop.Bathrooms, &prop.Area,
		&yearBuilt, &prop.Address, &prop.City, &prop.State, &prop.ZipCode,
		&amenities, &images,
		&prop.ContactName, &prop.ContactEmail, &prop.ContactPhone,
		&prop.CreatedAt, &prop.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if yearBuilt.Valid {
		prop.YearBuilt = int(yearBuilt.Int64)
	}
	prop.Amenities = []string(amenities)
	prop.Images = []string(images)
	return &prop, nil
}
