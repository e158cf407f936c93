package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

type postgresListingRepository struct {
	db *sql.DB
}

func NewPostgresListingRepository(db *sql.DB) repository.ListingRepository {
	return &postgresListingRepository{db: db}
}

func jsonList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	return string(raw), err
}

func (r *postgresListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	if listing.Status == "" {
		listing.Status = entity.ListingAvailable
	}

	tags, err := jsonList(listing.Tags)
	if err != nil {
		return errors.Internal("Failed to encode listing tags", err)
	}
	allergies, err := jsonList(listing.Allergies)
	if err != nil {
		return errors.Internal("Failed to encode listing allergies", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO listings (id, owner_id, title, description, image_url, quantity, tags, allergies, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10, $11)
	`, listing.ID, listing.OwnerID, listing.Title, listing.Description, listing.ImageURL, listing.Quantity,
		tags, allergies, string(listing.Status), listing.CreatedAt, listing.UpdatedAt)
	return translatePostgresError(err, "Listing", "create listing", "")
}

func (r *postgresListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	var (
		l         entity.Listing
		status    string
		tags      []byte
		allergies []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, image_url, quantity, tags, allergies, status, created_at, updated_at
		FROM listings WHERE id = $1
	`, id).Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.ImageURL, &l.Quantity, &tags, &allergies, &status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, translatePostgresError(err, "Listing", "get listing", "")
	}
	l.Status = entity.ListingStatus(status)
	if err := json.Unmarshal(tags, &l.Tags); err != nil {
		return nil, errors.Internal("Failed to parse listing tags", err)
	}
	if err := json.Unmarshal(allergies, &l.Allergies); err != nil {
		return nil, errors.Internal("Failed to parse listing allergies", err)
	}
	return &l, nil
}

func (r *postgresListingRepository) SetStatus(ctx context.Context, id string, status entity.ListingStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return translatePostgresError(err, "Listing", "update listing status", "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("Listing", nil)
	}
	return nil
}
