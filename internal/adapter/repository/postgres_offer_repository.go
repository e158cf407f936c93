package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

const duplicatePendingOffer = "You already have a pending offer for this listing"

type postgresOfferRepository struct {
	db *sql.DB
}

func NewPostgresOfferRepository(db *sql.DB) repository.OfferRepository {
	return &postgresOfferRepository{db: db}
}

const selectOffers = `
	SELECT id, listing_id, owner_id, offered_by, note, status, created_at, updated_at
	FROM offers
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOffer(row rowScanner) (*entity.Offer, error) {
	var o entity.Offer
	var status string
	if err := row.Scan(&o.ID, &o.ListingID, &o.OwnerID, &o.OfferedBy, &o.Note, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = entity.OfferStatus(status)
	return &o, nil
}

// Create relies on the partial unique index over pending offers to reject a
// second pending offer from the same sender on the same listing.
func (r *postgresOfferRepository) Create(ctx context.Context, offer *entity.Offer) error {
	if offer.ID == "" {
		offer.ID = uuid.Must(uuid.NewV7()).String()
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now()
	}
	offer.UpdatedAt = offer.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO offers (id, listing_id, owner_id, offered_by, note, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, offer.ID, offer.ListingID, offer.OwnerID, offer.OfferedBy, offer.Note, string(offer.Status), offer.CreatedAt, offer.UpdatedAt)
	return translatePostgresError(err, "Offer", "create offer", duplicatePendingOffer)
}

func (r *postgresOfferRepository) GetByID(ctx context.Context, id string) (*entity.Offer, error) {
	offer, err := scanOffer(r.db.QueryRowContext(ctx, selectOffers+` WHERE id = $1`, id))
	if err != nil {
		return nil, translatePostgresError(err, "Offer", "get offer", "")
	}
	return offer, nil
}

func (r *postgresOfferRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Offer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translatePostgresError(err, "Offer", "list offers", "")
	}
	defer rows.Close()

	var offers []*entity.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, translatePostgresError(err, "Offer", "list offers", "")
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePostgresError(err, "Offer", "list offers", "")
	}
	return offers, nil
}

func (r *postgresOfferRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Offer, error) {
	return r.list(ctx, selectOffers+` WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`, ownerID)
}

func (r *postgresOfferRepository) ListBySender(ctx context.Context, senderID string) ([]*entity.Offer, error) {
	return r.list(ctx, selectOffers+` WHERE offered_by = $1 ORDER BY created_at DESC, id DESC`, senderID)
}

func (r *postgresOfferRepository) CountPendingByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM offers WHERE owner_id = $1 AND status = $2
	`, ownerID, string(entity.OfferPending)).Scan(&count)
	if err != nil {
		return 0, translatePostgresError(err, "Offer", "count pending offers", "")
	}
	return count, nil
}

// Transition locks the offer row, and the listing row when the decision
// touches it, so the status pair commits or rolls back together.
func (r *postgresOfferRepository) Transition(ctx context.Context, offerID string, decide repository.OfferDecision) (*entity.Offer, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translatePostgresError(err, "Offer", "update offer", "")
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanOffer(tx.QueryRowContext(ctx, selectOffers+` WHERE id = $1 FOR UPDATE`, offerID))
	if err != nil {
		return nil, translatePostgresError(err, "Offer", "update offer", "")
	}

	transition, err := decide(current)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if transition.ListingStatus != "" {
		var listingID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM listings WHERE id = $1 FOR UPDATE`, current.ListingID).Scan(&listingID)
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("Listing", err)
		}
		if err != nil {
			return nil, translatePostgresError(err, "Listing", "update offer", "")
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE listings SET status = $2, updated_at = $3 WHERE id = $1
		`, current.ListingID, string(transition.ListingStatus), now); err != nil {
			return nil, translatePostgresError(err, "Listing", "update offer", "")
		}
	}

	current.Apply(transition, now)
	if _, err := tx.ExecContext(ctx, `
		UPDATE offers SET status = $2, updated_at = $3 WHERE id = $1
	`, current.ID, string(current.Status), now); err != nil {
		return nil, translatePostgresError(err, "Offer", "update offer", "")
	}

	if err := tx.Commit(); err != nil {
		return nil, translatePostgresError(err, "Offer", "update offer", "")
	}
	return current, nil
}

func (r *postgresOfferRepository) HasAccepted(ctx context.Context, listingID, userA, userB string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM offers
			WHERE listing_id = $1 AND status = $4
				AND ((owner_id = $2 AND offered_by = $3) OR (owner_id = $3 AND offered_by = $2))
		)
	`, listingID, userA, userB, string(entity.OfferAccepted)).Scan(&exists)
	if err != nil {
		return false, translatePostgresError(err, "Offer", "check accepted offer", "")
	}
	return exists, nil
}
