package usecase

import (
	"context"
	"strings"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/identity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

type ListingUseCase struct {
	listingRepo repository.ListingRepository
	settings    Settings
}

func NewListingUseCase(listingRepo repository.ListingRepository, settings Settings) *ListingUseCase {
	return &ListingUseCase{
		listingRepo: listingRepo,
		settings:    settings,
	}
}

type CreateListingInput struct {
	Title       string
	Description string
	ImageURL    string
	Quantity    int
	Tags        []string
	Allergies   []string
}

func (uc *ListingUseCase) Create(ctx context.Context, ownerID string, input CreateListingInput) (*entity.Listing, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.BadRequest("title is required", nil)
	}
	quantity := input.Quantity
	if quantity < 1 {
		quantity = 1
	}

	listing := &entity.Listing{
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Quantity:    quantity,
		Tags:        cleanList(input.Tags),
		Allergies:   cleanList(input.Allergies),
		Status:      entity.ListingAvailable,
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()
	if err := uc.listingRepo.Create(sctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

func (uc *ListingUseCase) Get(ctx context.Context, id string) (*entity.Listing, error) {
	id = strings.TrimSpace(id)
	if !identity.ValidID(id) {
		return nil, errors.BadRequest("Invalid listing id", nil)
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()
	return uc.listingRepo.GetByID(sctx, id)
}

// SetStatus lets the owner mark a listing available, reserved or closed.
func (uc *ListingUseCase) SetStatus(ctx context.Context, id, actorID, status string) (*entity.Listing, error) {
	next := entity.ListingStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, errors.BadRequest("status must be available, reserved or closed", nil)
	}

	listing, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != actorID {
		return nil, errors.Forbidden("Only the listing owner can change its status", nil)
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()
	if err := uc.listingRepo.SetStatus(sctx, listing.ID, next); err != nil {
		return nil, err
	}
	listing.Status = next
	return listing, nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
