package usecase

import (
	"context"
	"strings"
	"time"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/identity"
	"snackswap/internal/domain/repository"
	"snackswap/internal/infrastructure/ratelimit"
	"snackswap/pkg/errors"
	"snackswap/pkg/logger"
)

const (
	OfferDirectionIncoming = "incoming"
	OfferDirectionOutgoing = "outgoing"
)

type OfferUseCase struct {
	offerRepo   repository.OfferRepository
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	settings    Settings
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewOfferUseCase(
	offerRepo repository.OfferRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	settings Settings,
) *OfferUseCase {
	if settings.TransitionAttempts < 1 {
		settings.TransitionAttempts = 1
	}
	if settings.RetryBackoff <= 0 {
		settings.RetryBackoff = 50 * time.Millisecond
	}
	return &OfferUseCase{
		offerRepo:   offerRepo,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		settings:    settings,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

type CreateOfferInput struct {
	ListingID string
	Note      string
}

type OfferResponse struct {
	*entity.Offer
	Listing *entity.ListingSummary `json:"listing,omitempty"`
	Sender  *entity.UserSummary    `json:"sender,omitempty"`
}

// Create places a pending offer on a listing. The listing owner is copied
// onto the offer and stays its owner even if the listing changes hands.
func (uc *OfferUseCase) Create(ctx context.Context, senderID string, input CreateOfferInput) (*entity.Offer, error) {
	listingID := strings.TrimSpace(input.ListingID)
	if !identity.ValidID(listingID) {
		return nil, errors.BadRequest("Invalid listing id", nil)
	}

	if uc.settings.RateLimiter != nil {
		if allowed, wait := uc.settings.RateLimiter.Allow(senderID, ratelimit.ActionCreateOffer); !allowed {
			logger.Info("CreateOffer rate limited: user %s must wait %v", senderID, wait)
			return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before making another offer", nil)
		}
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	listing, err := uc.listingRepo.GetByID(sctx, listingID)
	cancel()
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.BadRequest("Listing not found", err)
		}
		return nil, err
	}

	if listing.OwnerID == senderID {
		return nil, errors.BadRequest("You cannot offer on your own listing", nil)
	}

	offer := &entity.Offer{
		ListingID: listingID,
		OwnerID:   listing.OwnerID,
		OfferedBy: senderID,
		Note:      entity.TruncateNote(input.Note),
		Status:    entity.OfferPending,
		CreatedAt: uc.now(),
	}

	sctx, cancel = uc.settings.storeContext(ctx)
	err = uc.offerRepo.Create(sctx, offer)
	cancel()
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, offer.OwnerID)
	return offer, nil
}

// Transition applies action to the offer on behalf of actorID. Accepting
// reserves the listing in the same atomic write. Transient store failures
// are retried; when attempts run out the offer is left as it was. The action
// is checked only after the offer is found and still pending.
func (uc *OfferUseCase) Transition(ctx context.Context, offerID, actorID, rawAction string) (*entity.Offer, error) {
	action := entity.OfferAction(rawAction)

	offerID = strings.TrimSpace(offerID)
	if !identity.ValidID(offerID) {
		return nil, errors.BadRequest("Invalid offer id", nil)
	}

	decide := func(current *entity.Offer) (entity.OfferTransition, error) {
		return current.Decide(action, actorID)
	}

	backoff := uc.settings.RetryBackoff
	var lastErr error
	for attempt := 1; attempt <= uc.settings.TransitionAttempts; attempt++ {
		sctx, cancel := uc.settings.storeContext(ctx)
		offer, err := uc.offerRepo.Transition(sctx, offerID, decide)
		cancel()

		if err == nil {
			logger.Info("Offer %s: offerID=%s, actor=%s, status=%s", action, offer.ID, actorID, offer.Status)
			uc.invalidate(ctx, offer.OwnerID)
			return offer, nil
		}
		if !errors.IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		logger.LogOfferError(offerID, string(action), err)
		if attempt == uc.settings.TransitionAttempts {
			break
		}
		if err := uc.sleep(ctx, backoff); err != nil {
			break
		}
		backoff *= 2
	}

	return nil, errors.Unavailable("Could not update the offer, please retry", lastErr)
}

// ListMine returns offers received (incoming) or sent (outgoing) by userID,
// newest first. An empty direction means incoming.
func (uc *OfferUseCase) ListMine(ctx context.Context, userID, direction string) ([]*OfferResponse, error) {
	direction = strings.ToLower(strings.TrimSpace(direction))
	if direction == "" {
		direction = OfferDirectionIncoming
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	var (
		offers []*entity.Offer
		err    error
	)
	switch direction {
	case OfferDirectionIncoming:
		offers, err = uc.offerRepo.ListByOwner(sctx, userID)
	case OfferDirectionOutgoing:
		offers, err = uc.offerRepo.ListBySender(sctx, userID)
	default:
		cancel()
		return nil, errors.BadRequest("type must be incoming or outgoing", nil)
	}
	cancel()
	if err != nil {
		return nil, err
	}

	listingIDs := make([]string, 0, len(offers))
	senderIDs := make([]string, 0, len(offers))
	for _, o := range offers {
		listingIDs = append(listingIDs, o.ListingID)
		senderIDs = append(senderIDs, o.OfferedBy)
	}
	dir := directory{listingRepo: uc.listingRepo, userRepo: uc.userRepo, settings: uc.settings}
	found := dir.load(ctx, listingIDs, senderIDs)

	out := make([]*OfferResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, &OfferResponse{
			Offer:   o,
			Listing: found.listing(o.ListingID),
			Sender:  found.user(o.OfferedBy),
		})
	}
	return out, nil
}

func (uc *OfferUseCase) invalidate(ctx context.Context, ownerID string) {
	if uc.settings.Cache == nil {
		return
	}
	if err := uc.settings.Cache.InvalidateOffers(ctx, ownerID); err != nil {
		logger.Warn("Unread cache invalidation failed: userID=%s, error=%v", ownerID, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
