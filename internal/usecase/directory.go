package usecase

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/logger"
)

// lookupConcurrency bounds the parallel store reads of one enrichment pass.
const lookupConcurrency = 8

// directory resolves listing and user summaries for list views. Lookups that
// fail are logged and left out; callers render what was found.
type directory struct {
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	settings    Settings
}

type summaries struct {
	listings map[string]*entity.Listing
	users    map[string]*entity.User
}

func (s summaries) listing(id string) *entity.ListingSummary {
	l, ok := s.listings[id]
	if !ok {
		return nil
	}
	summary := l.Summary()
	if owner := s.user(l.OwnerID); owner != nil {
		summary.Owner = owner
	}
	return summary
}

func (s summaries) user(id string) *entity.UserSummary {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	summary := u.Summary()
	return &summary
}

func (d directory) load(ctx context.Context, listingIDs, userIDs []string) summaries {
	out := summaries{
		listings: make(map[string]*entity.Listing),
		users:    make(map[string]*entity.User),
	}
	var mu sync.Mutex

	// Listing owners are needed for the owner summary, so listings load first.
	var listings errgroup.Group
	listings.SetLimit(lookupConcurrency)
	for _, id := range dedupe(listingIDs) {
		id := id
		listings.Go(func() error {
			sctx, cancel := d.settings.storeContext(ctx)
			defer cancel()
			l, err := d.listingRepo.GetByID(sctx, id)
			if err != nil {
				logger.Warn("Listing lookup failed: listingID=%s, error=%v", id, err)
				return nil
			}
			mu.Lock()
			out.listings[id] = l
			mu.Unlock()
			return nil
		})
	}
	_ = listings.Wait()

	for _, l := range out.listings {
		userIDs = append(userIDs, l.OwnerID)
	}

	var users errgroup.Group
	users.SetLimit(lookupConcurrency)
	for _, id := range dedupe(userIDs) {
		id := id
		users.Go(func() error {
			sctx, cancel := d.settings.storeContext(ctx)
			defer cancel()
			u, err := d.userRepo.GetByID(sctx, id)
			if err != nil {
				logger.Debug("User lookup failed: userID=%s, error=%v", id, err)
				return nil
			}
			mu.Lock()
			out.users[id] = u
			mu.Unlock()
			return nil
		})
	}
	_ = users.Wait()

	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
