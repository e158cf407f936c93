package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/identity"
	"snackswap/internal/domain/repository"
	"snackswap/internal/infrastructure/ratelimit"
	"snackswap/pkg/errors"
	"snackswap/pkg/logger"
)

type ThreadUseCase struct {
	threadRepo  repository.ThreadRepository
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	settings    Settings
	now         func() time.Time
}

func NewThreadUseCase(
	threadRepo repository.ThreadRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	settings Settings,
) *ThreadUseCase {
	return &ThreadUseCase{
		threadRepo:  threadRepo,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		settings:    settings,
		now:         time.Now,
	}
}

type ThreadResponse struct {
	*entity.Thread
	Listing          *entity.ListingSummary `json:"listing,omitempty"`
	ParticipantsInfo []entity.UserSummary   `json:"participants_info"`
}

// StartThread returns the thread between requesterID and the listing's owner,
// creating it when none exists. Concurrent callers for the same listing and
// pair all get the same thread. The rate limit applies to creation only.
func (uc *ThreadUseCase) StartThread(ctx context.Context, listingID, requesterID string) (*entity.Thread, error) {
	listingID = strings.TrimSpace(listingID)
	if !identity.ValidID(listingID) {
		return nil, errors.BadRequest("Invalid listing id", nil)
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	listing, err := uc.listingRepo.GetByID(sctx, listingID)
	cancel()
	if err != nil {
		return nil, err
	}

	if listing.OwnerID == requesterID {
		return nil, errors.BadRequest("You can't message yourself", nil)
	}

	pair := identity.Pair(requesterID, listing.OwnerID)

	existing, err := uc.findThread(ctx, listingID, pair)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	// Only new conversations count against the budget; reopening one is free.
	if uc.settings.RateLimiter != nil {
		if allowed, wait := uc.settings.RateLimiter.Allow(requesterID, ratelimit.ActionStartThread); !allowed {
			logger.Info("StartThread rate limited: user %s must wait %v", requesterID, wait)
			return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before starting another conversation", nil)
		}
	}

	now := uc.now()
	thread := &entity.Thread{
		ID:            identity.ThreadID(listingID, pair),
		ListingID:     listingID,
		Participants:  []string{pair[0], pair[1]},
		LastMessageAt: &now,
		ReadCursor:    make(map[string]time.Time),
		CreatedAt:     now,
	}

	sctx, cancel = uc.settings.storeContext(ctx)
	err = uc.threadRepo.Create(sctx, thread)
	cancel()
	if err == nil {
		logger.Debug("Thread created: threadID=%s, listingID=%s", thread.ID, listingID)
		return thread, nil
	}
	if !errors.Is(err, errors.CodeConflict) {
		return nil, err
	}

	// Another caller created it first.
	return uc.findThread(ctx, listingID, pair)
}

func (uc *ThreadUseCase) findThread(ctx context.Context, listingID string, pair [2]string) (*entity.Thread, error) {
	sctx, cancel := uc.settings.storeContext(ctx)
	thread, err := uc.threadRepo.FindByListingAndPair(sctx, listingID, pair)
	cancel()
	if err != nil {
		return nil, err
	}
	uc.migrate(ctx, thread)
	return thread, nil
}

// migrate rewrites a legacy-shaped thread to the current shape. Persisting is
// best effort; the in-memory record is already usable.
func (uc *ThreadUseCase) migrate(ctx context.Context, thread *entity.Thread) {
	if !identity.Normalize(thread) {
		return
	}
	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()
	if err := uc.threadRepo.SaveParticipants(sctx, thread); err != nil {
		logger.Warn("Thread migration failed: threadID=%s, error=%v", thread.ID, err)
	}
}

// authorize loads a thread and checks that userID takes part in it.
func (uc *ThreadUseCase) authorize(ctx context.Context, threadID, userID string) (*entity.Thread, error) {
	threadID = strings.TrimSpace(threadID)
	if !identity.ValidID(threadID) {
		return nil, errors.BadRequest("Invalid thread id", nil)
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	thread, err := uc.threadRepo.GetByID(sctx, threadID)
	cancel()
	if err != nil {
		return nil, err
	}

	if !identity.IsMember(thread, userID) {
		return nil, errors.Forbidden("Not a participant", nil)
	}
	uc.migrate(ctx, thread)
	return thread, nil
}

// GetThread returns the thread and marks it read for requesterID.
func (uc *ThreadUseCase) GetThread(ctx context.Context, threadID, requesterID string) (*entity.Thread, error) {
	thread, err := uc.authorize(ctx, threadID, requesterID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	sctx, cancel := uc.settings.storeContext(ctx)
	err = uc.threadRepo.MarkRead(sctx, thread.ID, requesterID, now)
	cancel()
	if err != nil {
		logger.Warn("Failed to mark thread read: threadID=%s, userID=%s, error=%v", thread.ID, requesterID, err)
		return thread, nil
	}

	if thread.ReadCursor == nil {
		thread.ReadCursor = make(map[string]time.Time)
	}
	thread.ReadCursor[requesterID] = now

	if uc.settings.Cache != nil {
		if err := uc.settings.Cache.InvalidateMessages(ctx, requesterID); err != nil {
			logger.Warn("Unread cache invalidation failed: userID=%s, error=%v", requesterID, err)
		}
	}
	return thread, nil
}

// ListMine returns the user's threads, most recently active first, with
// listing and participant summaries.
func (uc *ThreadUseCase) ListMine(ctx context.Context, userID string) ([]*ThreadResponse, error) {
	sctx, cancel := uc.settings.storeContext(ctx)
	threads, err := uc.threadRepo.ListByParticipant(sctx, userID)
	cancel()
	if err != nil {
		return nil, err
	}

	for _, t := range threads {
		uc.migrate(ctx, t)
	}
	SortThreads(threads)

	listingIDs := make([]string, 0, len(threads))
	var userIDs []string
	for _, t := range threads {
		listingIDs = append(listingIDs, t.ListingID)
		userIDs = append(userIDs, identity.Resolve(t)...)
	}

	dir := directory{listingRepo: uc.listingRepo, userRepo: uc.userRepo, settings: uc.settings}
	found := dir.load(ctx, listingIDs, userIDs)

	out := make([]*ThreadResponse, 0, len(threads))
	for _, t := range threads {
		resp := &ThreadResponse{
			Thread:           t,
			Listing:          found.listing(t.ListingID),
			ParticipantsInfo: []entity.UserSummary{},
		}
		for _, id := range identity.Resolve(t) {
			if u := found.user(id); u != nil {
				resp.ParticipantsInfo = append(resp.ParticipantsInfo, *u)
			} else {
				resp.ParticipantsInfo = append(resp.ParticipantsInfo, entity.UserSummary{ID: id})
			}
		}
		out = append(out, resp)
	}
	return out, nil
}

// SortThreads orders threads by last activity, newest first. Threads without
// a message time go last, newest created first.
func SortThreads(threads []*entity.Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		a, b := threads[i], threads[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil:
			if !a.LastMessageAt.Equal(*b.LastMessageAt) {
				return a.LastMessageAt.After(*b.LastMessageAt)
			}
		case a.LastMessageAt != nil:
			return true
		case b.LastMessageAt != nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
