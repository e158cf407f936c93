package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/logger"
)

// UnreadUseCase computes notification badge counts. It never fails: store
// errors degrade to zero or partial counts.
type UnreadUseCase struct {
	threadRepo  repository.ThreadRepository
	messageRepo repository.MessageRepository
	offerRepo   repository.OfferRepository
	settings    Settings
}

func NewUnreadUseCase(
	threadRepo repository.ThreadRepository,
	messageRepo repository.MessageRepository,
	offerRepo repository.OfferRepository,
	settings Settings,
) *UnreadUseCase {
	return &UnreadUseCase{
		threadRepo:  threadRepo,
		messageRepo: messageRepo,
		offerRepo:   offerRepo,
		settings:    settings,
	}
}

func (uc *UnreadUseCase) Messages(ctx context.Context, userID string) *entity.UnreadMessages {
	var (
		gen       int64
		cacheable bool
	)
	if cache := uc.settings.Cache; cache != nil {
		cached, g, ok, err := cache.GetMessages(ctx, userID)
		if err != nil {
			logger.Warn("Unread cache read failed: userID=%s, error=%v", userID, err)
		} else if ok {
			return cached
		} else {
			gen, cacheable = g, true
		}
	}

	result := uc.countMessages(ctx, userID)

	if cacheable && !result.Partial {
		if err := uc.settings.Cache.SetMessages(ctx, userID, gen, result); err != nil {
			logger.Warn("Unread cache write failed: userID=%s, error=%v", userID, err)
		}
	}
	return result
}

func (uc *UnreadUseCase) countMessages(ctx context.Context, userID string) *entity.UnreadMessages {
	result := &entity.UnreadMessages{PerThread: map[string]int{}}

	sctx, cancel := uc.settings.storeContext(ctx)
	threads, err := uc.threadRepo.ListByParticipant(sctx, userID)
	cancel()
	if err != nil {
		logger.Warn("Unread messages: listing threads failed: userID=%s, error=%v", userID, err)
		result.Partial = true
		return result
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(lookupConcurrency)
	for _, t := range threads {
		t := t
		g.Go(func() error {
			sctx, cancel := uc.settings.storeContext(ctx)
			defer cancel()

			n, err := uc.messageRepo.CountUnread(sctx, t.ID, userID, readCursor(t, userID))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("Unread messages: counting failed: threadID=%s, userID=%s, error=%v", t.ID, userID, err)
				result.Partial = true
				return nil
			}
			if n > 0 {
				result.PerThread[t.ID] = n
				result.Total += n
			}
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// readCursor is nil when the user never opened the thread, so every message
// from the other side counts.
func readCursor(t *entity.Thread, userID string) *time.Time {
	at, ok := t.LastReadBy(userID)
	if !ok {
		return nil
	}
	return &at
}

func (uc *UnreadUseCase) Offers(ctx context.Context, userID string) *entity.UnreadOffers {
	var (
		gen       int64
		cacheable bool
	)
	if cache := uc.settings.Cache; cache != nil {
		cached, g, ok, err := cache.GetOffers(ctx, userID)
		if err != nil {
			logger.Warn("Unread cache read failed: userID=%s, error=%v", userID, err)
		} else if ok {
			return cached
		} else {
			gen, cacheable = g, true
		}
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	n, err := uc.offerRepo.CountPendingByOwner(sctx, userID)
	cancel()
	if err != nil {
		logger.Warn("Unread offers: counting failed: userID=%s, error=%v", userID, err)
		return &entity.UnreadOffers{Partial: true}
	}

	result := &entity.UnreadOffers{Total: n}
	if cacheable {
		if err := uc.settings.Cache.SetOffers(ctx, userID, gen, result); err != nil {
			logger.Warn("Unread cache write failed: userID=%s, error=%v", userID, err)
		}
	}
	return result
}
