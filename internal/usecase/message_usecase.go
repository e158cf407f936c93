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

type MessageUseCase struct {
	threads     *ThreadUseCase
	threadRepo  repository.ThreadRepository
	messageRepo repository.MessageRepository
	settings    Settings
	now         func() time.Time
}

func NewMessageUseCase(
	threads *ThreadUseCase,
	threadRepo repository.ThreadRepository,
	messageRepo repository.MessageRepository,
	settings Settings,
) *MessageUseCase {
	return &MessageUseCase{
		threads:     threads,
		threadRepo:  threadRepo,
		messageRepo: messageRepo,
		settings:    settings,
		now:         time.Now,
	}
}

// Send appends a message to the thread and refreshes the thread's last
// message preview. A failed preview update is logged; the stored message is
// still returned.
func (uc *MessageUseCase) Send(ctx context.Context, threadID, senderID, content string) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.BadRequest("content required", nil)
	}

	thread, err := uc.threads.authorize(ctx, threadID, senderID)
	if err != nil {
		return nil, err
	}

	if uc.settings.RateLimiter != nil {
		if allowed, wait := uc.settings.RateLimiter.Allow(senderID, ratelimit.ActionSendMessage); !allowed {
			logger.Info("SendMessage rate limited: user %s must wait %v", senderID, wait)
			return nil, errors.TooManyRequests("Rate limit exceeded. Please slow down", nil)
		}
	}

	message := &entity.Message{
		ThreadID:  thread.ID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: uc.now(),
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	err = uc.messageRepo.Create(sctx, message)
	cancel()
	if err != nil {
		return nil, err
	}

	sctx, cancel = uc.settings.storeContext(ctx)
	err = uc.threadRepo.TouchLastMessage(sctx, thread.ID, message.CreatedAt, entity.Snippet(content))
	cancel()
	if err != nil {
		logger.Warn("Failed to update thread preview: threadID=%s, messageID=%s, error=%v", thread.ID, message.ID, err)
	}

	if uc.settings.Cache != nil {
		var others []string
		for _, id := range identity.Resolve(thread) {
			if id != senderID {
				others = append(others, id)
			}
		}
		if err := uc.settings.Cache.InvalidateMessages(ctx, others...); err != nil {
			logger.Warn("Unread cache invalidation failed: threadID=%s, error=%v", thread.ID, err)
		}
	}

	return message, nil
}

// ListByThread returns the thread's messages, oldest first.
func (uc *MessageUseCase) ListByThread(ctx context.Context, threadID, requesterID string) ([]*entity.Message, error) {
	thread, err := uc.threads.authorize(ctx, threadID, requesterID)
	if err != nil {
		return nil, err
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()
	messages, err := uc.messageRepo.ListByThread(sctx, thread.ID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*entity.Message{}
	}
	return messages, nil
}
