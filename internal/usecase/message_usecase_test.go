package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snackswap/internal/domain/entity"
	"snackswap/internal/infrastructure/ratelimit"
	"snackswap/pkg/errors"
)

func TestSend_AppendsInOrderAndUpdatesPreview(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()
	listing := f.listing(t, "alice", "Churros")
	thread, err := f.threads.StartThread(ctx, listing.ID, "bob")
	require.NoError(t, err)

	for _, content := range []string{"hi", "  are these vegan?  ", "yes!"} {
		sender := "bob"
		if content == "yes!" {
			sender = "alice"
		}
		_, err := f.messages.Send(ctx, thread.ID, sender, content)
		require.NoError(t, err)
	}

	messages, err := f.messages.ListByThread(ctx, thread.ID, "alice")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, "are these vegan?", messages[1].Content, "content is trimmed")
	assert.Equal(t, "yes!", messages[2].Content)
	assert.True(t, messages[0].CreatedAt.Before(messages[1].CreatedAt))

	stored, _ := f.store.Thread(thread.ID)
	assert.Equal(t, "yes!", stored.LastMessageSnippet)
	require.NotNil(t, stored.LastMessageAt)
	assert.True(t, stored.LastMessageAt.Equal(messages[2].CreatedAt))
}

func TestSend_SnippetIsTruncated(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()
	listing := f.listing(t, "alice", "Cake")
	thread, err := f.threads.StartThread(ctx, listing.ID, "bob")
	require.NoError(t, err)

	long := strings.Repeat("a", entity.MaxSnippetLength+50)
	msg, err := f.messages.Send(ctx, thread.ID, "bob", long)
	require.NoError(t, err)
	assert.Equal(t, long, msg.Content)

	stored, _ := f.store.Thread(thread.ID)
	assert.Len(t, stored.LastMessageSnippet, entity.MaxSnippetLength)
}

func TestSend_Rejections(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()
	listing := f.listing(t, "alice", "Flan")
	thread, err := f.threads.StartThread(ctx, listing.ID, "bob")
	require.NoError(t, err)

	_, err = f.messages.Send(ctx, thread.ID, "bob", "   ")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = f.messages.Send(ctx, thread.ID, "mallory", "hello")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = f.messages.Send(ctx, "missing", "bob", "hello")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = f.messages.ListByThread(ctx, thread.ID, "mallory")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestSend_RateLimited(t *testing.T) {
	limiter := ratelimit.NewRateLimiterWithPolicies(map[string]ratelimit.Policy{
		ratelimit.ActionSendMessage: {Burst: 2, Every: time.Hour},
	})
	f := newFixture(t, Settings{RateLimiter: limiter})
	ctx := context.Background()
	listing := f.listing(t, "alice", "Brownies")
	thread, err := f.threads.StartThread(ctx, listing.ID, "bob")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := f.messages.Send(ctx, thread.ID, "bob", "msg")
		require.NoError(t, err)
	}
	_, err = f.messages.Send(ctx, thread.ID, "bob", "one too many")
	assert.True(t, errors.Is(err, errors.CodeTooManyRequests))

	// The other participant has their own bucket.
	_, err = f.messages.Send(ctx, thread.ID, "alice", "slow down")
	assert.NoError(t, err)
}

func TestListByThread_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()
	listing := f.listing(t, "alice", "Pretzels")
	thread, err := f.threads.StartThread(ctx, listing.ID, "bob")
	require.NoError(t, err)

	messages, err := f.messages.ListByThread(ctx, thread.ID, "bob")
	require.NoError(t, err)
	assert.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestListByThread_LegacyParticipantCanRead(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()

	f.store.SeedThread(&entity.Thread{ID: "old", ListingID: "l-old", LegacyParticipantIDs: []string{"bob", "alice"}})

	_, err := f.messages.Send(ctx, "old", "alice", "hello from before")
	require.NoError(t, err)

	messages, err := f.messages.ListByThread(ctx, "old", "bob")
	require.NoError(t, err)
	require.Len(t, messages, 1)

	stored, _ := f.store.Thread("old")
	assert.Equal(t, []string{"alice", "bob"}, stored.Participants)
	assert.Nil(t, stored.LegacyParticipantIDs)
}
