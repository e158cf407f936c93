package repository

import (
	"context"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/identity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

const threadsCollection = "threads"

type firestoreThreadRepository struct {
	client *firestore.Client
}

func NewFirestoreThreadRepository(client *firestore.Client) repository.ThreadRepository {
	return &firestoreThreadRepository{
		client: client,
	}
}

func threadData(t *entity.Thread) map[string]interface{} {
	var lastMessageAt interface{}
	if t.LastMessageAt != nil {
		lastMessageAt = *t.LastMessageAt
	}
	cursor := make(map[string]interface{}, len(t.ReadCursor))
	for userID, at := range t.ReadCursor {
		cursor[userID] = at
	}
	return map[string]interface{}{
		"id":                 t.ID,
		"listingId":          t.ListingID,
		"participants":       t.Participants,
		"lastMessageAt":      lastMessageAt,
		"lastMessageSnippet": t.LastMessageSnippet,
		"readCursor":         cursor,
		"createdAt":          t.CreatedAt,
	}
}

// decodeThread reads a thread document field by field so that every stored
// participant shape, and the older lastMsgAt/lastMsgSnippet/lastRead names,
// survive the read.
func decodeThread(doc *firestore.DocumentSnapshot) *entity.Thread {
	data := doc.Data()
	t := &entity.Thread{
		ID:                   doc.Ref.ID,
		ListingID:            firestoreRefID(data["listingId"]),
		Participants:         firestoreRefIDs(data["participants"]),
		LegacyParticipantIDs: firestoreRefIDs(data["participantsIds"]),
		LegacyBuyerID:        firestoreRefID(data["buyerId"]),
		LegacySellerID:       firestoreRefID(data["sellerId"]),
		ReadCursor:           make(map[string]time.Time),
	}

	if at, ok := firstTime(data, "lastMessageAt", "lastMsgAt"); ok {
		t.LastMessageAt = &at
	}
	if snippet, ok := data["lastMessageSnippet"].(string); ok {
		t.LastMessageSnippet = snippet
	} else if snippet, ok := data["lastMsgSnippet"].(string); ok {
		t.LastMessageSnippet = snippet
	}
	for _, field := range []string{"lastRead", "readCursor"} {
		if cursor, ok := data[field].(map[string]interface{}); ok {
			for userID, v := range cursor {
				if at, ok := v.(time.Time); ok {
					t.ReadCursor[userID] = at
				}
			}
		}
	}
	if at, ok := data["createdAt"].(time.Time); ok {
		t.CreatedAt = at
	}
	return t
}

func firstTime(data map[string]interface{}, fields ...string) (time.Time, bool) {
	for _, field := range fields {
		if at, ok := data[field].(time.Time); ok {
			return at, true
		}
	}
	return time.Time{}, false
}

func (r *firestoreThreadRepository) Create(ctx context.Context, thread *entity.Thread) error {
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now()
	}
	if thread.ReadCursor == nil {
		thread.ReadCursor = make(map[string]time.Time)
	}

	_, err := r.client.Collection(threadsCollection).Doc(thread.ID).Create(ctx, threadData(thread))
	if err != nil {
		return translateFirestoreError(err, "Thread", "create thread")
	}
	return nil
}

func (r *firestoreThreadRepository) GetByID(ctx context.Context, id string) (*entity.Thread, error) {
	doc, err := r.client.Collection(threadsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translateFirestoreError(err, "Thread", "get thread")
	}
	return decodeThread(doc), nil
}

func (r *firestoreThreadRepository) FindByListingAndPair(ctx context.Context, listingID string, pair [2]string) (*entity.Thread, error) {
	// Threads created by this service live under their deterministic id.
	doc, err := r.client.Collection(threadsCollection).Doc(identity.ThreadID(listingID, pair)).Get(ctx)
	if err == nil {
		return decodeThread(doc), nil
	}
	if status.Code(err) != codes.NotFound {
		return nil, translateFirestoreError(err, "Thread", "get thread")
	}

	threads := r.client.Collection(threadsCollection)
	queries := []firestore.Query{
		threads.Where("listingId", "==", listingID).Where("participants", "array-contains", pair[0]),
		threads.Where("listingId", "==", listingID).Where("participantsIds", "array-contains", pair[0]),
		threads.Where("listingId", "==", listingID).Where("buyerId", "==", pair[0]).Where("sellerId", "==", pair[1]),
		threads.Where("listingId", "==", listingID).Where("buyerId", "==", pair[1]).Where("sellerId", "==", pair[0]),
	}

	for _, query := range queries {
		docs, err := query.Documents(ctx).GetAll()
		if err != nil {
			return nil, translateFirestoreError(err, "Thread", "query threads")
		}
		for _, doc := range docs {
			t := decodeThread(doc)
			if samePair(t, pair) {
				return t, nil
			}
		}
	}

	return nil, errors.NotFound("Thread", nil)
}

func (r *firestoreThreadRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Thread, error) {
	threads := r.client.Collection(threadsCollection)
	queries := []firestore.Query{
		threads.Where("participants", "array-contains", userID),
		threads.Where("participantsIds", "array-contains", userID),
		threads.Where("buyerId", "==", userID),
		threads.Where("sellerId", "==", userID),
	}

	results := make([][]*firestore.DocumentSnapshot, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			docs, err := query.Documents(gctx).GetAll()
			if err != nil {
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("Firestore error while fetching threads for user %s: %v", userID, err)
		return nil, translateFirestoreError(err, "Thread", "list threads")
	}

	seen := make(map[string]struct{})
	var out []*entity.Thread
	for _, docs := range results {
		for _, doc := range docs {
			if _, dup := seen[doc.Ref.ID]; dup {
				continue
			}
			seen[doc.Ref.ID] = struct{}{}
			t := decodeThread(doc)
			if identity.IsMember(t, userID) {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (r *firestoreThreadRepository) SaveParticipants(ctx context.Context, thread *entity.Thread) error {
	_, err := r.client.Collection(threadsCollection).Doc(thread.ID).Update(ctx, []firestore.Update{
		{Path: "participants", Value: thread.Participants},
		{Path: "participantsIds", Value: firestore.Delete},
	})
	if err != nil {
		return translateFirestoreError(err, "Thread", "migrate thread participants")
	}
	return nil
}

func (r *firestoreThreadRepository) MarkRead(ctx context.Context, threadID, userID string, at time.Time) error {
	_, err := r.client.Collection(threadsCollection).Doc(threadID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"readCursor", userID}, Value: at},
	})
	if err != nil {
		return translateFirestoreError(err, "Thread", "mark thread read")
	}
	return nil
}

// TouchLastMessage keeps the newest preview when sends finish out of order.
func (r *firestoreThreadRepository) TouchLastMessage(ctx context.Context, threadID string, at time.Time, snippet string) error {
	ref := r.client.Collection(threadsCollection).Doc(threadID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if current, err := doc.DataAt("lastMessageAt"); err == nil {
			if prev, ok := current.(time.Time); ok && prev.After(at) {
				return nil
			}
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "lastMessageAt", Value: at},
			{Path: "lastMessageSnippet", Value: snippet},
		})
	})
	if err != nil {
		return translateFirestoreError(err, "Thread", "update thread")
	}
	return nil
}
