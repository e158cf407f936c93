package repository

import (
	"context"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/repository"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messages(threadID string) *firestore.CollectionRef {
	return r.client.Collection(threadsCollection).Doc(threadID).Collection("messages")
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	// UUIDv7 ids sort in creation order and break createdAt ties.
	if message.ID == "" {
		message.ID = uuid.Must(uuid.NewV7()).String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.messages(message.ThreadID).Doc(message.ID).Create(ctx, message)
	if err != nil {
		return translateFirestoreError(err, "Message", "create message")
	}
	return nil
}

func (r *firestoreMessageRepository) ListByThread(ctx context.Context, threadID string) ([]*entity.Message, error) {
	iter := r.messages(threadID).
		OrderBy("createdAt", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Printf("Firestore error while iterating messages for thread %s: %v", threadID, err)
			return nil, translateFirestoreError(err, "Message", "list messages")
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			log.Printf("Error parsing message data for thread %s: %v", threadID, err)
			continue
		}
		message.ID = doc.Ref.ID
		if message.ThreadID == "" {
			message.ThreadID = threadID
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreMessageRepository) CountUnread(ctx context.Context, threadID, userID string, since *time.Time) (int, error) {
	query := r.messages(threadID).Select("senderId")
	if since != nil {
		query = query.Where("createdAt", ">", *since)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, translateFirestoreError(err, "Message", "count unread messages")
		}
		if sender, _ := doc.Data()["senderId"].(string); sender != userID {
			count++
		}
	}
	return count, nil
}
