package repository

import (
	"context"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

const usersCollection = "users"

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	ref := r.client.Collection(usersCollection).Doc(user.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if snap == nil || !snap.Exists() {
			if user.CreatedAt.IsZero() {
				user.CreatedAt = time.Now()
			}
			return tx.Create(ref, user)
		}

		// Only include non-empty fields so a partial profile does not
		// overwrite stored data.
		updates := map[string]interface{}{}
		if user.Name != "" {
			updates["name"] = user.Name
		}
		if user.Email != "" {
			updates["email"] = user.Email
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Set(ref, updates, firestore.MergeAll)
	})
	if err != nil {
		log.Printf("Firestore upsert error for user %s: %v", user.ID, err)
		return translateFirestoreError(err, "User", "save user")
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translateFirestoreError(err, "User", "get user")
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = doc.Ref.ID
	return &user, nil
}

func (r *firestoreUserRepository) UpdateRating(ctx context.Context, id string, avg float64, count int) error {
	_, err := r.client.Collection(usersCollection).Doc(id).Set(ctx, map[string]interface{}{
		"ratingAvg":   avg,
		"ratingCount": count,
	}, firestore.MergeAll)
	if err != nil {
		return translateFirestoreError(err, "User", "update rating")
	}
	return nil
}
