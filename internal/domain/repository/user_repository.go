package repository

import (
	"context"

	"snackswap/internal/domain/entity"
)

type UserRepository interface {
	// Upsert creates the user or refreshes name and email, keeping ratings.
	Upsert(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	UpdateRating(ctx context.Context, id string, avg float64, count int) error
}
