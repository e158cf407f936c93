package repository

import (
	"context"
	"database/sql"
	"time"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) repository.UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email)
	`, user.ID, user.Name, user.Email, user.CreatedAt)
	return translatePostgresError(err, "User", "save user", "")
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, rating_avg, rating_count, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.RatingAvg, &u.RatingCount, &u.CreatedAt)
	if err != nil {
		return nil, translatePostgresError(err, "User", "get user", "")
	}
	return &u, nil
}

func (r *postgresUserRepository) UpdateRating(ctx context.Context, id string, avg float64, count int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET rating_avg = $2, rating_count = $3 WHERE id = $1
	`, id, avg, count)
	if err != nil {
		return translatePostgresError(err, "User", "update rating", "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("User", nil)
	}
	return nil
}
