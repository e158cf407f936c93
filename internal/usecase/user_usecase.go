package usecase

import (
	"context"
	"strings"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

type UserUseCase struct {
	userRepo repository.UserRepository
	settings Settings
}

func NewUserUseCase(userRepo repository.UserRepository, settings Settings) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		settings: settings,
	}
}

// EnsureProfile creates the user's profile or refreshes its name and email.
func (uc *UserUseCase) EnsureProfile(ctx context.Context, userID, name, email string) (*entity.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.BadRequest("user id is required", nil)
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	user := &entity.User{
		ID:    userID,
		Name:  strings.TrimSpace(name),
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
	if err := uc.userRepo.Upsert(sctx, user); err != nil {
		return nil, err
	}
	return uc.userRepo.GetByID(sctx, userID)
}

func (uc *UserUseCase) GetUserByID(ctx context.Context, userID string) (*entity.User, error) {
	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()
	return uc.userRepo.GetByID(sctx, userID)
}
