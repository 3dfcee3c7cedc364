package service

import (
	"context"

	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/repository"
)

type UserService interface {
	GetUserInfo(ctx context.Context, id int64) (*models.User, error)
	RemoveUser(ctx context.Context, userID int64) error
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) GetUserInfo(ctx context.Context, id int64) (*models.User, error) {
	user, exists, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, validationf("user not found")
	}
	return user, nil
}

func (s *userService) RemoveUser(ctx context.Context, userID int64) error {
	return s.users.Remove(ctx, userID)
}
