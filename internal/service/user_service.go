package service

import (
	"context"
	"errors"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/icec/internal/model"
	appErr "github.com/xxxsen/icec/internal/pkg/errors"
)

const defaultUserListLimit = 500

// UserService backs the administrative user endpoints.
type UserService struct {
	users UserStore
	now   func() time.Time
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users, now: time.Now}
}

func (s *UserService) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx, defaultUserListLimit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// Update changes the name or admin flag of a user and returns the stored
// result.
func (s *UserService) Update(ctx context.Context, userID string, patch model.UserPatch) (*model.User, error) {
	if err := validateUserPatch(&patch); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, userID, patch, s.now().Unix()); err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, appErr.ErrNotFound
		}
		return nil, appErr.Internal("update user", err)
	}
	logutil.GetLogger(ctx).Info("user updated", zap.String("user_id", userID))
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("user deleted", zap.String("user_id", userID))
	return nil
}
