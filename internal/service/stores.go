package service

import (
	"context"

	"github.com/xxxsen/icec/internal/model"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
	UpdatePassword(ctx context.Context, userID, oldHash, newHash string, mtime int64) error
	List(ctx context.Context, limit uint) ([]*model.User, error)
	Update(ctx context.Context, userID string, patch model.UserPatch, mtime int64) error
	Delete(ctx context.Context, userID string) error
}

type PendingStore interface {
	Create(ctx context.Context, item *model.PendingRegistration) error
	GetByEmail(ctx context.Context, email string) (*model.PendingRegistration, error)
	DeleteExpiredByEmail(ctx context.Context, email string, now int64) (int64, error)
	Promote(ctx context.Context, user *model.User) error
}

type Renderer interface {
	Render(name string, data interface{}) (string, error)
}
