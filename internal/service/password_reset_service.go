package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/icec/internal/metrics"
	"github.com/xxxsen/icec/internal/model"
	appErr "github.com/xxxsen/icec/internal/pkg/errors"
	"github.com/xxxsen/icec/internal/pkg/jwt"
	"github.com/xxxsen/icec/internal/pkg/password"
	"github.com/xxxsen/icec/internal/render"
)

// PasswordResetService issues reset links signed with the server secret plus
// the account's current password hash. Once the password changes the old
// link stops verifying, which makes every link single use.
type PasswordResetService struct {
	users    UserStore
	sender   EmailSender
	renderer Renderer
	metrics  metrics.Recorder
	secret   []byte
	baseURL  string
	now      func() time.Time
}

func NewPasswordResetService(users UserStore, sender EmailSender, renderer Renderer, secret []byte, baseURL string, opts ...Option) *PasswordResetService {
	o := applyOptions(opts)
	return &PasswordResetService{
		users:    users,
		sender:   sender,
		renderer: renderer,
		metrics:  o.metrics,
		secret:   secret,
		baseURL:  baseURL,
		now:      o.now,
	}
}

// RequestReset mails a reset link when email belongs to a user. Unknown
// emails and delivery failures return nil so callers cannot enumerate accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (err error) {
	defer func() { s.metrics.RecordAuthEvent(metrics.EventResetIssue, metrics.Result(err)) }()
	email = normalizeEmail(email)
	if email == "" {
		return appErr.Invalid("email is required")
	}
	logger := logutil.GetLogger(ctx).With(zap.String("email", email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			logger.Info("password reset requested for unknown email")
			return nil
		}
		return appErr.Internal("lookup user", err)
	}
	token, err := jwt.GenerateToken(jwt.Claims{
		Purpose: jwt.PurposeReset,
		UserID:  user.ID,
		Email:   user.Email,
	}, jwt.ResetSecret(s.secret, user.PasswordHash), passwordResetTTL, s.now())
	if err != nil {
		return appErr.Internal("sign reset token", err)
	}
	body, err := s.renderer.Render(render.ResetEmail, map[string]interface{}{
		"Link":             s.ResetLink(user.ID, token),
		"ExpiresInMinutes": int(passwordResetTTL / time.Minute),
	})
	if err != nil {
		return err
	}
	if err := s.sender.Send(user.Email, "Password Reset", body); err != nil {
		logger.Warn("send password reset email failed", zap.Error(err))
		return nil
	}
	logger.Info("password reset link sent", zap.String("user_id", user.ID))
	return nil
}

func (s *PasswordResetService) ResetLink(userID, token string) string {
	return s.baseURL + "/api/users/reset-password/" + url.PathEscape(userID) + "/" + url.PathEscape(token)
}

// CheckToken validates a reset token against the user's current hash. It
// backs both the reset form and the reset submission.
func (s *PasswordResetService) CheckToken(ctx context.Context, userID, token string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, appErr.ErrNotFound
		}
		return nil, appErr.Internal("lookup user", err)
	}
	claims, err := jwt.ParseToken(token, jwt.ResetSecret(s.secret, user.PasswordHash), jwt.PurposeReset, s.now())
	if err != nil || claims.UserID != user.ID {
		return nil, appErr.ErrInvalidToken
	}
	return user, nil
}

func (s *PasswordResetService) ResetPassword(ctx context.Context, userID, token, newPassword string) (err error) {
	defer func() { s.metrics.RecordAuthEvent(metrics.EventResetConsume, metrics.Result(err)) }()
	user, err := s.CheckToken(ctx, userID, token)
	if err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return appErr.Internal("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.PasswordHash, hash, s.now().Unix()); err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			// hash changed or user removed since CheckToken
			return appErr.ErrInvalidToken
		}
		return appErr.Internal("update password", err)
	}
	logutil.GetLogger(ctx).Info("password reset", zap.String("user_id", user.ID))
	return nil
}
