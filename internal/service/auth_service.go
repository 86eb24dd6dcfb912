package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/icec/internal/metrics"
	"github.com/xxxsen/icec/internal/model"
	appErr "github.com/xxxsen/icec/internal/pkg/errors"
	"github.com/xxxsen/icec/internal/pkg/jwt"
	"github.com/xxxsen/icec/internal/pkg/otp"
	"github.com/xxxsen/icec/internal/pkg/password"
	"github.com/xxxsen/icec/internal/render"
)

const (
	verificationTokenTTL = 24 * time.Hour
	otpTTL               = 10 * time.Minute
	sessionTokenTTL      = 25 * time.Minute
	passwordResetTTL     = 10 * time.Minute
)

type AuthService struct {
	users    UserStore
	pending  PendingStore
	sender   EmailSender
	renderer Renderer
	metrics  metrics.Recorder
	secret   []byte
	baseURL  string
	now      func() time.Time
}

type Option func(*options)

type options struct {
	metrics metrics.Recorder
	now     func() time.Time
}

func WithMetrics(m metrics.Recorder) Option {
	return func(o *options) { o.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func applyOptions(opts []Option) options {
	o := options{metrics: metrics.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewAuthService(users UserStore, pending PendingStore, sender EmailSender, renderer Renderer, secret []byte, baseURL string, opts ...Option) *AuthService {
	o := applyOptions(opts)
	return &AuthService{
		users:    users,
		pending:  pending,
		sender:   sender,
		renderer: renderer,
		metrics:  o.metrics,
		secret:   secret,
		baseURL:  baseURL,
		now:      o.now,
	}
}

type LoginResult struct {
	Token string
	User  *model.User
}

// Register stores a pending registration and mails its OTP and verification
// link. The pending row is kept even when delivery fails.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (err error) {
	defer func() { s.metrics.RecordAuthEvent(metrics.EventRegister, metrics.Result(err)) }()
	if err := validateRegisterInput(&in); err != nil {
		return err
	}
	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return err
	}
	hash, err := password.Hash(in.Password)
	if err != nil {
		return appErr.Internal("hash password", err)
	}
	now := s.now()
	token, err := jwt.GenerateToken(jwt.Claims{Purpose: jwt.PurposeVerifyEmail, Email: in.Email}, s.secret, verificationTokenTTL, now)
	if err != nil {
		return appErr.Internal("sign verification token", err)
	}
	code, err := otp.Generate()
	if err != nil {
		return appErr.Internal("generate otp", err)
	}
	item := &model.PendingRegistration{
		Email:             in.Email,
		FullName:          in.FullName,
		PasswordHash:      hash,
		VerificationToken: token,
		OTP:               code,
		OTPExpiresAt:      now.Add(otpTTL).Unix(),
		Ctime:             now.Unix(),
	}
	if err := s.pending.Create(ctx, item); err != nil {
		if errors.Is(err, appErr.ErrConflict) {
			return appErr.ErrConflict
		}
		return appErr.Internal("create pending registration", err)
	}
	logutil.GetLogger(ctx).Info("pending registration created", zap.String("email", in.Email))

	body, err := s.renderer.Render(render.VerifyEmail, map[string]interface{}{
		"FullName":         item.FullName,
		"Link":             s.verificationLink(token, code),
		"OTP":              code,
		"ExpiresInMinutes": int(otpTTL / time.Minute),
	})
	if err != nil {
		return err
	}
	if err := s.sender.Send(in.Email, "Verify Your Email", body); err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrEmailDelivery, err)
	}
	return nil
}

// ensureEmailFree rejects emails owned by a user or by a live pending
// registration. A pending row whose OTP expired is dropped instead.
func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return appErr.ErrConflict
	} else if !errors.Is(err, appErr.ErrNotFound) {
		return appErr.Internal("lookup user", err)
	}
	item, err := s.pending.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil
		}
		return appErr.Internal("lookup pending registration", err)
	}
	now := s.now().Unix()
	if !item.Expired(now) {
		return appErr.ErrConflict
	}
	// Only an expired row is removed. If another request already replaced
	// it, nothing is deleted and the following Create reports the conflict.
	removed, err := s.pending.DeleteExpiredByEmail(ctx, email, now)
	if err != nil {
		return appErr.Internal("drop expired pending registration", err)
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired pending registration replaced", zap.String("email", email))
	}
	return nil
}

func (s *AuthService) verificationLink(token, code string) string {
	query := url.Values{}
	query.Set("token", token)
	query.Set("otp", code)
	return s.baseURL + "/api/users/verify-email?" + query.Encode()
}

// VerifyEmail turns the pending registration named by token into a verified
// user when code matches the stored OTP and the OTP has not expired.
func (s *AuthService) VerifyEmail(ctx context.Context, token, code string) (user *model.User, err error) {
	defer func() { s.metrics.RecordAuthEvent(metrics.EventVerify, metrics.Result(err)) }()
	now := s.now()
	claims, err := jwt.ParseToken(token, s.secret, jwt.PurposeVerifyEmail, now)
	if err != nil || claims.Email == "" {
		return nil, appErr.ErrInvalidToken
	}
	item, err := s.pending.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, appErr.ErrNotFound
		}
		return nil, appErr.Internal("lookup pending registration", err)
	}
	if !otp.Equal(item.OTP, code) || item.Expired(now.Unix()) {
		return nil, appErr.ErrInvalidOTP
	}
	user = &model.User{
		ID:           newID(),
		FullName:     item.FullName,
		Email:        item.Email,
		PasswordHash: item.PasswordHash,
		IsAdmin:      false,
		IsVerified:   true,
		Ctime:        now.Unix(),
		Mtime:        now.Unix(),
	}
	if err := s.pending.Promote(ctx, user); err != nil {
		if errors.Is(err, appErr.ErrConflict) || errors.Is(err, appErr.ErrNotFound) {
			return nil, err
		}
		return nil, appErr.Internal("promote pending registration", err)
	}
	logutil.GetLogger(ctx).Info("email verified", zap.String("email", user.Email), zap.String("user_id", user.ID))
	return user, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnCompare spends a bcrypt comparison so an unknown email costs about as
// much as a wrong password.
func burnCompare(plain string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = password.Hash("icec-dummy-password")
	})
	_ = password.Compare(dummyHash, plain)
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (res *LoginResult, err error) {
	defer func() { s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.Result(err)) }()
	email = normalizeEmail(email)
	if email == "" || plainPassword == "" {
		return nil, appErr.ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			burnCompare(plainPassword)
			return nil, appErr.ErrInvalidCredentials
		}
		return nil, appErr.Internal("lookup user", err)
	}
	if !user.IsVerified {
		return nil, appErr.ErrUnverified
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, appErr.ErrInvalidCredentials
	}
	token, err := jwt.GenerateToken(jwt.Claims{
		Purpose: jwt.PurposeSession,
		UserID:  user.ID,
		Name:    user.FullName,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}, s.secret, sessionTokenTTL, s.now())
	if err != nil {
		return nil, appErr.Internal("sign session token", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}
