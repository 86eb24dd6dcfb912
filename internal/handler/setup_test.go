package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/icec/internal/handler"
	"github.com/xxxsen/icec/internal/middleware"
	"github.com/xxxsen/icec/internal/model"
	"github.com/xxxsen/icec/internal/pkg/jwt"
	"github.com/xxxsen/icec/internal/pkg/password"
	"github.com/xxxsen/icec/internal/render"
	"github.com/xxxsen/icec/internal/service"
	"github.com/xxxsen/icec/internal/testutil"
)

var jwtSecret = []byte("handler-test-secret")

type testEnv struct {
	router  http.Handler
	users   *testutil.UserStore
	pending *testutil.PendingStore
	sender  *testutil.MailRecorder
}

func setupRouter(t *testing.T, rateLimit gin.HandlerFunc) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := testutil.NewUserStore()
	pending := testutil.NewPendingStore(users)
	sender := &testutil.MailRecorder{}
	renderer := render.MustNew()

	authService := service.NewAuthService(users, pending, sender, renderer, jwtSecret, "http://icec.test")
	resetService := service.NewPasswordResetService(users, sender, renderer, jwtSecret, "http://icec.test")
	userService := service.NewUserService(users)

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService, resetService, renderer),
		Users:     handler.NewUserHandler(userService),
		JWTSecret: jwtSecret,
		RateLimit: rateLimit,
	}
	engine, err := webapi.NewEngine(
		"/api",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
		),
	)
	require.NoError(t, err)
	return &testEnv{router: engine, users: users, pending: pending, sender: sender}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	switch v := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case url.Values:
		req = httptest.NewRequest(method, path, strings.NewReader(v.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) addUser(t *testing.T, id, email, pw string, verified, admin bool) *model.User {
	t.Helper()
	hash, err := password.Hash(pw)
	require.NoError(t, err)
	user := &model.User{ID: id, FullName: "User " + id, Email: email, PasswordHash: hash, IsVerified: verified, IsAdmin: admin}
	e.users.Add(user)
	return user
}

func sessionToken(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := jwt.GenerateToken(jwt.Claims{
		Purpose: jwt.PurposeSession,
		UserID:  user.ID,
		Name:    user.FullName,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}, jwtSecret, time.Hour, time.Now())
	require.NoError(t, err)
	return token
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
