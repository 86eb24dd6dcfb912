package handler_test

import (
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/icec/internal/middleware"
)

var resetPathRe = regexp.MustCompile(`/api/users/reset-password/[^/"]+/[A-Za-z0-9_\-.]+`)

func TestAuthHandlers_RegisterVerifyLogin(t *testing.T) {
	env := setupRouter(t, nil)

	registerBody := map[string]string{"fullName": "Alice", "email": "alice@example.com", "password": "secret1"}
	resp := env.do(t, http.MethodPost, "/api/users/register", registerBody, "")
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, env.sender.Sent(), 1)

	resp = env.do(t, http.MethodPost, "/api/users/register", registerBody, "")
	require.Equal(t, http.StatusConflict, resp.Code)

	item, ok := env.pending.Get("alice@example.com")
	require.True(t, ok)

	resp = env.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "alice@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	bad := "000000"
	if item.OTP == bad {
		bad = "999999"
	}
	query := url.Values{"token": {item.VerificationToken}, "otp": {bad}}
	resp = env.do(t, http.MethodGet, "/api/users/verify-email?"+query.Encode(), nil, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	query.Set("otp", item.OTP)
	resp = env.do(t, http.MethodGet, "/api/users/verify-email?"+query.Encode(), nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	require.Contains(t, resp.Body.String(), "alice@example.com")

	resp = env.do(t, http.MethodGet, "/api/users/verify-email?"+query.Encode(), nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "alice@example.com", "password": "wrong"}, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = env.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "alice@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var login struct {
		Status string `json:"status"`
		Token  string `json:"token"`
		Name   string `json:"name"`
	}
	decodeData(t, resp, &login)
	require.Equal(t, "ok", login.Status)
	require.Equal(t, "Alice", login.Name)
	require.NotEmpty(t, login.Token)

	resp = env.do(t, http.MethodGet, "/api/users/me", nil, login.Token)
	require.Equal(t, http.StatusOK, resp.Code)
	var me map[string]interface{}
	decodeData(t, resp, &me)
	require.Equal(t, "alice@example.com", me["email"])
	require.NotContains(t, me, "passwordHash")
}

func TestAuthHandlers_RegisterValidation(t *testing.T) {
	env := setupRouter(t, nil)
	resp := env.do(t, http.MethodPost, "/api/users/register", map[string]string{"email": "a@example.com"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Empty(t, env.sender.Sent())
}

func TestAuthHandlers_RegisterMailFailure(t *testing.T) {
	env := setupRouter(t, nil)
	env.sender.Err = errors.New("smtp down")
	resp := env.do(t, http.MethodPost, "/api/users/register", map[string]string{"fullName": "A", "email": "a@example.com", "password": "pw"}, "")
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestAuthHandlers_LoginUnverified(t *testing.T) {
	env := setupRouter(t, nil)
	env.addUser(t, "u1", "bob@example.com", "pw", false, false)
	resp := env.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "bob@example.com", "password": "pw"}, "")
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAuthHandlers_PasswordReset(t *testing.T) {
	env := setupRouter(t, nil)
	env.addUser(t, "u1", "carol@example.com", "old-pw", true, false)

	resp := env.do(t, http.MethodGet, "/api/users/forgot-password", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "<form")

	resp = env.do(t, http.MethodPost, "/api/users/forgot-password", map[string]string{"email": "nobody@example.com"}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	unknownBody := resp.Body.String()
	require.Empty(t, env.sender.Sent())

	resp = env.do(t, http.MethodPost, "/api/users/forgot-password", url.Values{"email": {"carol@example.com"}}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, unknownBody, resp.Body.String())

	mail, ok := env.sender.Last()
	require.True(t, ok)
	resetPath := resetPathRe.FindString(mail.Body)
	require.NotEmpty(t, resetPath)

	resp = env.do(t, http.MethodGet, resetPath, nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "carol@example.com")

	resp = env.do(t, http.MethodPost, resetPath, url.Values{"password": {"new-pw"}}, "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "text/html")

	resp = env.do(t, http.MethodPost, resetPath, url.Values{"password": {"newer-pw"}}, "")
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "carol@example.com", "password": "new-pw"}, "")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthHandlers_ResetUnknownUser(t *testing.T) {
	env := setupRouter(t, nil)
	resp := env.do(t, http.MethodGet, "/api/users/reset-password/ghost/abc.def.ghi", nil, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	env.addUser(t, "u1", "dave@example.com", "pw", true, false)
	resp = env.do(t, http.MethodGet, "/api/users/reset-password/u1/abc.def.ghi", nil, "")
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.do(t, http.MethodPost, "/api/users/reset-password/u1/abc.def.ghi", url.Values{"password": {""}}, "")
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAuthHandlers_RateLimited(t *testing.T) {
	env := setupRouter(t, middleware.RateLimit(0.001, 1))
	body := map[string]string{"email": "x@example.com", "password": "pw"}
	resp := env.do(t, http.MethodPost, "/api/users/login", body, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	resp = env.do(t, http.MethodPost, "/api/users/login", body, "")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
}
