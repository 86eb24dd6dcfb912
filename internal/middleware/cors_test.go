package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func runCORS(t *testing.T, allowlist []string, method, origin string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, "/api/users/login", nil)
	if origin != "" {
		c.Request.Header.Set("Origin", origin)
	}
	CORS(allowlist)(c)
	return c, rec
}

func TestCORS_AllowAll(t *testing.T) {
	_, rec := runCORS(t, nil, http.MethodGet, "https://a.example")
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Allowlist(t *testing.T) {
	_, rec := runCORS(t, []string{"https://a.example"}, http.MethodGet, "https://a.example")
	require.Equal(t, "https://a.example", rec.Header().Get("Access-Control-Allow-Origin"))

	_, rec = runCORS(t, []string{"https://a.example"}, http.MethodGet, "https://evil.example")
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_Preflight(t *testing.T) {
	c, rec := runCORS(t, nil, http.MethodOptions, "https://a.example")
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusNoContent, rec.Code)
}
