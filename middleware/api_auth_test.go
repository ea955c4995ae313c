package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestParseBearer(t *testing.T) {
	const secret = "super-secret"

	tests := []struct {
		name          string
		header        string
		secret        string
		authenticated bool
		identity      string
	}{
		{"secret only", "Bearer super-secret", secret, true, ""},
		{"secret with identity", "Bearer super-secret:alice", secret, true, "alice"},
		{"identity may contain colons", "Bearer super-secret:team:alice", secret, true, "team:alice"},
		{"wrong secret", "Bearer nope:alice", secret, false, ""},
		{"missing header", "", secret, false, ""},
		{"wrong scheme", "Basic super-secret", secret, false, ""},
		{"empty token", "Bearer ", secret, false, ""},
		{"token with space", "Bearer super secret", secret, false, ""},
		{"no configured key", "Bearer super-secret", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseBearer(tt.header, tt.secret)
			assert.Equal(t, tt.authenticated, result.Authenticated)
			assert.Equal(t, tt.identity, result.Identity)
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "super-secret")

	e := echo.New()
	handler := RequireAPIKey()(func(c echo.Context) error {
		return c.String(http.StatusOK, AssertedIdentity(c))
	})

	do := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
		if authorization != "" {
			req.Header.Set(echo.HeaderAuthorization, authorization)
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		_ = handler(c)
		return rec
	}

	rec := do("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do("Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do("Bearer super-secret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", rec.Body.String())

	rec = do("Bearer super-secret:alice")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())
}
