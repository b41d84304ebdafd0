package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": MustUserID(c)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	valid, err := IssueToken(secret, 42, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(secret, 42, -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken("other-secret", 42, time.Hour)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, `{"id":42}`},
		{"missing", "", http.StatusUnauthorized, ""},
		{"not_bearer", "Token " + valid, http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong_secret", "Bearer " + foreign, http.StatusUnauthorized, ""},
		{"garbage", "Bearer abc.def", http.StatusUnauthorized, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"kind":"unauthorized"`)
			}
		})
	}
}

func TestParseTokenRejectsZeroUser(t *testing.T) {
	tok, err := IssueToken(secret, 0, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(secret, tok)
	assert.Error(t, err)
}
