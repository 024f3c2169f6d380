package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facetrack/internal/identity"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "facetrack-test"
)

func admin() identity.Identity {
	id, _ := identity.DemoDirectory().Lookup("admin@facetrack.com")
	return id
}

func TestIssueAndParse(t *testing.T) {
	now := time.Now()
	tok, err := Issue(admin(), testIssuer, testKey, time.Hour, now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), tok.ExpiresAt, time.Second)

	claims, err := Parse(tok.AccessToken, testKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, identity.RoleAdmin, claims.Role)
	assert.Equal(t, "EMP001", claims.EmployeeID)
}

func TestParseRejects(t *testing.T) {
	now := time.Now()
	tok, err := Issue(admin(), testIssuer, testKey, time.Hour, now)
	require.NoError(t, err)

	_, err = Parse(tok.AccessToken, "other-key", testIssuer)
	assert.Error(t, err, "wrong key")

	_, err = Parse(tok.AccessToken, testKey, "someone-else")
	assert.Error(t, err, "wrong issuer")

	expired, err := Issue(admin(), testIssuer, testKey, time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = Parse(expired.AccessToken, testKey, testIssuer)
	assert.Error(t, err, "expired")
}

func TestRequiredMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tok, err := Issue(admin(), testIssuer, testKey, time.Hour, time.Now())
	require.NoError(t, err)

	active := true
	r := gin.New()
	r.GET("/p", Required(testKey, testIssuer, func(_ *gin.Context, c Claims) bool {
		return active && c.Subject == "1"
	}), func(c *gin.Context) {
		claims, ok := FromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.EmployeeID)
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	w := do("Bearer " + tok.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EMP001", w.Body.String())

	active = false
	assert.Equal(t, http.StatusUnauthorized, do("bearer "+tok.AccessToken).Code)
}
