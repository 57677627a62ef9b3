package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/messaging/internal/pkg/auth"
)

func newAuthTestRouter(jwtService *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", JWTAuthMiddleware(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetInt64("userID")})
	})
	return router
}

func newTestJWTService(exp time.Duration) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:   "test-secret",
		TokenExp:    exp,
		TokenIssuer: "agrolink.app",
	})
}

func TestJWTAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	jwtService := newTestJWTService(time.Hour)
	router := newAuthTestRouter(jwtService)

	token, err := jwtService.IssueToken(7, "Ayşe", "FARMER")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userID":7`)
}

func TestJWTAuthMiddlewareAcceptsTokenQueryParam(t *testing.T) {
	jwtService := newTestJWTService(time.Hour)
	router := newAuthTestRouter(jwtService)

	token, err := jwtService.IssueToken(7, "Ayşe", "FARMER")
	require.NoError(t, err)

	// Websocket upgrade requests from browsers carry the token in the query
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddlewareRejectsMissingToken(t *testing.T) {
	router := newAuthTestRouter(newTestJWTService(time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareRejectsGarbageToken(t *testing.T) {
	router := newAuthTestRouter(newTestJWTService(time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	jwtService := newTestJWTService(-time.Minute)
	router := newAuthTestRouter(jwtService)

	token, err := jwtService.IssueToken(7, "Ayşe", "FARMER")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_003")
}

func TestJWTAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	issuer := auth.NewJWTService(auth.JWTConfig{
		SecretKey: "other-secret", TokenExp: time.Hour, TokenIssuer: "agrolink.app",
	})
	router := newAuthTestRouter(newTestJWTService(time.Hour))

	token, err := issuer.IssueToken(7, "Ayşe", "FARMER")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
