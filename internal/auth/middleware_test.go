package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gdg-garage/vegfest-api/internal/config"
	"github.com/gdg-garage/vegfest-api/internal/database"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, secret string, userID uint, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(expiresIn).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func sessionCookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestAuthMiddleware(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)

	owner := models.User{DiscordID: "mw-owner"}
	require.NoError(t, db.Create(&owner).Error)
	require.NoError(t, db.Create(&models.APIKey{UserID: owner.ID, Key: "vf_live", Name: "billing"}).Error)
	expired := time.Now().Add(-time.Minute)
	require.NoError(t, db.Create(&models.APIKey{UserID: owner.ID, Key: "vf_stale", Name: "old", ExpiresAt: &expired}).Error)

	const secret = "test-secret"
	handler := NewAuthHandler(&config.Config{JWTSecret: secret}, db, nil)

	renewing := signedToken(t, secret, 7, TokenDuration/2-time.Hour)
	fresh := signedToken(t, secret, 7, TokenDuration/2+time.Hour)

	tests := []struct {
		name       string
		cookie     string
		apiKey     string
		wantCode   int
		wantUserID uint
		wantRenew  bool
	}{
		{name: "no credentials", wantCode: http.StatusUnauthorized},
		{name: "expired token", cookie: signedToken(t, secret, 7, -time.Hour), wantCode: http.StatusUnauthorized},
		{name: "foreign signature", cookie: signedToken(t, "other", 7, time.Hour), wantCode: http.StatusUnauthorized},
		{name: "token past half its lifetime is renewed", cookie: renewing, wantCode: http.StatusOK, wantUserID: 7, wantRenew: true},
		{name: "fresh token is kept", cookie: fresh, wantCode: http.StatusOK, wantUserID: 7},
		{name: "api key", apiKey: "vf_live", wantCode: http.StatusOK, wantUserID: owner.ID},
		{name: "expired api key", apiKey: "vf_stale", wantCode: http.StatusUnauthorized},
		{name: "unknown api key", apiKey: "vf_nope", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID uint
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotUserID, _ = UserIDFrom(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.apiKey != "" {
				req.Header.Set("X-API-KEY", tt.apiKey)
			}
			rr := httptest.NewRecorder()
			handler.AuthMiddleware(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantCode == http.StatusOK, called)
			assert.Equal(t, tt.wantUserID, gotUserID)

			renewed := sessionCookieFrom(rr)
			if tt.wantRenew {
				require.NotNil(t, renewed)
				assert.NotEqual(t, tt.cookie, renewed.Value)
			} else {
				assert.Nil(t, renewed)
			}
		})
	}
}
