package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/gdg-garage/vegfest-api/internal/config"
	"github.com/gdg-garage/vegfest-api/internal/database"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRoles struct {
	roles map[string][]string
	err   error
}

func (f fakeRoles) HasRole(discordUserID, roleID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, r := range f.roles[discordUserID] {
		if r == roleID {
			return true, nil
		}
	}
	return false, nil
}

func TestHandleMe(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	user := models.User{
		DiscordID: "123456",
		Username:  "testuser",
		Email:     "test@example.com",
		Avatar:    "avatar_url",
		Role:      models.RoleAdmin,
	}
	db.Create(&user)

	cfg := &config.Config{JWTSecret: "test-secret"}
	handler := NewAuthHandler(cfg, db, nil)

	t.Run("Authenticated", func(t *testing.T) {
		token, _ := handler.GenerateToken(user.ID)
		input := &AuthInput{
			Cookie: "theme=dark; auth_token=" + token,
		}
		resp, err := handler.HandleMe(context.Background(), input)
		if err != nil {
			t.Fatalf("HandleMe returned error: %v", err)
		}

		if resp.Body.Username != user.Username {
			t.Errorf("expected username %s, got %s", user.Username, resp.Body.Username)
		}
		if resp.Body.Email != user.Email {
			t.Errorf("expected email %s, got %s", user.Email, resp.Body.Email)
		}
		assert.Equal(t, []string{"edit_own_registration", "review_registrations"}, resp.Body.Capabilities)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		input := &AuthInput{}
		_, err := handler.HandleMe(context.Background(), input)
		if err == nil {
			t.Fatal("expected error for unauthenticated request, got nil")
		}
	})

	t.Run("ForgedToken", func(t *testing.T) {
		other := NewAuthHandler(&config.Config{JWTSecret: "other-secret"}, db, nil)
		token, _ := other.GenerateToken(user.ID)
		_, err := handler.HandleMe(context.Background(), &AuthInput{Cookie: "auth_token=" + token})
		assert.Error(t, err)
	})
}

func TestAuthorize_APIKey(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)

	user := models.User{DiscordID: "key-owner"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.APIKey{UserID: user.ID, Key: "secret-key", Name: "exports"}).Error)

	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db, nil)

	userID, err := handler.Authorize(context.Background(), AuthInput{APIKey: "secret-key"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	var key models.APIKey
	require.NoError(t, db.Where("key = ?", "secret-key").First(&key).Error)
	assert.NotNil(t, key.LastUsedAt)

	_, err = handler.Authorize(context.Background(), AuthInput{APIKey: "wrong"})
	assert.Error(t, err)
}

// countingRoles records how often Discord is asked for a role.
type countingRoles struct {
	fakeRoles
	calls *int
}

func (c countingRoles) HasRole(discordUserID, roleID string) (bool, error) {
	*c.calls++
	return c.fakeRoles.HasRole(discordUserID, roleID)
}

func TestPrincipalFor_StoredDiscordApprover(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)

	approver := models.User{DiscordID: "d-1", Username: "reviewer", DiscordApprover: true}
	applicant := models.User{DiscordID: "d-2", Username: "vendor"}
	require.NoError(t, db.Create(&approver).Error)
	require.NoError(t, db.Create(&applicant).Error)

	calls := 0
	cfg := &config.Config{JWTSecret: "test-secret", ApproverDiscordRoleID: "role-approver"}
	handler := NewAuthHandler(cfg, db, countingRoles{
		fakeRoles: fakeRoles{roles: map[string][]string{"d-1": {"role-approver"}}},
		calls:     &calls,
	})

	p, err := handler.PrincipalFor(context.Background(), approver.ID)
	require.NoError(t, err)
	assert.Equal(t, "reviewer", p.DisplayName)
	assert.Contains(t, p.Capabilities(), "vote_registrations")

	p, err = handler.PrincipalFor(context.Background(), applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"edit_own_registration"}, p.Capabilities())

	assert.Zero(t, calls, "capabilities come from the stored user, not from Discord")

	_, err = handler.PrincipalFor(context.Background(), 9999)
	assert.Error(t, err)
}

func TestSyncDiscordApprover(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret", ApproverDiscordRoleID: "role-approver"}
	ctx := context.Background()

	tests := []struct {
		name  string
		cfg   *config.Config
		roles RoleChecker
		prior bool
		want  bool
	}{
		{name: "role granted", cfg: cfg, roles: fakeRoles{roles: map[string][]string{"d-1": {"role-approver"}}}, want: true},
		{name: "role revoked", cfg: cfg, roles: fakeRoles{}, prior: true, want: false},
		{name: "lookup failure keeps grant", cfg: cfg, roles: fakeRoles{err: errors.New("discord down")}, prior: true, want: true},
		{name: "lookup failure grants nothing new", cfg: cfg, roles: fakeRoles{err: errors.New("discord down")}, want: false},
		{name: "no role configured", cfg: &config.Config{JWTSecret: "test-secret"}, roles: fakeRoles{err: errors.New("unused")}, prior: true, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthHandler(tt.cfg, nil, tt.roles)
			user := models.User{DiscordID: "d-1", DiscordApprover: tt.prior}
			handler.syncDiscordApprover(ctx, &user)
			assert.Equal(t, tt.want, user.DiscordApprover)
		})
	}
}

func TestAuthorize_APIKeyTouchFailureIsLogged(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)

	user := models.User{DiscordID: "touch-owner"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.APIKey{UserID: user.ID, Key: "vf_touch", Name: "ci"}).Error)

	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_api_key_update", func(tx *gorm.DB) {
		if tx.Statement.Table == "api_keys" {
			_ = tx.AddError(errors.New("database is read-only"))
		}
	}))

	var buf bytes.Buffer
	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db, nil,
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	userID, err := handler.Authorize(context.Background(), AuthInput{APIKey: "vf_touch"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Contains(t, buf.String(), "failed to record API key use")
	assert.Contains(t, buf.String(), "database is read-only")
}
