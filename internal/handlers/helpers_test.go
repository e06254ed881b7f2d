package handlers

import (
	"errors"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/vegfest-api/internal/approval"
	"github.com/gdg-garage/vegfest-api/internal/audit"
	"github.com/gdg-garage/vegfest-api/internal/auth"
	"github.com/gdg-garage/vegfest-api/internal/config"
	"github.com/gdg-garage/vegfest-api/internal/database"
	"github.com/gdg-garage/vegfest-api/internal/logging"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/gdg-garage/vegfest-api/internal/store"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	auth         *auth.AuthHandler
	registration *RegistrationHandler
	admin        *AdminHandler
	audit        *audit.Writer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)

	cfg := &config.Config{JWTSecret: "test-secret"}
	authHandler := auth.NewAuthHandler(cfg, db, nil)

	writer := audit.NewWriter(db)
	engine, err := approval.New(store.NewRegistrationStore(db), writer)
	require.NoError(t, err)

	return &testEnv{
		db:           db,
		auth:         authHandler,
		registration: NewRegistrationHandler(db, nil, authHandler),
		admin:        NewAdminHandler(db, engine, writer, authHandler, logging.Discard()),
		audit:        writer,
	}
}

func (e *testEnv) user(t *testing.T, name string, role models.Role, approver bool) (models.User, auth.AuthInput) {
	t.Helper()
	u := models.User{DiscordID: "discord-" + name, Username: name, Role: role, Approver: approver}
	require.NoError(t, e.db.Create(&u).Error)
	token, err := e.auth.GenerateToken(u.ID)
	require.NoError(t, err)
	return u, auth.AuthInput{Cookie: auth.CookieName + "=" + token}
}

func ptr[T any](v T) *T {
	return &v
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected a huma status error, got %v", err)
	return se.GetStatus()
}
