package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gdg-garage/vegfest-api/internal/auth"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, creds := env.user(t, "billing", models.RoleAdmin, false)
	h := NewAPIKeyHandler(env.db, env.auth)

	create := &CreateAPIKeyInput{AuthInput: creds}
	create.Body.Name = "billing export"
	created, err := h.HandleCreate(ctx, create)
	require.NoError(t, err)
	key := created.Body.Key
	assert.True(t, strings.HasPrefix(key, "vf_"))

	// The key authenticates as its owner, with the owner's capabilities.
	userID, err := env.auth.Authorize(ctx, auth.AuthInput{APIKey: key})
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	listed, err := h.HandleList(ctx, &ListAPIKeysInput{AuthInput: auth.AuthInput{APIKey: key}})
	require.NoError(t, err)
	require.Len(t, listed.Body, 1)
	assert.Equal(t, "..."+key[len(key)-4:], listed.Body[0].Key)
	assert.NotNil(t, listed.Body[0].LastUsedAt)

	_, err = h.HandleDelete(ctx, &DeleteAPIKeyInput{AuthInput: creds, ID: created.Body.ID})
	require.NoError(t, err)

	_, err = env.auth.Authorize(ctx, auth.AuthInput{APIKey: key})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = h.HandleDelete(ctx, &DeleteAPIKeyInput{AuthInput: creds, ID: created.Body.ID})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestAPIKeyExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, creds := env.user(t, "billing", models.RoleAdmin, false)
	h := NewAPIKeyHandler(env.db, env.auth)

	create := &CreateAPIKeyInput{AuthInput: creds}
	create.Body.Name = "stale"
	create.Body.ExpiresAt = ptr(time.Now().Add(-time.Hour))
	_, err := h.HandleCreate(ctx, create)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	create.Body.ExpiresAt = ptr(time.Now().Add(time.Hour))
	created, err := h.HandleCreate(ctx, create)
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&models.APIKey{}).Where("id = ?", created.Body.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)
	_, err = env.auth.Authorize(ctx, auth.AuthInput{APIKey: created.Body.Key})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "abc", maskKey("abc"))
	assert.Equal(t, "...6789", maskKey("vf_0123456789"))
}
