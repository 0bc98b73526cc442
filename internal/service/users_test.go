package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/blog_platform/internal/cache"
	"github.com/Skotchmaster/blog_platform/internal/tokens"
)

func TestMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.signUp(t, "alice@example.com", "d1")
	id := f.identity(t, res.Tokens.AccessToken, tokens.KindAccess)

	me, err := f.users.Me(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, res.User, *me)

	_, err = f.users.Me(ctx, Identity{UserID: "missing", DeviceID: "d1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveMe_RevokesAllDevices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d1 := f.signUp(t, "alice@example.com", "d1")
	d2, err := f.auth.SignIn(ctx, SignInInput{Email: "alice@example.com", Password: "password123", DeviceID: "d2"})
	require.NoError(t, err)

	id := f.identity(t, d1.Tokens.AccessToken, tokens.KindAccess)
	require.NoError(t, f.users.RemoveMe(ctx, id))

	assert.False(t, f.mr.Exists(cache.AccessKey(id.UserID, "d1")))
	assert.False(t, f.mr.Exists(cache.AccessKey(id.UserID, "d2")))

	for _, tok := range []string{d1.Tokens.RefreshToken, d2.Tokens.RefreshToken} {
		exists, err := f.repo.RefreshExists(ctx, tok)
		require.NoError(t, err)
		assert.False(t, exists)
	}

	_, err = f.users.Me(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.auth.SignIn(ctx, SignInInput{Email: "alice@example.com", Password: "password123", DeviceID: "d1"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRemoveMe_UnknownUser(t *testing.T) {
	f := newFixture(t)
	err := f.users.RemoveMe(context.Background(), Identity{UserID: "missing", DeviceID: "d1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.signUp(t, "alice@example.com", "d1")
	id := f.identity(t, res.Tokens.AccessToken, tokens.KindAccess)

	v, err := f.users.UpdateMe(ctx, id, UpdateMeInput{Name: "  Alice B  "})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", v.Name)
	assert.Equal(t, "alice@example.com", v.Email)

	stored, err := f.repo.FindUserByID(ctx, id.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", stored.Name)
	assert.NotEmpty(t, stored.PasswordHash)

	_, err = f.users.UpdateMe(ctx, id, UpdateMeInput{Name: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.users.UpdateMe(ctx, Identity{UserID: "missing"}, UpdateMeInput{Name: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.signUp(t, "alice@example.com", "d1")

	v, err := f.users.FindOne(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, res.User, *v)

	_, err = f.users.FindOne(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.repo.UpdateSoftDelete(ctx, res.User.ID, time.Now()))
	_, err = f.users.FindOne(ctx, res.User.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
