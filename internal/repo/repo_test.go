package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/blog_platform/internal/db"
	"github.com/Skotchmaster/blog_platform/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()
	gdb, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	return NewGormRepo(gdb)
}

func seedUser(t *testing.T, r *GormRepo, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "A", Email: email, PasswordHash: "hash", IsActive: true}
	require.NoError(t, r.SaveUser(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

func TestUsers_SaveAndFind(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "  Mixed@Case.COM ")

	assert.Equal(t, "mixed@case.com", u.Email)

	byEmail, err := r.FindUserByEmail(ctx, "MIXED@case.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := r.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "mixed@case.com", byID.Email)
	assert.Nil(t, byID.Deleted)
}

func TestUsers_NotFound(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, r.UpdateSoftDelete(ctx, "missing", time.Now()), ErrNotFound)
}

func TestUsers_DuplicateEmailRejectedByIndex(t *testing.T) {
	r := newTestRepo(t)
	seedUser(t, r, "dup@example.com")

	err := r.SaveUser(context.Background(), &models.User{Name: "B", Email: "DUP@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUsers_UpdateSoftDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "soft@example.com")

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.UpdateSoftDelete(ctx, u.ID, at))

	got, err := r.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Deleted)
	assert.WithinDuration(t, at, *got.Deleted, time.Second)
	assert.False(t, got.Usable())
}

func TestRefresh_Lifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "refresh@example.com")

	require.NoError(t, r.SaveRefresh(ctx, &models.RefreshToken{RefreshToken: "tok-d1", DeviceID: "d1", UserID: u.ID}))
	require.NoError(t, r.SaveRefresh(ctx, &models.RefreshToken{RefreshToken: "tok-d2", DeviceID: "d2", UserID: u.ID}))

	ok, err := r.RefreshExists(ctx, "tok-d1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.DeleteRefreshByUserAndDevice(ctx, u.ID, "d1"))
	ok, err = r.RefreshExists(ctx, "tok-d1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.RefreshExists(ctx, "tok-d2")
	require.NoError(t, err)
	assert.True(t, ok, "other devices keep their session")

	// deleting an absent session is not an error
	require.NoError(t, r.DeleteRefreshByUserAndDevice(ctx, u.ID, "d1"))

	require.NoError(t, r.DeleteRefreshByUser(ctx, u.ID))
	ok, err = r.RefreshExists(ctx, "tok-d2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefresh_ConsumeIsSingleUse(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "consume@example.com")

	require.NoError(t, r.SaveRefresh(ctx, &models.RefreshToken{RefreshToken: "once", DeviceID: "d1", UserID: u.ID}))

	first, err := r.ConsumeRefresh(ctx, "once")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := r.ConsumeRefresh(ctx, "once")
	require.NoError(t, err)
	assert.False(t, second)
}
