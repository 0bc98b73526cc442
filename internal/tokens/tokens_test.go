package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(Config{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)
	return c
}

var testPayload = Payload{UserID: "user-1", DeviceID: "d1", Email: "a@b.com"}

func TestNewCodec_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(Config{RefreshSecret: []byte("r"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.Error(t, err)
	_, err = NewCodec(Config{AccessSecret: []byte("a"), RefreshSecret: []byte("r")})
	require.Error(t, err)
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	for _, kind := range []Kind{KindAccess, KindRefresh} {
		token, err := c.Mint(testPayload, kind)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := c.Verify(token, kind)
		require.NoError(t, err)
		assert.Equal(t, testPayload, claims.Payload())
		assert.Equal(t, kind, claims.Kind)
		assert.Equal(t, testPayload.UserID, claims.Subject)
		assert.NotEmpty(t, claims.ID)
		require.NotNil(t, claims.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(c.TTL(kind)), claims.ExpiresAt.Time, 2*time.Second)
	}
}

func TestCodec_KindIsNotInterchangeable(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	pair, err := c.MintPair(testPayload)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	_, err = c.Verify(pair.AccessToken, KindRefresh)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = c.Verify(pair.RefreshToken, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_KindCheckedEvenWithSharedSecret(t *testing.T) {
	t.Parallel()

	c, err := NewCodec(Config{
		AccessSecret:  []byte("shared"),
		RefreshSecret: []byte("shared"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	refresh, err := c.Mint(testPayload, KindRefresh)
	require.NoError(t, err)

	_, err = c.Verify(refresh, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_Expired(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	c.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := c.Mint(testPayload, KindAccess)
	require.NoError(t, err)

	c.now = time.Now
	_, err = c.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_WrongSecret(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	other, err := NewCodec(Config{
		AccessSecret:  []byte("another-access-secret"),
		RefreshSecret: []byte("another-refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	token, err := other.Mint(testPayload, KindAccess)
	require.NoError(t, err)

	_, err = c.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_Malformed(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	for _, raw := range []string{"", "not-a-valid-jwt", "a.b.c"} {
		_, err := c.Verify(raw, KindAccess)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestCodec_RejectsForeignAlgorithm(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	claims := Claims{
		UserID:   "user-1",
		DeviceID: "d1",
		Kind:     KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-access-secret"))
	require.NoError(t, err)

	_, err = c.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_MissingExpiry(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	claims := Claims{UserID: "user-1", DeviceID: "d1", Kind: KindAccess}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-access-secret"))
	require.NoError(t, err)

	_, err = c.Verify(token, KindAccess)
	assert.Error(t, err)
}
