package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed        = errors.New("token malformed")
	ErrExpired          = errors.New("token expired")
	ErrInvalidSignature = errors.New("token signature invalid")
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Payload is what a token asserts about its bearer.
type Payload struct {
	UserID   string
	DeviceID string
	Email    string
}

type Claims struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
	Email    string `json:"email"`
	Kind     Kind   `json:"kind"`
	jwt.RegisteredClaims
}

func (c *Claims) Payload() Payload {
	return Payload{UserID: c.UserID, DeviceID: c.DeviceID, Email: c.Email}
}

type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Codec mints and verifies HS256 tokens with independent secrets and lifetimes per Kind.
type Codec struct {
	cfg Config
	now func() time.Time
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("tokens: access and refresh secrets are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("tokens: TTLs must be positive")
	}
	return &Codec{cfg: cfg, now: time.Now}, nil
}

func (c *Codec) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.cfg.RefreshTTL
	}
	return c.cfg.AccessTTL
}

func (c *Codec) secret(kind Kind) ([]byte, error) {
	switch kind {
	case KindAccess:
		return c.cfg.AccessSecret, nil
	case KindRefresh:
		return c.cfg.RefreshSecret, nil
	default:
		return nil, fmt.Errorf("tokens: unknown kind %q", kind)
	}
}

func (c *Codec) Mint(p Payload, kind Kind) (string, error) {
	secret, err := c.secret(kind)
	if err != nil {
		return "", err
	}
	now := c.now()
	claims := Claims{
		UserID:   p.UserID,
		DeviceID: p.DeviceID,
		Email:    p.Email,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(kind))),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (c *Codec) MintPair(p Payload) (Pair, error) {
	access, err := c.Mint(p, KindAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := c.Mint(p, KindRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks signature, expiry, and that the token was minted as kind.
func (c *Codec) Verify(tokenStr string, kind Kind) (*Claims, error) {
	secret, err := c.secret(kind)
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	var claims Claims
	tkn, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !tkn.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != kind {
		return nil, ErrInvalidSignature
	}
	if claims.UserID == "" || claims.DeviceID == "" {
		return nil, ErrMalformed
	}
	return &claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
