package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/blog_platform/internal/logging"
	"github.com/Skotchmaster/blog_platform/internal/models"
	"github.com/Skotchmaster/blog_platform/internal/repo"
	"github.com/Skotchmaster/blog_platform/internal/tokens"
)

var (
	ErrConflict     = errors.New("email already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
)

// UserStore is the credential store.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	UpdateSoftDelete(ctx context.Context, id string, at time.Time) error
}

// SessionStore is the refresh session store.
type SessionStore interface {
	SaveRefresh(ctx context.Context, t *models.RefreshToken) error
	ConsumeRefresh(ctx context.Context, token string) (bool, error)
	DeleteRefreshByUserAndDevice(ctx context.Context, userID, deviceID string) error
	DeleteRefreshByUser(ctx context.Context, userID string) error
}

// AccessCache is the access revocation cache.
type AccessCache interface {
	SaveToken(ctx context.Context, userID, deviceID, token string) error
	DeleteToken(ctx context.Context, userID, deviceID string) error
	DeleteUser(ctx context.Context, userID string) error
}

type TokenMinter interface {
	MintPair(p tokens.Payload) (tokens.Pair, error)
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) bool
}

// Identity is the caller resolved by a guard. It is read-only for the rest of the request.
type Identity struct {
	UserID   string `json:"userId"`
	DeviceID string `json:"deviceId"`
	Email    string `json:"email"`
}

type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Bio   string `json:"bio"`
	Image string `json:"image"`
}

func ToUserView(u *models.User) UserView {
	v := UserView{ID: u.ID, Name: u.Name, Email: u.Email, Bio: u.Bio}
	if u.Image != nil {
		v.Image = *u.Image
	}
	return v
}

type AuthResult struct {
	User   UserView    `json:"user"`
	Tokens tokens.Pair `json:"tokens"`
}

type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	DeviceID string `json:"deviceId"`
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	cache    AccessCache
	tokens   TokenMinter
	hasher   PasswordHasher
}

func NewAuthService(users UserStore, sessions SessionStore, cache AccessCache, minter TokenMinter, hasher PasswordHasher) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cache:    cache,
		tokens:   minter,
		hasher:   hasher,
	}
}

func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.sign_up")

	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateCredentials(in.Email, in.Password, in.DeviceID); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	_, err := s.users.FindUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		l.Warn("sign_up_failed", "reason", "email already exists")
		return nil, ErrConflict
	case !errors.Is(err, repo.ErrNotFound):
		l.Error("sign_up_failed", "reason", "cannot look up email", "error", err)
		return nil, err
	}

	pwHash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		l.Error("sign_up_failed", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: pwHash,
		Bio:          in.Bio,
		IsActive:     true,
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrConflict
		}
		l.Error("sign_up_failed", "reason", "cannot save user", "error", err)
		return nil, err
	}

	// The user row stays committed even if issuing the session fails below.
	pair, err := s.replaceSession(ctx, user, in.DeviceID)
	if err != nil {
		l.Error("sign_up_failed", "reason", "cannot issue session", "user_id", user.ID, "error", err)
		return nil, err
	}

	l.Info("sign_up_successful", "user_id", user.ID, "device_id", in.DeviceID)
	return &AuthResult{User: ToUserView(user), Tokens: pair}, nil
}

func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.sign_in")

	in.Email = normalizeEmail(in.Email)
	if err := validateCredentials(in.Email, in.Password, in.DeviceID); err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("sign_in_failed", "reason", "invalid email or password")
			return nil, ErrUnauthorized
		}
		l.Error("sign_in_failed", "error", err)
		return nil, err
	}
	if !s.hasher.CheckPassword(user.PasswordHash, in.Password) {
		l.Warn("sign_in_failed", "reason", "invalid email or password")
		return nil, ErrUnauthorized
	}
	if !user.Usable() {
		l.Warn("sign_in_failed", "reason", "account disabled", "user_id", user.ID)
		return nil, ErrUnauthorized
	}

	pair, err := s.replaceSession(ctx, user, in.DeviceID)
	if err != nil {
		l.Error("sign_in_failed", "reason", "cannot issue session", "user_id", user.ID, "error", err)
		return nil, err
	}

	l.Info("sign_in_successful", "user_id", user.ID, "device_id", in.DeviceID)
	return &AuthResult{User: ToUserView(user), Tokens: pair}, nil
}

// Refresh exchanges refreshToken, already checked by the refresh guard, for a new pair.
// The presented token is consumed first so it can be exchanged at most once.
func (s *AuthService) Refresh(ctx context.Context, id Identity, refreshToken string) (*tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh", "user_id", id.UserID, "device_id", id.DeviceID)

	consumed, err := s.sessions.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		l.Error("refresh_failed", "reason", "cannot consume refresh token", "error", err)
		return nil, err
	}
	if !consumed {
		l.Warn("refresh_failed", "reason", "refresh token already used or revoked")
		return nil, ErrUnauthorized
	}

	user := &models.User{ID: id.UserID, Email: id.Email}
	pair, err := s.issue(ctx, user, id.DeviceID)
	if err != nil {
		l.Error("refresh_failed", "reason", "cannot issue session", "error", err)
		return nil, err
	}

	l.Info("refresh_successful")
	return &pair, nil
}

// SignOut revokes the device session. Signing out twice is not an error.
func (s *AuthService) SignOut(ctx context.Context, id Identity) error {
	l := logging.FromContext(ctx).With("svc", "auth.sign_out", "user_id", id.UserID, "device_id", id.DeviceID)

	err := errors.Join(
		s.cache.DeleteToken(ctx, id.UserID, id.DeviceID),
		s.sessions.DeleteRefreshByUserAndDevice(ctx, id.UserID, id.DeviceID),
	)
	if err != nil {
		l.Error("sign_out_failed", "error", err)
		return err
	}

	l.Info("sign_out_successful")
	return nil
}

// replaceSession drops whatever refresh record the device still holds and issues a new session,
// so a device owns at most one live session.
func (s *AuthService) replaceSession(ctx context.Context, user *models.User, deviceID string) (tokens.Pair, error) {
	if err := s.sessions.DeleteRefreshByUserAndDevice(ctx, user.ID, deviceID); err != nil {
		return tokens.Pair{}, fmt.Errorf("drop previous session: %w", err)
	}
	return s.issue(ctx, user, deviceID)
}

// issue mints a pair for (user, device), replaces the device's cache entry and persists the refresh record.
func (s *AuthService) issue(ctx context.Context, user *models.User, deviceID string) (tokens.Pair, error) {
	pair, err := s.tokens.MintPair(tokens.Payload{UserID: user.ID, DeviceID: deviceID, Email: user.Email})
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("mint tokens: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.cache.SaveToken(gctx, user.ID, deviceID, pair.AccessToken); err != nil {
			return fmt.Errorf("cache access token: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		record := &models.RefreshToken{
			RefreshToken: pair.RefreshToken,
			DeviceID:     deviceID,
			UserID:       user.ID,
		}
		if err := s.sessions.SaveRefresh(gctx, record); err != nil {
			return fmt.Errorf("save refresh token: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return tokens.Pair{}, err
	}
	return pair, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const minPasswordLen = 8

func validateCredentials(email, password, deviceID string) error {
	switch {
	case email == "":
		return fmt.Errorf("%w: email is required", ErrValidation)
	case !emailPattern.MatchString(email):
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	case password == "":
		return fmt.Errorf("%w: password is required", ErrValidation)
	case strings.TrimSpace(deviceID) == "":
		return fmt.Errorf("%w: deviceId is required", ErrValidation)
	}
	return nil
}
