package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/blog_platform/internal/logging"
	"github.com/Skotchmaster/blog_platform/internal/models"
	"github.com/Skotchmaster/blog_platform/internal/repo"
)

type UsersService struct {
	users    UserStore
	sessions SessionStore
	cache    AccessCache
	now      func() time.Time
}

func NewUsersService(users UserStore, sessions SessionStore, cache AccessCache) *UsersService {
	return &UsersService{users: users, sessions: sessions, cache: cache, now: time.Now}
}

// Me returns the profile of the authenticated caller.
func (s *UsersService) Me(ctx context.Context, id Identity) (*UserView, error) {
	user, err := s.usable(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	v := ToUserView(user)
	return &v, nil
}

type UpdateMeInput struct {
	Name string `json:"name"`
}

// UpdateMe renames the caller. Name is the only editable field.
func (s *UsersService) UpdateMe(ctx context.Context, id Identity, in UpdateMeInput) (*UserView, error) {
	l := logging.FromContext(ctx).With("svc", "users.update_me", "user_id", id.UserID)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	user, err := s.usable(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	if err := s.users.SaveUser(ctx, user); err != nil {
		l.Error("update_me_failed", "error", err)
		return nil, err
	}

	l.Info("update_me_successful")
	v := ToUserView(user)
	return &v, nil
}

// FindOne returns the public profile of any live user.
func (s *UsersService) FindOne(ctx context.Context, userID string) (*UserView, error) {
	user, err := s.usable(ctx, userID)
	if err != nil {
		return nil, err
	}
	v := ToUserView(user)
	return &v, nil
}

func (s *UsersService) usable(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		logging.FromContext(ctx).Error("find_user_failed", "user_id", userID, "error", err)
		return nil, err
	}
	if !user.Usable() {
		return nil, ErrNotFound
	}
	return user, nil
}

// RemoveMe soft-deletes the caller and revokes every session they hold, on all devices.
func (s *UsersService) RemoveMe(ctx context.Context, id Identity) error {
	l := logging.FromContext(ctx).With("svc", "users.remove_me", "user_id", id.UserID)

	if err := s.users.UpdateSoftDelete(ctx, id.UserID, s.now().UTC()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		l.Error("remove_me_failed", "reason", "cannot mark user deleted", "error", err)
		return err
	}

	err := errors.Join(
		s.sessions.DeleteRefreshByUser(ctx, id.UserID),
		s.cache.DeleteUser(ctx, id.UserID),
	)
	if err != nil {
		l.Error("remove_me_failed", "reason", "cannot revoke sessions", "error", err)
		return err
	}

	l.Info("remove_me_successful")
	return nil
}
