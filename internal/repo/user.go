package repo

import (
	"context"
	"strings"
	"time"

	"github.com/Skotchmaster/blog_platform/internal/models"
)

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// SaveUser inserts or updates u; the unique email index is the final guard against duplicates.
func (r *GormRepo) SaveUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return duplicate(r.DB.WithContext(ctx).Save(u).Error)
}

func (r *GormRepo) UpdateSoftDelete(ctx context.Context, id string, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("deleted", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
