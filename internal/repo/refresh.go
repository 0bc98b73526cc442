package repo

import (
	"context"

	"github.com/Skotchmaster/blog_platform/internal/models"
)

func (r *GormRepo) SaveRefresh(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *GormRepo) RefreshExists(ctx context.Context, token string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("refresh_token = ?", token).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ConsumeRefresh deletes the row holding token and reports whether it existed.
// Of two concurrent callers presenting the same token only one sees true.
func (r *GormRepo) ConsumeRefresh(ctx context.Context, token string) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("refresh_token = ?", token).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) DeleteRefreshByUserAndDevice(ctx context.Context, userID, deviceID string) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Delete(&models.RefreshToken{}).Error
}

func (r *GormRepo) DeleteRefreshByUser(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.RefreshToken{}).Error
}
