package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string     `gorm:"primaryKey;size:36"         json:"id"`
	Name         string     `gorm:"not null;index"             json:"name"`
	Email        string     `gorm:"uniqueIndex;not null"       json:"email"`
	PasswordHash string     `gorm:"not null"                   json:"-"`
	Bio          string     `gorm:"not null;default:''"        json:"bio"`
	Image        *string    `                                  json:"image"`
	IsActive     bool       `gorm:"not null;default:true"      json:"isActive"`
	Deleted      *time.Time `                                  json:"deleted,omitempty"`
	CreatedAt    time.Time  `                                  json:"createdAt"`
	UpdatedAt    time.Time  `                                  json:"updatedAt"`

	RefreshTokens []RefreshToken `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Usable reports whether the account may still authenticate.
func (u *User) Usable() bool {
	return u.IsActive && u.Deleted == nil
}

type RefreshToken struct {
	ID           string    `gorm:"primaryKey;size:36"   json:"id"`
	RefreshToken string    `gorm:"uniqueIndex;not null" json:"refreshToken"`
	DeviceID     string    `gorm:"index;not null"       json:"deviceId"`
	UserID       string    `gorm:"index;not null"       json:"userId"`
	CreatedAt    time.Time `                            json:"createdAt"`
	UpdatedAt    time.Time `                            json:"updatedAt"`
}

func (t *RefreshToken) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
