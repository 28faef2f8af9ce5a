package model

import "time"

type RoleModel struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
	Default     bool   `gorm:"index;default:false" json:"default"`
	Permissions int    `gorm:"not null" json:"permissions"`
}

func (RoleModel) TableName() string {
	return "roles"
}

type UserModel struct {
	TelegramID       int64     `gorm:"primaryKey;autoIncrement:false" json:"telegram_id"`
	RoleID           int       `gorm:"index;not null;default:1" json:"role_id"`
	Balance          int64     `gorm:"not null;default:0" json:"balance"`
	ReferrerID       *int64    `gorm:"index" json:"referrer_id,omitempty"`
	RegistrationDate time.Time `gorm:"not null" json:"registration_date"`
}

func (UserModel) TableName() string {
	return "users"
}
