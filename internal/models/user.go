package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户（活动参与者，注册与认证由外部系统负责）
type User struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName string `json:"display_name"`
	LoyaltyTier string `gorm:"not null;default:'bronze'" json:"loyalty_tier"` // 会员等级（bronze/silver/gold/platinum）
	Status      string `gorm:"not null;default:'active'" json:"status"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
