package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品（活动关联对象，完整商品管理由外部系统负责）
type Product struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	CategoryID  uint   `gorm:"index;default:0" json:"category_id"`
	PriceAmount Money  `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"` // 售价
	IsActive    bool   `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
