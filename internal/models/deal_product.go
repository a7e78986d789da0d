package models

import (
	"time"

	"gorm.io/gorm"
)

// DealProduct 活动商品关联：商品参与活动时的专属价与库存分配
type DealProduct struct {
	ID             uint  `gorm:"primarykey" json:"id"`                     // 主键
	DealID         uint  `gorm:"index:idx_deal_product,unique;not null" json:"deal_id"`    // 活动ID
	ProductID      uint  `gorm:"index:idx_deal_product,unique;not null" json:"product_id"` // 商品ID
	DealPrice      Money `gorm:"type:decimal(20,2);not null" json:"deal_price"`     // 活动价
	OriginalPrice  Money `gorm:"type:decimal(20,2);not null" json:"original_price"` // 原价
	StockAllocated int   `gorm:"not null;default:0" json:"stock_allocated"`         // 分配库存
	StockRemaining int   `gorm:"not null;default:0" json:"stock_remaining"`         // 剩余库存
	IsActive       bool  `gorm:"not null;default:true" json:"is_active"`            // 是否启用

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (DealProduct) TableName() string {
	return "deal_products"
}
