package models

import "time"

// DealPurchase 活动购买流水：每次成交写入一条，只增不改
type DealPurchase struct {
	ID              uint      `gorm:"primarykey" json:"id"`                     // 主键
	DealID          uint      `gorm:"index;not null" json:"deal_id"`            // 活动ID
	UserID          uint      `gorm:"index;not null" json:"user_id"`            // 用户ID
	OrderNo         string    `gorm:"uniqueIndex;not null" json:"order_no"`     // 订单号（幂等键）
	Quantity        int       `gorm:"not null" json:"quantity"`                 // 购买数量
	PurchasePrice   Money     `gorm:"type:decimal(20,2);not null" json:"purchase_price"`   // 成交金额
	DiscountApplied Money     `gorm:"type:decimal(20,2);not null" json:"discount_applied"` // 折扣金额
	PurchasedAt     time.Time `gorm:"index;not null" json:"purchased_at"`       // 成交时间
}

// TableName 指定表名
func (DealPurchase) TableName() string {
	return "deal_purchases"
}
