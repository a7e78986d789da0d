package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Deal 促销活动：限时限量折扣
type Deal struct {
	ID          uint   `gorm:"primarykey" json:"id"`                // 主键
	Name        string `gorm:"not null" json:"name"`                // 名称
	Description string `gorm:"type:text" json:"description"`        // 描述
	Type        string `gorm:"not null;index" json:"type"`          // 折扣类型（percentage/fixed_amount/bogo/tiered/flash_sale）
	Status      string `gorm:"not null;index" json:"status"`        // 状态（scheduled/active/ended）
	MinimumTier string `gorm:"default:''" json:"minimum_tier"`      // 参与所需最低会员等级（空表示不限制）
	CategoryID  uint   `gorm:"index;default:0" json:"category_id"`  // 所属分类（0 表示不限制）
	IsFeatured  bool   `gorm:"not null;default:false" json:"is_featured"`
	Stackable   bool   `gorm:"not null;default:false" json:"stackable"` // 是否可与其他优惠叠加

	StartsAt time.Time `gorm:"not null;index" json:"starts_at"` // 生效时间
	EndsAt   time.Time `gorm:"not null;index" json:"ends_at"`   // 失效时间

	DiscountPercentage float64 `gorm:"not null;default:0" json:"discount_percentage"`            // 百分比折扣
	DiscountAmount     Money   `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 固定减免金额
	BuyQuantity        int     `gorm:"not null;default:0" json:"buy_quantity"`                   // BOGO 购买数量
	GetQuantity        int     `gorm:"not null;default:0" json:"get_quantity"`                   // BOGO 赠送数量
	MinimumPurchase    Money   `gorm:"type:decimal(20,2);not null;default:0" json:"minimum_purchase"` // 使用门槛
	Tiers              string  `gorm:"type:text" json:"tiers"`                                   // 阶梯折扣规则（JSON数组）

	TotalStock       int `gorm:"not null;default:0" json:"total_stock"`        // 活动总库存
	RemainingStock   int `gorm:"not null;default:0" json:"remaining_stock"`    // 剩余库存
	LimitPerCustomer int `gorm:"not null;default:0" json:"limit_per_customer"` // 每人限购数量（0 表示不限制）

	Views       int   `gorm:"not null;default:0" json:"views"`       // 浏览次数
	Clicks      int   `gorm:"not null;default:0" json:"clicks"`      // 点击次数
	Conversions int   `gorm:"not null;default:0" json:"conversions"` // 成交次数
	Revenue     Money `gorm:"type:decimal(20,2);not null;default:0" json:"revenue"` // 累计成交金额

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Deal) TableName() string {
	return "deals"
}

// DealTier 阶梯折扣规则：按订单原价门槛选取折扣
type DealTier struct {
	MinimumPurchase    Money   `json:"minimum_purchase"`
	DiscountPercentage float64 `json:"discount_percentage"`
	DiscountAmount     Money   `json:"discount_amount"`
}

// DecodeTiers 解析阶梯折扣规则
func (d *Deal) DecodeTiers() ([]DealTier, error) {
	trimmed := strings.TrimSpace(d.Tiers)
	if trimmed == "" {
		return nil, nil
	}
	var tiers []DealTier
	if err := json.Unmarshal([]byte(trimmed), &tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}

// EncodeTiers 序列化阶梯折扣规则
func EncodeTiers(tiers []DealTier) (string, error) {
	if len(tiers) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(tiers)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
