package models

import "time"

// DealAnalytics 活动统计：每个活动一行聚合计数，衍生比率读取时计算
type DealAnalytics struct {
	ID             uint  `gorm:"primarykey" json:"id"`                  // 主键
	DealID         uint  `gorm:"uniqueIndex;not null" json:"deal_id"`   // 活动ID
	TotalViews     int   `gorm:"not null;default:0" json:"total_views"` // 总浏览
	UniqueViews    int   `gorm:"not null;default:0" json:"unique_views"`    // 独立访客浏览
	Clicks         int   `gorm:"not null;default:0" json:"clicks"`          // 点击
	TotalPurchases int   `gorm:"not null;default:0" json:"total_purchases"` // 成交笔数
	TotalRevenue   Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_revenue"` // 成交金额
	InitialStock   int   `gorm:"not null;default:0" json:"initial_stock"`   // 初始库存
	StockRemaining int   `gorm:"not null;default:0" json:"stock_remaining"` // 剩余库存

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (DealAnalytics) TableName() string {
	return "deal_analytics"
}
