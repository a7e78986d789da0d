package repository

import (
	"errors"

	"github.com/promodeal-next/internal/models"

	"gorm.io/gorm"
)

// DealAnalyticsRepository 活动统计数据访问接口
type DealAnalyticsRepository interface {
	GetByDeal(dealID uint) (*models.DealAnalytics, error)
	Create(row *models.DealAnalytics) error
	IncrementView(dealID uint, unique bool) error
	IncrementClick(dealID uint) error
	RecordPurchase(dealID uint, revenue models.Money, quantity int) error
	SyncStock(dealID uint, stockRemaining int) error
	WithTx(tx *gorm.DB) *GormDealAnalyticsRepository
}

// GormDealAnalyticsRepository GORM 实现
type GormDealAnalyticsRepository struct {
	db *gorm.DB
}

// NewDealAnalyticsRepository 创建活动统计仓库
func NewDealAnalyticsRepository(db *gorm.DB) *GormDealAnalyticsRepository {
	return &GormDealAnalyticsRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDealAnalyticsRepository) WithTx(tx *gorm.DB) *GormDealAnalyticsRepository {
	if tx == nil {
		return r
	}
	return &GormDealAnalyticsRepository{db: tx}
}

// GetByDeal 获取活动统计行
func (r *GormDealAnalyticsRepository) GetByDeal(dealID uint) (*models.DealAnalytics, error) {
	var row models.DealAnalytics
	if err := r.db.Where("deal_id = ?", dealID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Create 创建活动统计行
func (r *GormDealAnalyticsRepository) Create(row *models.DealAnalytics) error {
	return r.db.Create(row).Error
}

// IncrementView 浏览计数自增，unique 为 true 时同时累加独立访客数
func (r *GormDealAnalyticsRepository) IncrementView(dealID uint, unique bool) error {
	updates := map[string]interface{}{
		"total_views": gorm.Expr("total_views + ?", 1),
	}
	if unique {
		updates["unique_views"] = gorm.Expr("unique_views + ?", 1)
	}
	return r.db.Model(&models.DealAnalytics{}).
		Where("deal_id = ?", dealID).
		Updates(updates).Error
}

// IncrementClick 点击计数自增
func (r *GormDealAnalyticsRepository) IncrementClick(dealID uint) error {
	return r.db.Model(&models.DealAnalytics{}).
		Where("deal_id = ?", dealID).
		Updates(map[string]interface{}{
			"clicks": gorm.Expr("clicks + ?", 1),
		}).Error
}

// RecordPurchase 成交笔数与成交金额累加，剩余库存按本次购买数量相对扣减，
// 并发购买下与活动行的条件扣减保持一致。
func (r *GormDealAnalyticsRepository) RecordPurchase(dealID uint, revenue models.Money, quantity int) error {
	return r.db.Model(&models.DealAnalytics{}).
		Where("deal_id = ?", dealID).
		Updates(map[string]interface{}{
			"total_purchases": gorm.Expr("total_purchases + ?", 1),
			"total_revenue":   gorm.Expr("total_revenue + ?", revenue.Decimal),
			"stock_remaining": gorm.Expr("stock_remaining - ?", quantity),
		}).Error
}

// SyncStock 同步剩余库存快照
func (r *GormDealAnalyticsRepository) SyncStock(dealID uint, stockRemaining int) error {
	return r.db.Model(&models.DealAnalytics{}).
		Where("deal_id = ?", dealID).
		Updates(map[string]interface{}{
			"stock_remaining": stockRemaining,
		}).Error
}
