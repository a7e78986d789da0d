package repository

import (
	"errors"

	"github.com/promodeal-next/internal/models"

	"gorm.io/gorm"
)

// DealPurchaseRepository 活动购买流水数据访问接口
type DealPurchaseRepository interface {
	Create(purchase *models.DealPurchase) error
	GetByOrderNo(orderNo string) (*models.DealPurchase, error)
	SumQuantityByUser(dealID, userID uint) (int, error)
	ListByDeal(dealID uint, page, pageSize int) ([]models.DealPurchase, int64, error)
	ListByUser(userID uint, page, pageSize int) ([]models.DealPurchase, int64, error)
	WithTx(tx *gorm.DB) *GormDealPurchaseRepository
}

// GormDealPurchaseRepository GORM 实现
type GormDealPurchaseRepository struct {
	db *gorm.DB
}

// NewDealPurchaseRepository 创建活动购买流水仓库
func NewDealPurchaseRepository(db *gorm.DB) *GormDealPurchaseRepository {
	return &GormDealPurchaseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDealPurchaseRepository) WithTx(tx *gorm.DB) *GormDealPurchaseRepository {
	if tx == nil {
		return r
	}
	return &GormDealPurchaseRepository{db: tx}
}

// Create 写入购买流水（order_no 唯一索引保证幂等）
func (r *GormDealPurchaseRepository) Create(purchase *models.DealPurchase) error {
	return r.db.Create(purchase).Error
}

// GetByOrderNo 根据订单号获取购买流水
func (r *GormDealPurchaseRepository) GetByOrderNo(orderNo string) (*models.DealPurchase, error) {
	var purchase models.DealPurchase
	if err := r.db.Where("order_no = ?", orderNo).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

// SumQuantityByUser 统计用户在活动内的累计购买数量
func (r *GormDealPurchaseRepository) SumQuantityByUser(dealID, userID uint) (int, error) {
	var total int64
	err := r.db.Model(&models.DealPurchase{}).
		Where("deal_id = ? AND user_id = ?", dealID, userID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// ListByDeal 获取活动的购买流水
func (r *GormDealPurchaseRepository) ListByDeal(dealID uint, page, pageSize int) ([]models.DealPurchase, int64, error) {
	return r.list(r.db.Model(&models.DealPurchase{}).Where("deal_id = ?", dealID), page, pageSize)
}

// ListByUser 获取用户的购买流水
func (r *GormDealPurchaseRepository) ListByUser(userID uint, page, pageSize int) ([]models.DealPurchase, int64, error) {
	return r.list(r.db.Model(&models.DealPurchase{}).Where("user_id = ?", userID), page, pageSize)
}

func (r *GormDealPurchaseRepository) list(query *gorm.DB, page, pageSize int) ([]models.DealPurchase, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var purchases []models.DealPurchase
	query = applyPagination(query, page, pageSize)
	if err := query.Order("id desc").Find(&purchases).Error; err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}
