package repository

import (
	"errors"

	"github.com/promodeal-next/internal/models"

	"gorm.io/gorm"
)

// DealProductRepository 活动商品数据访问接口
type DealProductRepository interface {
	GetByID(id uint) (*models.DealProduct, error)
	GetByDealAndProduct(dealID, productID uint) (*models.DealProduct, error)
	ListByDeal(dealID uint) ([]models.DealProduct, error)
	Create(item *models.DealProduct) error
	Update(item *models.DealProduct) error
	Delete(id uint) error
	DeleteByDeal(dealID uint) error
	TryDecrementStock(id uint, quantity int) (bool, error)
	WithTx(tx *gorm.DB) *GormDealProductRepository
}

// GormDealProductRepository GORM 实现
type GormDealProductRepository struct {
	db *gorm.DB
}

// NewDealProductRepository 创建活动商品仓库
func NewDealProductRepository(db *gorm.DB) *GormDealProductRepository {
	return &GormDealProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDealProductRepository) WithTx(tx *gorm.DB) *GormDealProductRepository {
	if tx == nil {
		return r
	}
	return &GormDealProductRepository{db: tx}
}

// GetByID 根据ID获取活动商品
func (r *GormDealProductRepository) GetByID(id uint) (*models.DealProduct, error) {
	var item models.DealProduct
	if err := r.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// GetByDealAndProduct 根据活动与商品获取关联记录
func (r *GormDealProductRepository) GetByDealAndProduct(dealID, productID uint) (*models.DealProduct, error) {
	var item models.DealProduct
	if err := r.db.Where("deal_id = ? AND product_id = ?", dealID, productID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListByDeal 获取活动下的全部商品
func (r *GormDealProductRepository) ListByDeal(dealID uint) ([]models.DealProduct, error) {
	var items []models.DealProduct
	if err := r.db.Where("deal_id = ?", dealID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Create 创建活动商品
func (r *GormDealProductRepository) Create(item *models.DealProduct) error {
	return r.db.Create(item).Error
}

// Update 更新活动商品
func (r *GormDealProductRepository) Update(item *models.DealProduct) error {
	return r.db.Save(item).Error
}

// Delete 删除活动商品
func (r *GormDealProductRepository) Delete(id uint) error {
	return r.db.Delete(&models.DealProduct{}, id).Error
}

// DeleteByDeal 删除活动下的全部商品关联
func (r *GormDealProductRepository) DeleteByDeal(dealID uint) error {
	return r.db.Where("deal_id = ?", dealID).Delete(&models.DealProduct{}).Error
}

// TryDecrementStock 条件扣减活动商品库存，库存不足时返回 false
func (r *GormDealProductRepository) TryDecrementStock(id uint, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, errors.New("quantity must be positive")
	}
	result := r.db.Model(&models.DealProduct{}).
		Where("id = ? AND stock_remaining >= ?", id, quantity).
		Updates(map[string]interface{}{
			"stock_remaining": gorm.Expr("stock_remaining - ?", quantity),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
