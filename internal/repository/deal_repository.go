package repository

import (
	"errors"
	"time"

	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DealRepository 活动数据访问接口
type DealRepository interface {
	GetByID(id uint) (*models.Deal, error)
	GetByIDForUpdate(id uint) (*models.Deal, error)
	Create(deal *models.Deal) error
	Update(deal *models.Deal) error
	Delete(id uint) error
	List(filter DealListFilter) ([]models.Deal, int64, error)
	ListExpiringBefore(deadline time.Time, limit int) ([]models.Deal, error)
	ActivateDue(now time.Time) (int64, []uint, error)
	EndExpired(now time.Time) (int64, []uint, error)
	TryDecrementStock(dealID uint, quantity int) (bool, error)
	IncrementViews(dealID uint) error
	IncrementClicks(dealID uint) error
	RecordConversion(dealID uint, revenue models.Money) error
	WithTx(tx *gorm.DB) *GormDealRepository
}

// DealListFilter 活动列表筛选
type DealListFilter struct {
	Status     string
	Type       string
	CategoryID uint
	IsFeatured *bool
	Keyword    string
	Page       int
	PageSize   int
}

// GormDealRepository GORM 实现
type GormDealRepository struct {
	db *gorm.DB
}

// NewDealRepository 创建活动仓库
func NewDealRepository(db *gorm.DB) *GormDealRepository {
	return &GormDealRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDealRepository) WithTx(tx *gorm.DB) *GormDealRepository {
	if tx == nil {
		return r
	}
	return &GormDealRepository{db: tx}
}

// GetByID 根据ID获取活动
func (r *GormDealRepository) GetByID(id uint) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.First(&deal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deal, nil
}

// GetByIDForUpdate 加行级写锁获取活动，必须在事务内调用
func (r *GormDealRepository) GetByIDForUpdate(id uint) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&deal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deal, nil
}

// Create 创建活动
func (r *GormDealRepository) Create(deal *models.Deal) error {
	return r.db.Create(deal).Error
}

// Update 更新活动
func (r *GormDealRepository) Update(deal *models.Deal) error {
	return r.db.Save(deal).Error
}

// Delete 删除活动
func (r *GormDealRepository) Delete(id uint) error {
	return r.db.Delete(&models.Deal{}, id).Error
}

// List 获取活动列表
func (r *GormDealRepository) List(filter DealListFilter) ([]models.Deal, int64, error) {
	var deals []models.Deal
	query := r.db.Model(&models.Deal{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.IsFeatured != nil {
		query = query.Where("is_featured = ?", *filter.IsFeatured)
	}
	if filter.Keyword != "" {
		query = query.Where("name LIKE ?", "%"+filter.Keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("id desc").Find(&deals).Error; err != nil {
		return nil, 0, err
	}
	return deals, total, nil
}

// ListExpiringBefore 获取即将结束的进行中活动
func (r *GormDealRepository) ListExpiringBefore(deadline time.Time, limit int) ([]models.Deal, error) {
	var deals []models.Deal
	query := r.db.Where("status = ? AND ends_at <= ?", constants.DealStatusActive, deadline)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("ends_at asc").Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

// ActivateDue 将到达开始时间的待开始活动置为进行中，返回受影响的活动ID
func (r *GormDealRepository) ActivateDue(now time.Time) (int64, []uint, error) {
	ids, err := r.collectIDs("status = ? AND starts_at <= ? AND ends_at > ?", constants.DealStatusScheduled, now, now)
	if err != nil {
		return 0, nil, err
	}
	if len(ids) == 0 {
		return 0, nil, nil
	}
	result := r.db.Model(&models.Deal{}).
		Where("id IN ? AND status = ?", ids, constants.DealStatusScheduled).
		Updates(map[string]interface{}{
			"status":     constants.DealStatusActive,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, nil, result.Error
	}
	return result.RowsAffected, ids, nil
}

// EndExpired 将超过结束时间的活动置为已结束（待开始活动允许直接跳过进行中）
func (r *GormDealRepository) EndExpired(now time.Time) (int64, []uint, error) {
	ids, err := r.collectIDs("status IN ? AND ends_at <= ?", []string{constants.DealStatusScheduled, constants.DealStatusActive}, now)
	if err != nil {
		return 0, nil, err
	}
	if len(ids) == 0 {
		return 0, nil, nil
	}
	result := r.db.Model(&models.Deal{}).
		Where("id IN ? AND status <> ?", ids, constants.DealStatusEnded).
		Updates(map[string]interface{}{
			"status":     constants.DealStatusEnded,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, nil, result.Error
	}
	return result.RowsAffected, ids, nil
}

func (r *GormDealRepository) collectIDs(cond string, args ...interface{}) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Deal{}).Where(cond, args...).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// TryDecrementStock 条件扣减活动库存，库存不足时返回 false
func (r *GormDealRepository) TryDecrementStock(dealID uint, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, errors.New("quantity must be positive")
	}
	result := r.db.Model(&models.Deal{}).
		Where("id = ? AND remaining_stock >= ?", dealID, quantity).
		Updates(map[string]interface{}{
			"remaining_stock": gorm.Expr("remaining_stock - ?", quantity),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementViews 浏览计数自增
func (r *GormDealRepository) IncrementViews(dealID uint) error {
	return r.db.Model(&models.Deal{}).
		Where("id = ?", dealID).
		Updates(map[string]interface{}{
			"views": gorm.Expr("views + ?", 1),
		}).Error
}

// IncrementClicks 点击计数自增
func (r *GormDealRepository) IncrementClicks(dealID uint) error {
	return r.db.Model(&models.Deal{}).
		Where("id = ?", dealID).
		Updates(map[string]interface{}{
			"clicks": gorm.Expr("clicks + ?", 1),
		}).Error
}

// RecordConversion 成交计数与成交金额累加
func (r *GormDealRepository) RecordConversion(dealID uint, revenue models.Money) error {
	return r.db.Model(&models.Deal{}).
		Where("id = ?", dealID).
		Updates(map[string]interface{}{
			"conversions": gorm.Expr("conversions + ?", 1),
			"revenue":     gorm.Expr("revenue + ?", revenue.Decimal),
		}).Error
}
