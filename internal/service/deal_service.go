package service

import (
	"fmt"
	"time"

	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/models"
	"github.com/promodeal-next/internal/repository"

	"gorm.io/gorm"
)

// DealService 活动管理服务
type DealService struct {
	dealRepo      repository.DealRepository
	productRepo   repository.ProductRepository
	dealProdRepo  repository.DealProductRepository
	analyticsRepo repository.DealAnalyticsRepository
}

// NewDealService 创建活动管理服务
func NewDealService(
	dealRepo repository.DealRepository,
	productRepo repository.ProductRepository,
	dealProdRepo repository.DealProductRepository,
	analyticsRepo repository.DealAnalyticsRepository,
) *DealService {
	return &DealService{
		dealRepo:      dealRepo,
		productRepo:   productRepo,
		dealProdRepo:  dealProdRepo,
		analyticsRepo: analyticsRepo,
	}
}

// CreateDealInput 创建活动入参
type CreateDealInput struct {
	Name               string            `json:"name" binding:"required"`
	Description        string            `json:"description"`
	Type               string            `json:"type" binding:"required"`
	MinimumTier        string            `json:"minimum_tier"`
	CategoryID         uint              `json:"category_id"`
	IsFeatured         bool              `json:"is_featured"`
	Stackable          bool              `json:"stackable"`
	StartsAt           time.Time         `json:"starts_at" binding:"required"`
	EndsAt             time.Time         `json:"ends_at" binding:"required"`
	DiscountPercentage float64           `json:"discount_percentage"`
	DiscountAmount     models.Money      `json:"discount_amount"`
	BuyQuantity        int               `json:"buy_quantity"`
	GetQuantity        int               `json:"get_quantity"`
	MinimumPurchase    models.Money      `json:"minimum_purchase"`
	Tiers              []models.DealTier `json:"tiers"`
	TotalStock         int               `json:"total_stock"`
	LimitPerCustomer   int               `json:"limit_per_customer"`
}

// UpdateDealInput 更新活动入参（nil 字段不变更）
type UpdateDealInput struct {
	Name               *string       `json:"name"`
	Description        *string       `json:"description"`
	MinimumTier        *string       `json:"minimum_tier"`
	IsFeatured         *bool         `json:"is_featured"`
	Stackable          *bool         `json:"stackable"`
	StartsAt           *time.Time    `json:"starts_at"`
	EndsAt             *time.Time    `json:"ends_at"`
	DiscountPercentage *float64      `json:"discount_percentage"`
	DiscountAmount     *models.Money `json:"discount_amount"`
	LimitPerCustomer   *int          `json:"limit_per_customer"`
}

// DealSummary 活动详情附带的状态摘要
type DealSummary struct {
	Status           string `json:"status"`
	IsLive           bool   `json:"is_live"`
	SecondsToStart   int64  `json:"seconds_to_start"`   // 未开始时距开始的秒数，否则为 0
	SecondsRemaining int64  `json:"seconds_remaining"`  // 进行中时距结束的秒数，否则为 0
	StockSoldOut     bool   `json:"stock_sold_out"`
}

// DealDetail 活动详情
type DealDetail struct {
	Deal     *models.Deal         `json:"deal"`
	Products []models.DealProduct `json:"products"`
	Summary  DealSummary          `json:"summary"`
}

// CreateDeal 创建活动，初始状态为待开始
func (s *DealService) CreateDeal(input CreateDealInput) (*models.Deal, error) {
	if err := validateDealInput(&input); err != nil {
		return nil, err
	}

	tiersRaw, err := models.EncodeTiers(input.Tiers)
	if err != nil {
		return nil, fmt.Errorf("%w: tiers malformed: %v", ErrDealInvalid, err)
	}

	deal := &models.Deal{
		Name:               input.Name,
		Description:        input.Description,
		Type:               input.Type,
		Status:             constants.DealStatusScheduled,
		MinimumTier:        input.MinimumTier,
		CategoryID:         input.CategoryID,
		IsFeatured:         input.IsFeatured,
		Stackable:          input.Stackable,
		StartsAt:           input.StartsAt,
		EndsAt:             input.EndsAt,
		DiscountPercentage: input.DiscountPercentage,
		DiscountAmount:     input.DiscountAmount,
		BuyQuantity:        input.BuyQuantity,
		GetQuantity:        input.GetQuantity,
		MinimumPurchase:    input.MinimumPurchase,
		Tiers:              tiersRaw,
		TotalStock:         input.TotalStock,
		RemainingStock:     input.TotalStock,
		LimitPerCustomer:   input.LimitPerCustomer,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		dealRepo := s.dealRepo.WithTx(tx)
		analyticsRepo := s.analyticsRepo.WithTx(tx)
		if err := dealRepo.Create(deal); err != nil {
			return err
		}
		return analyticsRepo.Create(&models.DealAnalytics{
			DealID:         deal.ID,
			InitialStock:   deal.TotalStock,
			StockRemaining: deal.RemainingStock,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("deal_created", "deal_id", deal.ID, "type", deal.Type, "starts_at", deal.StartsAt, "ends_at", deal.EndsAt)
	return deal, nil
}

// UpdateDeal 更新活动基础信息
func (s *DealService) UpdateDeal(id uint, input UpdateDealInput) (*models.Deal, error) {
	deal, err := s.dealRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}

	if input.Name != nil {
		deal.Name = *input.Name
	}
	if input.Description != nil {
		deal.Description = *input.Description
	}
	if input.MinimumTier != nil {
		if *input.MinimumTier != "" && !constants.IsValidLoyaltyTier(*input.MinimumTier) {
			return nil, fmt.Errorf("%w: unknown loyalty tier %s", ErrDealInvalid, *input.MinimumTier)
		}
		deal.MinimumTier = *input.MinimumTier
	}
	if input.IsFeatured != nil {
		deal.IsFeatured = *input.IsFeatured
	}
	if input.Stackable != nil {
		deal.Stackable = *input.Stackable
	}
	if input.StartsAt != nil {
		deal.StartsAt = *input.StartsAt
	}
	if input.EndsAt != nil {
		deal.EndsAt = *input.EndsAt
	}
	if !deal.StartsAt.Before(deal.EndsAt) {
		return nil, fmt.Errorf("%w: starts_at must be before ends_at", ErrDealInvalid)
	}
	if input.DiscountPercentage != nil {
		if *input.DiscountPercentage < 0 || *input.DiscountPercentage > 100 {
			return nil, fmt.Errorf("%w: discount_percentage out of range", ErrDealInvalid)
		}
		deal.DiscountPercentage = *input.DiscountPercentage
	}
	if input.DiscountAmount != nil {
		if input.DiscountAmount.IsNegative() {
			return nil, fmt.Errorf("%w: discount_amount must not be negative", ErrDealInvalid)
		}
		deal.DiscountAmount = *input.DiscountAmount
	}
	if input.LimitPerCustomer != nil {
		if *input.LimitPerCustomer < 0 {
			return nil, fmt.Errorf("%w: limit_per_customer must not be negative", ErrDealInvalid)
		}
		deal.LimitPerCustomer = *input.LimitPerCustomer
	}

	if err := s.dealRepo.Update(deal); err != nil {
		return nil, err
	}
	logger.Infow("deal_updated", "deal_id", deal.ID)
	return deal, nil
}

// DeleteDeal 删除活动。仅待开始的活动允许删除。
func (s *DealService) DeleteDeal(id uint) error {
	deal, err := s.dealRepo.GetByID(id)
	if err != nil {
		return err
	}
	if deal == nil {
		return ErrDealNotFound
	}
	if deal.Status != constants.DealStatusScheduled {
		return fmt.Errorf("%w: only scheduled deals can be deleted, current %s", ErrDealStateInvalid, deal.Status)
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		dealRepo := s.dealRepo.WithTx(tx)
		dealProdRepo := s.dealProdRepo.WithTx(tx)
		if err := dealProdRepo.DeleteByDeal(id); err != nil {
			return err
		}
		return dealRepo.Delete(id)
	})
	if err != nil {
		return err
	}
	logger.Infow("deal_deleted", "deal_id", id)
	return nil
}

// GetDeal 获取活动详情（附状态摘要与活动商品）
func (s *DealService) GetDeal(id uint, now time.Time) (*DealDetail, error) {
	deal, err := s.dealRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}

	products, err := s.dealProdRepo.ListByDeal(id)
	if err != nil {
		return nil, err
	}

	return &DealDetail{
		Deal:     deal,
		Products: products,
		Summary:  buildDealSummary(deal, now),
	}, nil
}

// ListDeals 分页获取活动列表
func (s *DealService) ListDeals(filter repository.DealListFilter) ([]models.Deal, int64, error) {
	return s.dealRepo.List(filter)
}

// AddProductInput 活动商品入参
type AddProductInput struct {
	ProductID      uint         `json:"product_id" binding:"required"`
	DealPrice      models.Money `json:"deal_price"`
	StockAllocated int          `json:"stock_allocated"`
}

// AddProducts 批量添加活动商品，原价取自商品当前售价
func (s *DealService) AddProducts(dealID uint, inputs []AddProductInput) ([]models.DealProduct, error) {
	deal, err := s.dealRepo.GetByID(dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: products must not be empty", ErrDealInvalid)
	}

	created := make([]models.DealProduct, 0, len(inputs))
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		productRepo := s.productRepo.WithTx(tx)
		dealProdRepo := s.dealProdRepo.WithTx(tx)
		for _, input := range inputs {
			product, err := productRepo.GetByID(input.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("%w: product %d", ErrProductNotFound, input.ProductID)
			}
			if input.StockAllocated < 0 {
				return fmt.Errorf("%w: stock_allocated must not be negative", ErrDealInvalid)
			}
			item := models.DealProduct{
				DealID:         dealID,
				ProductID:      product.ID,
				DealPrice:      input.DealPrice,
				OriginalPrice:  product.PriceAmount,
				StockAllocated: input.StockAllocated,
				StockRemaining: input.StockAllocated,
				IsActive:       true,
			}
			if err := dealProdRepo.Create(&item); err != nil {
				return err
			}
			created = append(created, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("deal_products_added", "deal_id", dealID, "count", len(created))
	return created, nil
}

// RemoveProduct 移除单个活动商品
func (s *DealService) RemoveProduct(dealID, productID uint) error {
	item, err := s.dealProdRepo.GetByDealAndProduct(dealID, productID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrDealProductNotFound
	}
	if err := s.dealProdRepo.Delete(item.ID); err != nil {
		return err
	}
	logger.Infow("deal_product_removed", "deal_id", dealID, "product_id", productID)
	return nil
}

// validateDealInput 创建活动入参校验
func validateDealInput(input *CreateDealInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name required", ErrDealInvalid)
	}
	if !constants.IsValidDealType(input.Type) {
		return fmt.Errorf("%w: unknown deal type %s", ErrDealInvalid, input.Type)
	}
	if !input.StartsAt.Before(input.EndsAt) {
		return fmt.Errorf("%w: starts_at must be before ends_at", ErrDealInvalid)
	}
	if input.MinimumTier != "" && !constants.IsValidLoyaltyTier(input.MinimumTier) {
		return fmt.Errorf("%w: unknown loyalty tier %s", ErrDealInvalid, input.MinimumTier)
	}
	if input.TotalStock < 0 || input.LimitPerCustomer < 0 {
		return fmt.Errorf("%w: stock and limit must not be negative", ErrDealInvalid)
	}

	switch input.Type {
	case constants.DealTypePercentage, constants.DealTypeFlashSale:
		if input.DiscountPercentage <= 0 || input.DiscountPercentage > 100 {
			return fmt.Errorf("%w: discount_percentage must be in (0,100]", ErrDealInvalid)
		}
	case constants.DealTypeFixedAmount:
		if !input.DiscountAmount.IsPositive() {
			return fmt.Errorf("%w: discount_amount must be positive", ErrDealInvalid)
		}
	case constants.DealTypeBOGO:
		if input.BuyQuantity <= 0 || input.GetQuantity <= 0 {
			return fmt.Errorf("%w: bogo requires buy_quantity and get_quantity", ErrDealInvalid)
		}
	case constants.DealTypeTiered:
		if len(input.Tiers) == 0 {
			return fmt.Errorf("%w: tiered deal requires at least one tier", ErrDealInvalid)
		}
		for _, tier := range input.Tiers {
			if tier.DiscountPercentage < 0 || tier.DiscountPercentage > 100 {
				return fmt.Errorf("%w: tier discount_percentage out of range", ErrDealInvalid)
			}
			if tier.DiscountPercentage == 0 && !tier.DiscountAmount.IsPositive() {
				return fmt.Errorf("%w: tier requires a percentage or a fixed amount", ErrDealInvalid)
			}
		}
	}
	return nil
}

// buildDealSummary 计算活动状态摘要
func buildDealSummary(deal *models.Deal, now time.Time) DealSummary {
	summary := DealSummary{
		Status:       deal.Status,
		StockSoldOut: deal.RemainingStock <= 0,
	}
	switch deal.Status {
	case constants.DealStatusScheduled:
		if deal.StartsAt.After(now) {
			summary.SecondsToStart = int64(deal.StartsAt.Sub(now).Seconds())
		}
	case constants.DealStatusActive:
		summary.IsLive = true
		if deal.EndsAt.After(now) {
			summary.SecondsRemaining = int64(deal.EndsAt.Sub(now).Seconds())
		}
	}
	return summary
}
