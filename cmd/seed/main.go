package main

import (
	"time"

	"github.com/promodeal-next/internal/config"
	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/models"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加分类
	categories := []models.Category{
		{Name: "Electronics", SortOrder: 1},
		{Name: "Lifestyle", SortOrder: 2},
		{Name: "Accessories", SortOrder: 3},
	}
	categoryIDs := map[string]uint{}
	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("name = ?", cat.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Name, err)
				continue
			}
			stdLog.Printf("Created category: %s", cat.Name)
			categoryIDs[cat.Name] = cat.ID
		} else {
			stdLog.Printf("Category already exists: %s", existing.Name)
			categoryIDs[existing.Name] = existing.ID
		}
	}

	// 添加商品
	products := []models.Product{
		{Name: "Wireless Earbuds", CategoryID: categoryIDs["Electronics"], PriceAmount: models.NewMoneyFromFloat(59.90), IsActive: true},
		{Name: "Mechanical Keyboard", CategoryID: categoryIDs["Electronics"], PriceAmount: models.NewMoneyFromFloat(129.00), IsActive: true},
		{Name: "Thermos Bottle", CategoryID: categoryIDs["Lifestyle"], PriceAmount: models.NewMoneyFromFloat(25.50), IsActive: true},
		{Name: "USB-C Cable", CategoryID: categoryIDs["Accessories"], PriceAmount: models.NewMoneyFromFloat(9.90), IsActive: true},
	}
	productIDs := make([]uint, 0, len(products))
	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("name = ?", product.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Name, err)
				continue
			}
			stdLog.Printf("Created product: %s", product.Name)
			productIDs = append(productIDs, product.ID)
		} else {
			stdLog.Printf("Product already exists: %s", existing.Name)
			productIDs = append(productIDs, existing.ID)
		}
	}

	// 添加用户
	users := []models.User{
		{Email: "bronze@example.com", DisplayName: "Bronze Buyer", LoyaltyTier: constants.LoyaltyTierBronze, Status: constants.UserStatusActive},
		{Email: "gold@example.com", DisplayName: "Gold Buyer", LoyaltyTier: constants.LoyaltyTierGold, Status: constants.UserStatusActive},
	}
	for _, user := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", user.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", user.Email, err)
			} else {
				stdLog.Printf("Created user: %s", user.Email)
			}
		} else {
			stdLog.Printf("User already exists: %s", existing.Email)
		}
	}

	// 添加示例活动
	now := time.Now()
	tiersRaw, err := models.EncodeTiers([]models.DealTier{
		{MinimumPurchase: models.NewMoneyFromFloat(100), DiscountPercentage: 10},
		{MinimumPurchase: models.NewMoneyFromFloat(300), DiscountPercentage: 20},
	})
	if err != nil {
		stdLog.Fatalf("Failed to encode tiers: %v", err)
	}
	deals := []models.Deal{
		{
			Name:               "Autumn Flash Sale",
			Description:        "Limited time 30% off",
			Type:               constants.DealTypeFlashSale,
			Status:             constants.DealStatusScheduled,
			CategoryID:         categoryIDs["Electronics"],
			IsFeatured:         true,
			StartsAt:           now.Add(time.Hour),
			EndsAt:             now.Add(25 * time.Hour),
			DiscountPercentage: 30,
			TotalStock:         200,
			RemainingStock:     200,
			LimitPerCustomer:   2,
		},
		{
			Name:           "Buy 2 Get 1 Cables",
			Type:           constants.DealTypeBOGO,
			Status:         constants.DealStatusScheduled,
			CategoryID:     categoryIDs["Accessories"],
			StartsAt:       now,
			EndsAt:         now.Add(7 * 24 * time.Hour),
			BuyQuantity:    2,
			GetQuantity:    1,
			TotalStock:     500,
			RemainingStock: 500,
		},
		{
			Name:        "Spend More Save More",
			Type:        constants.DealTypeTiered,
			Status:      constants.DealStatusScheduled,
			MinimumTier: constants.LoyaltyTierSilver,
			StartsAt:    now,
			EndsAt:      now.Add(3 * 24 * time.Hour),
			Tiers:       tiersRaw,
			TotalStock:  100,
			RemainingStock: 100,
		},
	}
	for _, deal := range deals {
		var existing models.Deal
		if err := models.DB.Where("name = ?", deal.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&deal).Error; err != nil {
				stdLog.Printf("Failed to create deal %s: %v", deal.Name, err)
				continue
			}
			analytics := models.DealAnalytics{
				DealID:         deal.ID,
				InitialStock:   deal.TotalStock,
				StockRemaining: deal.RemainingStock,
			}
			if err := models.DB.Create(&analytics).Error; err != nil {
				stdLog.Printf("Failed to create analytics for deal %s: %v", deal.Name, err)
			}
			stdLog.Printf("Created deal: %s", deal.Name)
		} else {
			stdLog.Printf("Deal already exists: %s", existing.Name)
		}
	}

	if len(productIDs) > 0 {
		stdLog.Printf("Seed finished: %d categories, %d products", len(categories), len(productIDs))
	} else {
		stdLog.Printf("Seed finished")
	}
}
