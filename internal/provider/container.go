package provider

import (
	"time"

	"github.com/promodeal-next/internal/cache"
	"github.com/promodeal-next/internal/config"
	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/models"
	"github.com/promodeal-next/internal/queue"
	"github.com/promodeal-next/internal/repository"
	"github.com/promodeal-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	DealRepo          repository.DealRepository
	DealProductRepo   repository.DealProductRepository
	DealPurchaseRepo  repository.DealPurchaseRepository
	DealAnalyticsRepo repository.DealAnalyticsRepository
	ProductRepo       repository.ProductRepository
	UserRepo          repository.UserRepository

	// Services
	Notifier           service.Notifier
	PricingService     *service.PricingService
	EligibilityService *service.EligibilityService
	DealService        *service.DealService
	PurchaseService    *service.PurchaseService
	LifecycleService   *service.LifecycleService
	AnalyticsService   *service.AnalyticsService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.DealRepo = repository.NewDealRepository(db)
	c.DealProductRepo = repository.NewDealProductRepository(db)
	c.DealPurchaseRepo = repository.NewDealPurchaseRepository(db)
	c.DealAnalyticsRepo = repository.NewDealAnalyticsRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
}

func (c *Container) initServices() {
	c.Notifier = service.NewQueueNotifier(c.QueueClient)
	c.PricingService = service.NewPricingService()
	c.EligibilityService = service.NewEligibilityService()
	c.DealService = service.NewDealService(c.DealRepo, c.ProductRepo, c.DealProductRepo, c.DealAnalyticsRepo)
	c.PurchaseService = service.NewPurchaseService(
		c.DealRepo,
		c.DealPurchaseRepo,
		c.UserRepo,
		c.DealAnalyticsRepo,
		c.EligibilityService,
		c.Notifier,
	)
	c.LifecycleService = service.NewLifecycleService(c.DealRepo, c.DealAnalyticsRepo, c.Notifier)
	c.AnalyticsService = service.NewAnalyticsService(
		c.DealRepo,
		c.DealAnalyticsRepo,
		time.Duration(c.Config.Deal.ViewDedupTTLHours)*time.Hour,
	)
}
