package provider

import (
	"time"

	"github.com/storefront/coupon-engine/internal/authz"
	"github.com/storefront/coupon-engine/internal/cache"
	"github.com/storefront/coupon-engine/internal/config"
	"github.com/storefront/coupon-engine/internal/logger"
	"github.com/storefront/coupon-engine/internal/models"
	"github.com/storefront/coupon-engine/internal/queue"
	"github.com/storefront/coupon-engine/internal/repository"
	"github.com/storefront/coupon-engine/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo             repository.UserRepository
	CouponRepo           repository.CouponRepository
	CouponUsageRepo      repository.CouponUsageRepository
	CouponAssignmentRepo repository.CouponAssignmentRepository

	// Services
	AuthzService            *authz.Service
	AdminTokenService       *service.AdminTokenService
	CouponService           *service.CouponService
	CouponAdminService      *service.CouponAdminService
	CouponAssignmentService *service.CouponAssignmentService
	CouponUsageService      *service.CouponUsageService
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
	c.UserRepo = repository.NewUserRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(db)
	c.CouponAssignmentRepo = repository.NewCouponAssignmentRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AdminTokenService = service.NewAdminTokenService(c.Config.JWT)

	couponCfg := c.Config.Coupon
	metaTTL := time.Duration(couponCfg.MetadataCacheTTLSeconds) * time.Second
	c.CouponService = service.NewCouponService(c.CouponRepo, c.CouponUsageRepo, c.CouponAssignmentRepo, metaTTL)
	c.CouponAdminService = service.NewCouponAdminService(c.CouponRepo, c.CouponUsageRepo, c.CouponAssignmentRepo, couponCfg.AllowForceDelete)
	c.CouponAssignmentService = service.NewCouponAssignmentService(c.CouponRepo, c.CouponAssignmentRepo, c.UserRepo)
	c.CouponUsageService = service.NewCouponUsageService(c.CouponRepo, c.CouponUsageRepo)
}
