package worker

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/coupon-engine/internal/config"
	"github.com/storefront/coupon-engine/internal/logger"
	"github.com/storefront/coupon-engine/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务
type Service struct {
	name              string
	server            *asynq.Server
	mux               *asynq.ServeMux
	consumer          *Consumer
	reconcileInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, couponCfg config.CouponConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:              "worker",
		server:            server,
		mux:               mux,
		consumer:          consumer,
		reconcileInterval: time.Duration(couponCfg.ReconcileIntervalSeconds) * time.Second,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.reconcileInterval > 0 && s.consumer != nil && s.consumer.Container != nil && s.consumer.CouponUsageService != nil {
		go s.runReconcileLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runReconcileLoop 定期全量对账，修复计数落后于账本的优惠券
func (s *Service) runReconcileLoop(ctx context.Context) {
	runOnce := func() {
		report, err := s.consumer.CouponUsageService.ReconcileAll(ctx, s.consumer.reconcileConcurrency())
		if err != nil {
			logger.Warnw("worker_coupon_reconcile_sweep_failed", "error", err)
			return
		}
		if report.Repaired > 0 || report.Failed > 0 {
			logger.Infow("worker_coupon_reconcile_sweep_done",
				"checked", report.Checked,
				"repaired", report.Repaired,
				"failed", report.Failed,
			)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.reconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
