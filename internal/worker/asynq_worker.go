package worker

import (
	"context"
	"errors"

	"github.com/storefront/coupon-engine/internal/logger"
	"github.com/storefront/coupon-engine/internal/provider"
	"github.com/storefront/coupon-engine/internal/queue"
	"github.com/storefront/coupon-engine/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCouponReconcile, c.handleCouponReconcile)
}

func (c *Consumer) handleCouponReconcile(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_coupon_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	if c.CouponUsageService == nil {
		logger.Warnw("worker_coupon_reconcile_skip_service_nil")
		return nil
	}
	payload, err := queue.ParseCouponReconcilePayload(task)
	if err != nil {
		logger.Warnw("worker_coupon_reconcile_unmarshal_failed", "error", err)
		return err
	}

	if payload.CouponID == 0 {
		report, err := c.CouponUsageService.ReconcileAll(ctx, c.reconcileConcurrency())
		if err != nil {
			logger.Warnw("worker_coupon_reconcile_all_failed", "source", payload.Source, "error", err)
			return err
		}
		logger.Infow("worker_coupon_reconcile_all_done",
			"source", payload.Source,
			"checked", report.Checked,
			"repaired", report.Repaired,
			"failed", report.Failed,
		)
		return nil
	}

	result, err := c.CouponUsageService.Reconcile(payload.CouponID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCouponNotFound):
			logger.Debugw("worker_coupon_reconcile_skip_not_found", "coupon_id", payload.CouponID)
			return nil
		default:
			logger.Warnw("worker_coupon_reconcile_failed", "coupon_id", payload.CouponID, "error", err)
			return err
		}
	}
	logger.Debugw("worker_coupon_reconcile_done",
		"coupon_id", result.CouponID,
		"current_uses", result.CurrentUses,
		"ledger_count", result.LedgerCount,
		"repaired", result.Repaired,
	)
	return nil
}

func (c *Consumer) reconcileConcurrency() int {
	if c == nil || c.Container == nil || c.Config == nil {
		return 0
	}
	return c.Config.Coupon.ReconcileConcurrency
}
