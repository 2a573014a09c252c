package queue

import (
	"encoding/json"

	"github.com/storefront/coupon-engine/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCouponReconcile 优惠券计数对账任务
	TaskCouponReconcile = constants.TaskCouponReconcile
)

// CouponReconcilePayload 对账任务载荷，CouponID 为 0 表示全量对账
type CouponReconcilePayload struct {
	CouponID uint   `json:"coupon_id"`
	Source   string `json:"source,omitempty"`
}

// NewCouponReconcileTask 创建对账任务
func NewCouponReconcileTask(payload CouponReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCouponReconcile, body), nil
}

// ParseCouponReconcilePayload 解析对账任务载荷
func ParseCouponReconcilePayload(task *asynq.Task) (CouponReconcilePayload, error) {
	var payload CouponReconcilePayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
