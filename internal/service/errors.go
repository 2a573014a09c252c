package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCouponInvalid       = errors.New("coupon invalid")
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrCouponScopeMismatch = errors.New("coupon scope mismatch")
	ErrCouponInUse         = errors.New("coupon has usage records")
	ErrCouponStorage       = errors.New("coupon storage unavailable")
	ErrForceDeleteDisabled = errors.New("coupon force delete disabled")
	ErrQueueUnavailable    = errors.New("queue unavailable")
)

// ValidationError 参数校验失败
type ValidationError struct {
	Field  string
	Reason string
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrCouponInvalid.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrCouponInvalid.Error(), e.Field, e.Reason)
}

// Is 使 errors.Is(err, ErrCouponInvalid) 成立
func (e *ValidationError) Is(target error) bool {
	return target == ErrCouponInvalid
}

// UnknownUsersError 批量操作中存在不存在的用户
type UnknownUsersError struct {
	UserIDs []uint
}

func (e *UnknownUsersError) Error() string {
	parts := make([]string, 0, len(e.UserIDs))
	for _, id := range e.UserIDs {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return fmt.Sprintf("%s: %s", ErrUserNotFound.Error(), strings.Join(parts, ","))
}

// Is 使 errors.Is(err, ErrUserNotFound) 成立
func (e *UnknownUsersError) Is(target error) bool {
	return target == ErrUserNotFound
}

// StorageError 存储层故障（可重试）
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCouponStorage.Error(), e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrCouponStorage) 成立
func (e *StorageError) Is(target error) bool {
	return target == ErrCouponStorage
}

// wrapStorageError 将仓库返回的底层错误包装为 StorageError，业务错误原样返回
func wrapStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrCouponStorage),
		errors.Is(err, ErrCouponInvalid),
		errors.Is(err, ErrCouponNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrCouponScopeMismatch),
		errors.Is(err, ErrCouponInUse):
		return err
	}
	return &StorageError{Op: op, Err: err}
}
