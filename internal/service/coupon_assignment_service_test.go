package service

import (
	"errors"
	"testing"

	"github.com/storefront/coupon-engine/internal/constants"
)

func TestCouponAssignmentServiceAddRemove(t *testing.T) {
	env := setupCouponServiceTest(t)
	createCouponTestUsers(t, env.db, 7, 8, 9)
	input := baseCouponInput("MEMBERS")
	input.Scope = constants.CouponScopeSpecificUsers
	coupon := createTestCoupon(t, env, input)

	ids, err := env.assignmentSvc.Add(coupon.ID, []uint{8, 7, 8})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != 7 || ids[1] != 8 {
		t.Fatalf("unexpected set after add: %v", ids)
	}

	// 重复添加为幂等操作
	ids, err = env.assignmentSvc.Add(coupon.ID, []uint{7})
	if err != nil || len(ids) != 2 {
		t.Fatalf("re-add should be no-op, got %v err=%v", ids, err)
	}

	ids, err = env.assignmentSvc.Remove(coupon.ID, []uint{8, 9})
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("unexpected set after remove: %v", ids)
	}

	listed, err := env.assignmentSvc.List(coupon.ID)
	if err != nil || len(listed) != 1 || listed[0] != 7 {
		t.Fatalf("list mismatch: %v err=%v", listed, err)
	}
}

func TestCouponAssignmentServiceBatchAllOrNothing(t *testing.T) {
	env := setupCouponServiceTest(t)
	createCouponTestUsers(t, env.db, 7, 8)
	input := baseCouponInput("STRICT")
	input.Scope = constants.CouponScopeSpecificUsers
	coupon := createTestCoupon(t, env, input)

	_, err := env.assignmentSvc.Add(coupon.ID, []uint{7, 404, 8, 405})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound got %v", err)
	}
	var unknown *UnknownUsersError
	if !errors.As(err, &unknown) || len(unknown.UserIDs) != 2 || unknown.UserIDs[0] != 404 || unknown.UserIDs[1] != 405 {
		t.Fatalf("unknown ids mismatch: %+v", unknown)
	}

	ids, err := env.assignmentRepo.ListUserIDs(coupon.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("failed batch must not write, got %v", ids)
	}
}

func TestCouponAssignmentServiceRejects(t *testing.T) {
	env := setupCouponServiceTest(t)
	createCouponTestUsers(t, env.db, 7)
	general := createTestCoupon(t, env, baseCouponInput("OPEN"))

	if _, err := env.assignmentSvc.Add(general.ID, []uint{7}); !errors.Is(err, ErrCouponScopeMismatch) {
		t.Fatalf("add on GENERAL want ErrCouponScopeMismatch got %v", err)
	}
	if _, err := env.assignmentSvc.Remove(general.ID, []uint{7}); !errors.Is(err, ErrCouponScopeMismatch) {
		t.Fatalf("remove on GENERAL want ErrCouponScopeMismatch got %v", err)
	}
	if _, err := env.assignmentSvc.List(general.ID); !errors.Is(err, ErrCouponScopeMismatch) {
		t.Fatalf("list on GENERAL want ErrCouponScopeMismatch got %v", err)
	}
	if _, err := env.assignmentSvc.Add(general.ID, nil); !errors.Is(err, ErrCouponInvalid) {
		t.Fatalf("empty batch want ErrCouponInvalid got %v", err)
	}
	if _, err := env.assignmentSvc.Add(4242, []uint{7}); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("missing coupon want ErrCouponNotFound got %v", err)
	}
}
