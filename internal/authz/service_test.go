package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceAdminWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("auditor", "/admin/coupons/:id/usages", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetAdminRoles(1, []string{"auditor"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(1, "/api/v1/admin/coupons/42/usages", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceAdmin(1, "/api/v1/admin/coupons/42", "DELETE")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if err := svc.SetAdminRoles(2, []string{RoleCouponOperator}); err != nil {
		t.Fatalf("set operator role failed: %v", err)
	}
	if err := svc.SetAdminRoles(2, []string{RoleCouponViewer}); err != nil {
		t.Fatalf("set viewer role failed: %v", err)
	}

	roles, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:coupon_viewer" {
		t.Fatalf("roles want [role:coupon_viewer], got=%v", roles)
	}

	allow, err := svc.EnforceAdmin(2, "/admin/coupons", "POST")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected operator permission removed")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/coupons/:id", want: "/admin/coupons/:id"},
		{in: "/admin/coupons/:id", want: "/admin/coupons/:id"},
		{in: "admin/coupons", want: "/admin/coupons"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// 重复初始化应幂等
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	if len(roles) != 2 || roles[0] != "role:coupon_operator" || roles[1] != "role:coupon_viewer" {
		t.Fatalf("unexpected builtin roles: %v", roles)
	}

	if err := svc.GrantAdminRole(3, RoleCouponViewer); err != nil {
		t.Fatalf("grant viewer failed: %v", err)
	}
	if err := svc.GrantAdminRole(4, RoleCouponOperator); err != nil {
		t.Fatalf("grant operator failed: %v", err)
	}

	cases := []struct {
		adminID uint
		obj     string
		act     string
		want    bool
	}{
		{adminID: 3, obj: "/api/v1/admin/coupons", act: "GET", want: true},
		{adminID: 3, obj: "/api/v1/admin/coupons/7/usages", act: "GET", want: true},
		{adminID: 3, obj: "/api/v1/admin/coupons/7/toggle", act: "POST", want: false},
		{adminID: 4, obj: "/api/v1/admin/coupons/7", act: "GET", want: true},
		{adminID: 4, obj: "/api/v1/admin/coupons/7/assignments", act: "DELETE", want: true},
		{adminID: 4, obj: "/api/v1/admin/coupons/7/reconcile", act: "POST", want: true},
		{adminID: 5, obj: "/api/v1/admin/coupons", act: "GET", want: false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceAdmin(tc.adminID, tc.obj, tc.act)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.act, tc.obj, err)
		}
		if allow != tc.want {
			t.Fatalf("admin %d %s %s want %v got %v", tc.adminID, tc.act, tc.obj, tc.want, allow)
		}
	}
}
