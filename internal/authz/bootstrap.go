package authz

import "fmt"

// 预置角色名称
const (
	RoleCouponViewer   = "coupon_viewer"
	RoleCouponOperator = "coupon_operator"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 优惠券管理端预置角色
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleCouponViewer,
			Policies: []Policy{
				{Object: "/admin/coupons", Action: "GET"},
				{Object: "/admin/coupons/:id", Action: "GET"},
				{Object: "/admin/coupons/:id/assignments", Action: "GET"},
				{Object: "/admin/coupons/:id/usages", Action: "GET"},
			},
		},
		{
			Role:     RoleCouponOperator,
			Inherits: []string{RoleCouponViewer},
			Policies: []Policy{
				{Object: "/admin/coupons", Action: "POST"},
				{Object: "/admin/coupons/:id", Action: "PATCH"},
				{Object: "/admin/coupons/:id", Action: "DELETE"},
				{Object: "/admin/coupons/:id/toggle", Action: "POST"},
				{Object: "/admin/coupons/:id/assignments", Action: "*"},
				{Object: "/admin/coupons/:id/reconcile", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
