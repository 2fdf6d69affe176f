package authz

import (
	"fmt"

	"github.com/courtline/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	boxOffice := []Policy{
		{Object: "/admin/ticket-sales", Action: "POST"},
		{Object: "/admin/tickets/:id/validate", Action: "POST"},
	}
	ticketing := append([]Policy{
		{Object: "/admin/events/:event_id/ticket-types", Action: "*"},
		{Object: "/admin/ticket-types/:id/status", Action: "PUT"},
		{Object: "/admin/ticket-types/:id/inventory", Action: "POST"},
		{Object: "/admin/reservations/:no/cancel", Action: "POST"},
		{Object: "/admin/reservations/expire", Action: "POST"},
		{Object: "/admin/ticket-sales/:id/refund", Action: "POST"},
	}, boxOffice...)

	return []RoleSeed{
		{
			Role: constants.RoleReadonlyAuditor,
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleBoxOffice,
			Inherits: []string{constants.RoleReadonlyAuditor},
			Policies: boxOffice,
		},
		{
			Role:     constants.RoleTicketing,
			Inherits: []string{constants.RoleReadonlyAuditor},
			Policies: ticketing,
		},
		{
			Role:     constants.RoleAffiliateManager,
			Inherits: []string{constants.RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/affiliate-applications/:id/approve", Action: "POST"},
				{Object: "/admin/affiliate-applications/:id/reject", Action: "POST"},
				{Object: "/admin/affiliates/:id/commission-rate", Action: "PUT"},
				{Object: "/admin/affiliates/:id/status", Action: "PUT"},
				{Object: "/admin/affiliates/:id/payout-account", Action: "PUT"},
				{Object: "/admin/affiliate-payouts/process", Action: "POST"},
				{Object: "/admin/affiliate-payouts/:id/execute", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色、继承关系与默认策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}
		if _, err := s.ensureRole(role); err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy(groupingType, role, parentRole); err != nil {
				return fmt.Errorf("inherit %s from %s: %w", role, parentRole, err)
			}
		}
		for _, p := range seed.Policies {
			act := NormalizeAction(p.Action)
			if act == "" {
				return fmt.Errorf("seed policy %s on %s has no action", role, p.Object)
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(p.Object), act); err != nil {
				return fmt.Errorf("seed policy %s %s %s: %w", role, act, p.Object, err)
			}
		}
	}
	return nil
}
