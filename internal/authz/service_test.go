package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/courtline/internal/constants"

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
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	return svc
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:readonly_auditor":  true,
		"role:box_office":        true,
		"role:ticketing":         true,
		"role:affiliate_manager": true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	// 重复初始化不应报错
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
}

func TestBuiltinRoleMatrix(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	assign := map[uint]string{
		1: constants.RoleReadonlyAuditor,
		2: constants.RoleBoxOffice,
		3: constants.RoleTicketing,
		4: constants.RoleAffiliateManager,
	}
	for adminID, role := range assign {
		if err := svc.SetAdminRoles(adminID, []string{role}); err != nil {
			t.Fatalf("set admin %d roles failed: %v", adminID, err)
		}
	}

	cases := []struct {
		adminID uint
		obj     string
		act     string
		want    bool
	}{
		{1, "/api/v1/admin/ticket-sales", "GET", true},
		{1, "/api/v1/admin/ticket-sales/stats", "get", true},
		{1, "/api/v1/admin/ticket-sales", "POST", false},
		{2, "/api/v1/admin/ticket-sales", "POST", true},
		{2, "/api/v1/admin/tickets/9/validate", "POST", true},
		{2, "/api/v1/admin/affiliates/4/commission-rate", "PUT", false},
		{2, "/api/v1/admin/ticket-types/3/status", "PUT", false},
		{3, "/api/v1/admin/ticket-types/3/status", "PUT", true},
		{3, "/api/v1/admin/events/7/ticket-types", "POST", true},
		{3, "/api/v1/admin/ticket-sales/12/refund", "POST", true},
		{3, "/api/v1/admin/tickets/9/validate", "POST", true},
		{3, "/api/v1/admin/affiliate-payouts/process", "POST", false},
		{4, "/api/v1/admin/affiliate-applications/5/approve", "POST", true},
		{4, "/api/v1/admin/affiliates/4/commission-rate", "PUT", true},
		{4, "/api/v1/admin/affiliate-payouts/process", "POST", true},
		{4, "/api/v1/admin/reservations/expire", "POST", false},
		{4, "/api/v1/admin/affiliates", "GET", true},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceAdmin(tc.adminID, tc.obj, tc.act)
		if err != nil {
			t.Fatalf("enforce %d %s %s failed: %v", tc.adminID, tc.act, tc.obj, err)
		}
		if allow != tc.want {
			t.Fatalf("enforce %d %s %s want=%v got=%v", tc.adminID, tc.act, tc.obj, tc.want, allow)
		}
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)

	if err := svc.SetAdminRoles(2, []string{constants.RoleBoxOffice}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:box_office" {
		t.Fatalf("roles want [role:box_office], got=%v", roles)
	}

	if err := svc.SetAdminRoles(2, []string{constants.RoleAffiliateManager}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err = svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:affiliate_manager" {
		t.Fatalf("roles want [role:affiliate_manager], got=%v", roles)
	}

	allow, err := svc.EnforceAdmin(2, "/admin/ticket-sales", "POST")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}

	allow, err = svc.EnforceAdmin(2, "/admin/affiliate-payouts/process", "POST")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected new role permission granted")
	}

	policies, err := svc.GetAdminPolicies(2)
	if err != nil {
		t.Fatalf("get admin policies failed: %v", err)
	}
	if len(policies) == 0 {
		t.Fatalf("expected inherited policies for affiliate manager")
	}
}

func TestSyncAdminRole(t *testing.T) {
	svc := setupAuthzServiceTest(t)

	synced, err := svc.SyncAdminRole(5, constants.RoleTicketing)
	if err != nil {
		t.Fatalf("sync admin role failed: %v", err)
	}
	if !synced {
		t.Fatalf("expected first sync to bind role")
	}

	// 已有角色时不覆盖
	synced, err = svc.SyncAdminRole(5, constants.RoleBoxOffice)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if synced {
		t.Fatalf("expected existing binding to be kept")
	}
	roles, _ := svc.GetAdminRoles(5)
	if len(roles) != 1 || roles[0] != "role:ticketing" {
		t.Fatalf("roles want [role:ticketing], got=%v", roles)
	}

	synced, err = svc.SyncAdminRole(6, " ")
	if err != nil || synced {
		t.Fatalf("blank role should be ignored, synced=%v err=%v", synced, err)
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/ticket-sales/:id", want: "/admin/ticket-sales/:id"},
		{in: "/admin/ticket-sales/:id", want: "/admin/ticket-sales/:id"},
		{in: "admin/affiliates", want: "/admin/affiliates"},
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

func TestSetAdminRolesRejectsReservedRoleWithoutClearing(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.SetAdminRoles(3, []string{constants.RoleBoxOffice}); err != nil {
		t.Fatalf("set role failed: %v", err)
	}

	err := svc.SetAdminRoles(3, []string{constants.RoleTicketing, "__anchor__"})
	if err != ErrReservedRole {
		t.Fatalf("want ErrReservedRole, got %v", err)
	}
	roles, _ := svc.GetAdminRoles(3)
	if len(roles) != 1 || roles[0] != "role:box_office" {
		t.Fatalf("rejected update must keep old binding, got=%v", roles)
	}
}

func TestGetAdminPoliciesIncludesInheritedReadAccess(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.SetAdminRoles(8, []string{constants.RoleBoxOffice, constants.RoleBoxOffice}); err != nil {
		t.Fatalf("set role failed: %v", err)
	}
	policies, err := svc.GetAdminPolicies(8)
	if err != nil {
		t.Fatalf("get admin policies failed: %v", err)
	}
	var hasRead, hasSale bool
	for _, p := range policies {
		if p.Subject == "role:readonly_auditor" && p.Object == "/admin/*" && p.Action == "GET" {
			hasRead = true
		}
		if p.Subject == "role:box_office" && p.Object == "/admin/ticket-sales" && p.Action == "POST" {
			hasSale = true
		}
	}
	if !hasRead || !hasSale {
		t.Fatalf("expected direct and inherited policies, got=%v", policies)
	}

	if _, err := svc.GetAdminPolicies(0); err != ErrAdminRequired {
		t.Fatalf("want ErrAdminRequired, got %v", err)
	}
}
