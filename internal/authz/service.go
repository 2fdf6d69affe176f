package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	ruleTable    = "casbin_rule"
	groupingType = "g"
	routePrefix  = "/api/v1"
	rolePrefix   = "role:"
	// roleAnchor 每个角色都挂在锚点下，用于枚举角色
	roleAnchor = "role:__anchor__"
)

// 管理端 RBAC 模型：角色可继承，资源按路由模板匹配，动作 * 表示任意方法
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	// ErrUnavailable 授权服务未初始化
	ErrUnavailable = errors.New("authz service unavailable")
	// ErrAdminRequired 缺少管理员 ID
	ErrAdminRequired = errors.New("admin id is required")
	// ErrRoleRequired 角色名为空
	ErrRoleRequired = errors.New("role is required")
	// ErrReservedRole 保留角色不可分配
	ErrReservedRole = errors.New("reserved role is not allowed")
)

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service 管理端授权服务，策略持久化在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 基于 gorm 连接创建授权服务并加载已有策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", ruleTable)
	if err != nil {
		return nil, fmt.Errorf("authz adapter: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz load policy: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// EnforceAdmin 判断管理员能否以 act 访问路由 obj
func (s *Service) EnforceAdmin(adminID uint, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(SubjectForAdmin(adminID), NormalizeObject(obj), NormalizeAction(act))
}

// ensureRole 登记角色，返回是否新建
func (s *Service) ensureRole(role string) (bool, error) {
	added, err := s.enforcer.AddNamedGroupingPolicy(groupingType, role, roleAnchor)
	if err != nil {
		return false, fmt.Errorf("register role %s: %w", role, err)
	}
	return added, nil
}

// ListRoles 列出全部已登记角色
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy(groupingType, 1, roleAnchor)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	roles := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) > 0 {
			roles = append(roles, rule[0])
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// GetRolePolicies 查询角色直接持有的策略
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	name, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, name)
	if err != nil {
		return nil, fmt.Errorf("role policies: %w", err)
	}
	return toPolicies(rules), nil
}

// SyncAdminRole 管理员尚无角色绑定时写入账号上的初始角色，返回是否写入
func (s *Service) SyncAdminRole(adminID uint, role string) (bool, error) {
	if strings.TrimSpace(role) == "" {
		return false, nil
	}
	current, err := s.GetAdminRoles(adminID)
	if err != nil || len(current) > 0 {
		return false, err
	}
	if err := s.SetAdminRoles(adminID, []string{role}); err != nil {
		return false, err
	}
	return true, nil
}

// SetAdminRoles 以 roles 整体替换管理员的角色绑定
func (s *Service) SetAdminRoles(adminID uint, roles []string) error {
	if adminID == 0 {
		return ErrAdminRequired
	}
	if err := s.ready(); err != nil {
		return err
	}
	names := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		name, err := NormalizeRole(role)
		if err != nil {
			return err
		}
		if name == roleAnchor {
			return ErrReservedRole
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	subject := SubjectForAdmin(adminID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy(groupingType, 0, subject); err != nil {
		return fmt.Errorf("clear roles of %s: %w", subject, err)
	}
	for _, name := range names {
		if _, err := s.ensureRole(name); err != nil {
			return err
		}
		if _, err := s.enforcer.AddNamedGroupingPolicy(groupingType, subject, name); err != nil {
			return fmt.Errorf("bind %s to %s: %w", name, subject, err)
		}
	}
	return nil
}

// GetAdminRoles 查询管理员直接绑定的角色
func (s *Service) GetAdminRoles(adminID uint) ([]string, error) {
	if adminID == 0 {
		return nil, ErrAdminRequired
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	bound, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("admin roles: %w", err)
	}
	roles := make([]string, 0, len(bound))
	for _, role := range bound {
		if strings.HasPrefix(role, rolePrefix) && role != roleAnchor {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// GetAdminPolicies 查询管理员最终生效的策略，包含继承角色的策略
func (s *Service) GetAdminPolicies(adminID uint) ([]Policy, error) {
	if adminID == 0 {
		return nil, ErrAdminRequired
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetImplicitPermissionsForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("admin policies: %w", err)
	}
	policies := toPolicies(rules)
	sort.Slice(policies, func(i, j int) bool {
		a, b := policies[i], policies[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Action < b.Action
	})
	return dedupePolicies(policies), nil
}

func toPolicies(rules [][]string) []Policy {
	out := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		out = append(out, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Object:  NormalizeObject(rule[1]),
			Action:  NormalizeAction(rule[2]),
		})
	}
	return out
}

// dedupePolicies 去除相邻重复项，入参需已排序
func dedupePolicies(sorted []Policy) []Policy {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, p := range sorted[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// SubjectForAdmin 管理员在策略中的主体名
func SubjectForAdmin(adminID uint) string {
	return fmt.Sprintf("admin:%d", adminID)
}

// NormalizeRole 角色名去空白、空格转下划线并补全 role: 前缀
func NormalizeRole(role string) (string, error) {
	name := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	name = strings.TrimPrefix(name, rolePrefix)
	if name == "" {
		return "", ErrRoleRequired
	}
	return rolePrefix + name, nil
}

// NormalizeObject 资源统一为去掉 /api/v1 前缀的绝对路径
func NormalizeObject(object string) string {
	path := strings.TrimSpace(object)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == routePrefix {
		return "/"
	}
	if rest, ok := strings.CutPrefix(path, routePrefix+"/"); ok {
		return "/" + rest
	}
	return path
}

// NormalizeAction 动作统一为大写 HTTP 方法
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
