package router

import (
	"cmp"
	"net/http"
	"slices"
	"strings"

	"github.com/courtline/internal/authz"

	"github.com/gin-gonic/gin"
)

const adminRoutePrefix = "/api/v1/admin/"

// PermissionEntry 可授权的后台接口，object 与 casbin 策略中的写法一致
type PermissionEntry struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// permissionCatalog 从已注册路由生成后台权限清单，登录接口不在其中
func permissionCatalog(routes gin.RoutesInfo) []PermissionEntry {
	entries := make([]PermissionEntry, 0, len(routes))
	for _, route := range routes {
		if route.Method == http.MethodOptions || route.Method == http.MethodHead {
			continue
		}
		if !strings.HasPrefix(route.Path, adminRoutePrefix) || route.Path == adminRoutePrefix+"login" {
			continue
		}
		object := authz.NormalizeObject(route.Path)
		entries = append(entries, PermissionEntry{
			Module:     permissionModule(object),
			Method:     route.Method,
			Object:     object,
			Permission: route.Method + ":" + object,
		})
	}
	slices.SortFunc(entries, func(a, b PermissionEntry) int {
		return cmp.Or(
			cmp.Compare(a.Module, b.Module),
			cmp.Compare(a.Object, b.Object),
			cmp.Compare(a.Method, b.Method),
		)
	})
	return slices.CompactFunc(entries, func(a, b PermissionEntry) bool {
		return a.Permission == b.Permission
	})
}

// permissionModule "/admin/ticket-sales/:id" -> "ticket-sales"
func permissionModule(object string) string {
	rest, _ := strings.CutPrefix(object, "/admin/")
	module, _, _ := strings.Cut(rest, "/")
	if module == "" {
		return "system"
	}
	return module
}
