package admin

import (
	handlershared "github.com/courtline/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

const adminIsSuperContextKey = "admin_is_super"

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

func currentAdminID(c *gin.Context) uint {
	value, ok := c.Get("admin_id")
	if !ok {
		return 0
	}
	id, _ := value.(uint)
	return id
}

func currentUsername(c *gin.Context) string {
	return c.GetString("username")
}

func isSuperAdmin(c *gin.Context) bool {
	return c.GetBool(adminIsSuperContextKey)
}
