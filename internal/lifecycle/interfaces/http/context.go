package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// tenantID 租户标识，由网关注入请求头
func tenantID(c *gin.Context) string {
	return c.GetHeader("X-Tenant-ID")
}

// actorID 操作者标识，由认证中间件注入请求头
func actorID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

func intQuery(c *gin.Context, name string, def int) int {
	value, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return value
}
