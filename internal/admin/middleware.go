package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vitanova-team/prayer-counter-backend/pkg/token"
)

const (
	// AdminIDKey 是Gin上下文中存放当前管理员ID的键
	AdminIDKey = "adminID"
	// AdminRoleKey 是Gin上下文中存放当前管理员角色的键
	AdminRoleKey = "adminRole"
)

// RequireAdmin 校验Authorization头中的Bearer会话令牌。
// 令牌无效、过期或账号已被停用时，请求以401终止。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "需要登录"})
			return
		}

		payload, err := token.ValidateSessionToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "登录已失效，请重新登录"})
			return
		}

		// 令牌有效期内账号可能被停用，每次请求都回表确认
		account, err := GetByID(payload.AdminID)
		if err != nil || !account.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "登录已失效，请重新登录"})
			return
		}

		c.Set(AdminIDKey, account.ID)
		c.Set(AdminRoleKey, account.Role)
		c.Next()
	}
}
