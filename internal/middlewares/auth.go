package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/DomainHub/middleware/jwt"
)

// AuthMiddleware JWT 认证中间件
func AuthMiddleware(tm *jwt.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			// 解析 Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}

		if token == "" {
			c.JSON(
				http.StatusUnauthorized,
				gin.H{"error": "未提供认证 Token"},
			)
			c.Abort()
			return
		}

		claims, err := tm.ParseToken(token)
		if err != nil {
			c.JSON(
				http.StatusUnauthorized,
				gin.H{"error": "Token 无效或已过期"},
			)
			c.Abort()
			return
		}

		// 将 claims 存储在 context 中
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("is_admin", claims.IsAdmin)

		c.Next()
	}
}

// AdminMiddleware 要求已认证且带管理员标记，必须排在 AuthMiddleware 之后
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("is_admin") {
			c.JSON(
				http.StatusForbidden,
				gin.H{"error": "需要管理员权限"},
			)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID 从 context 取出认证后的用户 ID
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
