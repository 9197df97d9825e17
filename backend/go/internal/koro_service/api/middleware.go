package api

import (
	"net/http"
	"strings"

	"Koro/backend/go/internal/identity"

	"github.com/gin-gonic/gin"
)

// Gin 上下文中保存身份的键。
const (
	ctxUserID   = "userID"
	ctxProvider = "provider"
)

// AuthMiddleware 创建一个 Gin 中间件，用于验证 JWT。
// 浏览器无法为 WebSocket 设置请求头，因此也接受 token 查询参数。
func AuthMiddleware(tokens *identity.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			// 我们期望的格式是 "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "授权标头格式不正确"})
				return
			}
			tokenString = parts[1]
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权标头"})
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的 token"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxProvider, claims.Provider)
		c.Next()
	}
}
