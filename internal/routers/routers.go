package routers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/DomainHub/internal/handlers"
	"github.com/Gopher0727/DomainHub/internal/middlewares"
	"github.com/Gopher0727/DomainHub/middleware/jwt"
)

// SetupRoutes 设置所有路由
func SetupRoutes(r *gin.Engine, tm *jwt.TokenManager, inviteHandler *handlers.InviteHandler) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middlewares.TraceIDHeader}
	r.Use(cors.New(corsConfig))
	r.Use(middlewares.TraceMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"Status": "OK",
		})
	})

	RegisterInviteRoutes(r, tm, inviteHandler)
}

// RegisterInviteRoutes 注册邀请码相关路由，分公开、登录、管理三组
func RegisterInviteRoutes(r *gin.Engine, tm *jwt.TokenManager, inviteHandler *handlers.InviteHandler) {
	inviteGroup := r.Group("/api/v1/invites")
	{
		inviteGroup.GET("/required", inviteHandler.InviteRequired) // 根域名是否需要邀请码（注册页无需登录）
	}
	inviteGroup.Use(middlewares.AuthMiddleware(tm))
	{
		inviteGroup.GET("/code", inviteHandler.GetCode)           // 获取/生成自己的邀请码
		inviteGroup.GET("/codes", inviteHandler.ListCodes)        // 名下所有邀请码
		inviteGroup.POST("/validate", inviteHandler.ValidateCode) // 预检邀请码
		inviteGroup.POST("/redeem", inviteHandler.Redeem)         // 核销邀请码
		inviteGroup.GET("/stats", inviteHandler.Stats)            // 邀请统计
		inviteGroup.GET("/logs", inviteHandler.MyLogs)            // 邀请历史
	}

	adminGroup := r.Group("/api/v1/admin/invites")
	adminGroup.Use(middlewares.AuthMiddleware(tm), middlewares.AdminMiddleware())
	{
		adminGroup.GET("/logs", inviteHandler.SearchLogs)            // 按条件搜索日志
		adminGroup.POST("/codes/batch", inviteHandler.BatchGenerate) // 批量发码
		adminGroup.POST("/cleanup", inviteHandler.Cleanup)           // 手动清理过期码
	}
}
