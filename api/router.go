package api

import (
	"github.com/gin-gonic/gin"
	"github.com/vitanova-team/prayer-counter-backend/internal/admin"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/health"
	"github.com/vitanova-team/prayer-counter-backend/internal/prayer"
	"github.com/vitanova-team/prayer-counter-backend/internal/program"
	"github.com/vitanova-team/prayer-counter-backend/internal/realtime"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		// 公开路由：无需任何认证
		api.GET("/health", health.HealthCheck)
		api.GET("/prayers", prayer.GetPrayers)
		api.GET("/prayers/stream", realtime.StreamCounters)
		api.POST("/prayer/increment", prayer.SubmitIncrement)
		api.GET("/program", program.GetActiveProgram)

		// 管理端路由：除登录外都要求会话令牌
		adminRoutes := api.Group("/admin")
		{
			adminRoutes.POST("/login", admin.Login)

			authed := adminRoutes.Group("", admin.RequireAdmin())
			{
				authed.GET("/me", admin.Me)

				authed.GET("/prayers", prayer.GetAdminPrayers)
				authed.POST("/prayers", prayer.CreatePrayerType)
				authed.PATCH("/prayers/:id", prayer.UpdatePrayerType)
				authed.DELETE("/prayers/:id", prayer.DeletePrayerType)

				authed.GET("/counters/:prayerTypeId", prayer.GetCounter)
				authed.PATCH("/counters/:prayerTypeId", prayer.PatchCounter)
				authed.POST("/counters/:prayerTypeId/reset", prayer.ResetCounter)
				authed.POST("/reset-all-counters", prayer.ResetAllCounters)

				authed.GET("/stats", prayer.GetStats)
				authed.GET("/actions", prayer.GetActionLog)

				authed.PATCH("/programs/:id", program.UpdateProgram)
			}
		}
	}
}
