package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
)

// HealthCheck 返回数据库与Redis的连接状态。
// SQL不可用时服务无法工作，返回503；Redis不可用只是降级，仍返回200。
func HealthCheck(c *gin.Context) {
	dbOK := false
	if sqlDB, err := database.DB.DB(); err == nil {
		dbOK = sqlDB.Ping() == nil
	}
	redisOK := database.IsRedisHealthy()

	status := gin.H{
		"database": dbOK,
		"redis":    redisOK,
	}
	if !dbOK {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}
