package prayer

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// IncrementRequestBody 定义了公开提交接口的请求体JSON结构
type IncrementRequestBody struct {
	PrayerTypeID string `json:"prayerTypeId" binding:"required"`
	UserID       string `json:"userId" binding:"required"`
}

// clientIP 从转发头中尽力而为地提取请求来源，仅用于审计。
// 取X-Forwarded-For的第一项，其次X-Real-IP，都没有时退回占位地址。
func clientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}
	return "0.0.0.0"
}

// SubmitIncrement 处理一次公开的计数提交。
// 校验失败在触达任何存储之前被拒绝；限流结果映射为429；
// 类型不存在/停用统一映射为400的笼统提示，不泄露内部细节。
func SubmitIncrement(c *gin.Context) {
	var body IncrementRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "缺少必要的字段",
		})
		return
	}

	// 1. 快速路径：冷却窗口缓存命中时不开数据库事务直接拒绝。
	// 缓存不可用时放行，由引擎内的权威检查兜底。
	if wait := CooldownSecondsToWait(body.PrayerTypeID, body.UserID, defaultEngine.Cooldown); wait > 0 {
		c.JSON(http.StatusTooManyRequests, SubmitResult{
			Success:       false,
			Message:       "提交过于频繁，请稍后再试",
			SecondsToWait: wait,
		})
		return
	}

	// 2. 调用引擎执行权威提交
	result, err := defaultEngine.Submit(c.Request.Context(),
		body.PrayerTypeID, body.UserID, clientIP(c), c.GetHeader("User-Agent"))
	if err != nil {
		if errors.Is(err, ErrTypeNotFound) || errors.Is(err, ErrTypeDisabled) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "当前无法记录，请稍后再试",
			})
			return
		}
		// 短暂的存储层故障：引擎保证未发生部分写入，客户端可安全重试
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "记录失败，请重试",
		})
		return
	}

	if !result.Success {
		c.JSON(http.StatusTooManyRequests, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPrayers 返回公开页面的祷告类型列表及实时计数
func GetPrayers(c *gin.Context) {
	prayers, err := GetVisiblePrayers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取祷告列表失败"})
		return
	}
	c.JSON(http.StatusOK, prayers)
}
