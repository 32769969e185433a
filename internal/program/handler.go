package program

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetActiveProgram 返回公开页面页头使用的激活活动
func GetActiveProgram(c *gin.Context) {
	p, err := GetActive()
	if err != nil {
		if errors.Is(err, ErrNoActiveProgram) {
			c.JSON(http.StatusNotFound, gin.H{"error": ErrNoActiveProgram.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取活动信息失败"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// ProgramPatchBody 定义了更新活动的请求体
type ProgramPatchBody struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateProgram 更新一个活动的名称与描述（管理端）
func UpdateProgram(c *gin.Context) {
	var body ProgramPatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	p, err := Update(c.Param("id"), body.Name, body.Description)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "找不到该活动"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新活动失败"})
		return
	}
	c.JSON(http.StatusOK, p)
}
