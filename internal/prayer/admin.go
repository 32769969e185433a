package prayer

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vitanova-team/prayer-counter-backend/internal/admin"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
	"gorm.io/gorm"
)

// PrayerTypeRequestBody 定义了创建/更新祷告类型的请求体
type PrayerTypeRequestBody struct {
	Name                 string     `json:"name" binding:"required"`
	Description          string     `json:"description"`
	Kind                 PrayerKind `json:"kind" binding:"required"`
	IncrementValue       int64      `json:"incrementValue"`
	TimeIncrementMinutes int64      `json:"timeIncrementMinutes"`
	IsVisible            *bool      `json:"isVisible"`
	IsEnabled            *bool      `json:"isEnabled"`
	Icon                 string     `json:"icon"`
}

// validate 检查增量字段按Kind互斥的不变量
func (b *PrayerTypeRequestBody) validate() error {
	switch b.Kind {
	case KindCount:
		if b.IncrementValue <= 0 {
			return errors.New("count类型必须提供大于0的incrementValue")
		}
		b.TimeIncrementMinutes = 0
	case KindTime:
		if b.TimeIncrementMinutes <= 0 {
			return errors.New("time类型必须提供大于0的timeIncrementMinutes")
		}
		b.IncrementValue = 0
	default:
		return fmt.Errorf("无效的kind: %s", b.Kind)
	}
	return nil
}

// CreatePrayerType 创建一个新的祷告类型，并在同一事务中创建清零的计数器。
// 审计记录的actor是当前管理员。
func CreatePrayerType(c *gin.Context) {
	var body PrayerTypeRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	if err := body.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	typeID, err := NewTypeID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建失败"})
		return
	}
	counterID, err := NewTypeID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建失败"})
		return
	}

	adminID := c.GetString(admin.AdminIDKey)
	visible := body.IsVisible == nil || *body.IsVisible
	enabled := body.IsEnabled == nil || *body.IsEnabled

	var created PrayerType
	var createdCounter PrayerCounter
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		// display_order 追加到当前最大值之后
		var maxOrder int
		tx.Model(&PrayerType{}).Select("coalesce(max(display_order), 0)").Scan(&maxOrder)

		created = PrayerType{
			ID:                   typeID,
			Name:                 body.Name,
			Description:          body.Description,
			Kind:                 body.Kind,
			IncrementValue:       body.IncrementValue,
			TimeIncrementMinutes: body.TimeIncrementMinutes,
			IsVisible:            visible,
			IsEnabled:            enabled,
			DisplayOrder:         maxOrder + 1,
			Icon:                 body.Icon,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		// 计数器与类型同生同灭，创建时清零
		createdCounter = PrayerCounter{
			ID:           counterID,
			PrayerTypeID: typeID,
			LastUpdated:  time.Now(),
		}
		if err := tx.Create(&createdCounter).Error; err != nil {
			return err
		}

		action := PrayerAction{
			PrayerTypeID:   typeID,
			ActionType:     ActionAdminCreate,
			UserIdentifier: adminID,
			Note:           body.Name,
			CreatedAt:      time.Now(),
		}
		return tx.Create(&action).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建祷告类型失败"})
		return
	}

	// 事务提交后把清零的计数器写入展示缓存，避免公开读路径因缓存缺项整体退回SQL
	if defaultEngine != nil && defaultEngine.notifier != nil {
		defaultEngine.notifier.CounterUpdated(typeID, createdCounter)
	}

	c.JSON(http.StatusOK, created)
}

// UpdatePrayerType 更新类型定义，重新校验增量字段的互斥不变量
func UpdatePrayerType(c *gin.Context) {
	typeID := c.Param("id")

	var body PrayerTypeRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	if err := body.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminID := c.GetString(admin.AdminIDKey)

	var updated PrayerType
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", typeID).First(&updated).Error; err != nil {
			return err
		}

		updated.Name = body.Name
		updated.Description = body.Description
		updated.Kind = body.Kind
		updated.IncrementValue = body.IncrementValue
		updated.TimeIncrementMinutes = body.TimeIncrementMinutes
		if body.IsVisible != nil {
			updated.IsVisible = *body.IsVisible
		}
		if body.IsEnabled != nil {
			updated.IsEnabled = *body.IsEnabled
		}
		updated.Icon = body.Icon

		if err := tx.Save(&updated).Error; err != nil {
			return err
		}

		action := PrayerAction{
			PrayerTypeID:   typeID,
			ActionType:     ActionAdminEdit,
			UserIdentifier: adminID,
			Note:           "更新类型定义",
			CreatedAt:      time.Now(),
		}
		return tx.Create(&action).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "找不到该祷告类型"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新祷告类型失败"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeletePrayerType 删除类型并级联删除其计数器。
// 审计记录写在删除前，Note保留被删类型的名称。
func DeletePrayerType(c *gin.Context) {
	typeID := c.Param("id")
	adminID := c.GetString(admin.AdminIDKey)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var pt PrayerType
		if err := tx.Where("id = ?", typeID).First(&pt).Error; err != nil {
			return err
		}

		action := PrayerAction{
			PrayerTypeID:   typeID,
			ActionType:     ActionAdminDelete,
			UserIdentifier: adminID,
			Note:           pt.Name,
			CreatedAt:      time.Now(),
		}
		if err := tx.Create(&action).Error; err != nil {
			return err
		}

		if err := tx.Where("prayer_type_id = ?", typeID).Delete(&PrayerCounter{}).Error; err != nil {
			return err
		}
		return tx.Delete(&pt).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "找不到该祷告类型"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除祷告类型失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetAdminPrayers 返回全部类型及计数器（含不可见项）
func GetAdminPrayers(c *gin.Context) {
	prayers, err := GetAllPrayers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取祷告列表失败"})
		return
	}
	c.JSON(http.StatusOK, prayers)
}

// GetCounter 返回单个计数器的原始值
func GetCounter(c *gin.Context) {
	counter, err := GetCounterByTypeID(c.Param("prayerTypeId"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "找不到该计数器"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取计数器失败"})
		return
	}
	c.JSON(http.StatusOK, counter)
}

// CounterPatchBody 定义了覆盖计数器值的请求体
type CounterPatchBody struct {
	NewValue *int64 `json:"newValue" binding:"required"`
	Note     string `json:"note"`
}

// PatchCounter 把计数器中与类型Kind对应的总量覆盖为指定值
func PatchCounter(c *gin.Context) {
	var body CounterPatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	counter, err := defaultEngine.AdminSetValue(c.Request.Context(),
		c.Param("prayerTypeId"), *body.NewValue, c.GetString(admin.AdminIDKey), body.Note)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidValue):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrTypeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "找不到该计数器"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "修改计数器失败"})
		}
		return
	}
	c.JSON(http.StatusOK, counter)
}

// ResetCounter 清零单个计数器
func ResetCounter(c *gin.Context) {
	var body struct {
		Note string `json:"note"`
	}
	_ = c.ShouldBindJSON(&body) // 备注可选，解析失败视为空

	err := defaultEngine.AdminReset(c.Request.Context(),
		c.Param("prayerTypeId"), c.GetString(admin.AdminIDKey), body.Note)
	if err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "找不到该计数器"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清零计数器失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetAllCounters 逐个清零全部计数器，部分失败时如实上报数量
func ResetAllCounters(c *gin.Context) {
	result, err := defaultEngine.ResetAll(c.Request.Context(), c.GetString(admin.AdminIDKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "批量清零失败"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStats 返回管理端仪表盘的汇总统计
func GetStats(c *gin.Context) {
	stats, err := GetDashboardStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取统计数据失败"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetActionLog 返回分页的审计日志
func GetActionLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := GetActions(limit, offset, c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取审计日志失败"})
		return
	}
	c.JSON(http.StatusOK, page)
}
