package prayer

import (
	"fmt"
	"time"

	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
)

// --- Service-Level Data Transfer Objects (DTOs) ---

// PrayerWithCounterDTO 把一个祷告类型和它的计数器组合在一起，供列表类API使用
type PrayerWithCounterDTO struct {
	Type    PrayerType    `json:"type"`
	Counter PrayerCounter `json:"counter"`
}

// DashboardStatsDTO 是管理端仪表盘的汇总数据
type DashboardStatsDTO struct {
	TotalActions       int64           `json:"totalActions"`
	UniqueContributors int64           `json:"uniqueContributors"`
	PrayerTypesCount   int64           `json:"prayerTypesCount"`
	DailySeries        []DailyCountDTO `json:"dailySeries"`
	RecentActions      []PrayerAction  `json:"recentActions"`
}

// DailyCountDTO 是按天聚合的提交次数，供图表使用
type DailyCountDTO struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ActionPageDTO 是分页的审计日志
type ActionPageDTO struct {
	Actions    []PrayerAction `json:"actions"`
	TotalCount int64          `json:"totalCount"`
}

// --- Service Functions ---

// GetVisiblePrayers 返回公开页面可见的祷告类型及其计数器。
// 计数器优先从Redis缓存读取，缓存不可用或不完整时退回SQL权威数据。
func GetVisiblePrayers() ([]PrayerWithCounterDTO, error) {
	var types []PrayerType
	err := database.DB.
		Where("is_visible = ? AND is_enabled = ?", true, true).
		Order("display_order asc").Find(&types).Error
	if err != nil {
		return nil, fmt.Errorf("无法读取祷告类型: %w", err)
	}

	return attachCounters(types)
}

// GetAllPrayers 返回全部祷告类型及其计数器，供管理端使用（不过滤可见性）。
func GetAllPrayers() ([]PrayerWithCounterDTO, error) {
	var types []PrayerType
	if err := database.DB.Order("display_order asc").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("无法读取祷告类型: %w", err)
	}

	return attachCounters(types)
}

// attachCounters 为一组类型补全计数器，优先走缓存
func attachCounters(types []PrayerType) ([]PrayerWithCounterDTO, error) {
	typeIDs := make([]string, len(types))
	for i, t := range types {
		typeIDs[i] = t.ID
	}

	var byType map[string]PrayerCounter
	if database.IsRedisHealthy() {
		cached, err := cachedCounters(typeIDs)
		if err == nil {
			byType = cached
		}
	}
	if byType == nil {
		var counters []PrayerCounter
		if err := database.DB.Where("prayer_type_id IN ?", typeIDs).Find(&counters).Error; err != nil {
			return nil, fmt.Errorf("无法读取计数器: %w", err)
		}
		byType = make(map[string]PrayerCounter, len(counters))
		for _, c := range counters {
			byType[c.PrayerTypeID] = c
		}
	}

	result := make([]PrayerWithCounterDTO, 0, len(types))
	for _, t := range types {
		result = append(result, PrayerWithCounterDTO{
			Type:    t,
			Counter: byType[t.ID],
		})
	}
	return result, nil
}

// GetCounterByTypeID 返回单个计数器的SQL权威值
func GetCounterByTypeID(typeID string) (*PrayerCounter, error) {
	var counter PrayerCounter
	err := database.DB.Where("prayer_type_id = ?", typeID).First(&counter).Error
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

// GetDashboardStats 汇总管理端仪表盘所需的统计数据
func GetDashboardStats() (*DashboardStatsDTO, error) {
	stats := &DashboardStatsDTO{}

	// 1. 提交总数与独立贡献者数（跨所有类型去重）
	err := database.DB.Model(&PrayerAction{}).
		Where("action_type = ?", ActionIncrement).
		Count(&stats.TotalActions).Error
	if err != nil {
		return nil, fmt.Errorf("无法统计提交总数: %w", err)
	}

	err = database.DB.Model(&PrayerAction{}).
		Where("action_type = ?", ActionIncrement).
		Distinct("user_identifier").
		Count(&stats.UniqueContributors).Error
	if err != nil {
		return nil, fmt.Errorf("无法统计独立贡献者: %w", err)
	}

	if err := database.DB.Model(&PrayerType{}).Count(&stats.PrayerTypesCount).Error; err != nil {
		return nil, fmt.Errorf("无法统计类型数量: %w", err)
	}

	// 2. 最近30天的按天提交曲线
	since := time.Now().AddDate(0, 0, -30)
	rows, err := database.DB.Model(&PrayerAction{}).
		Select("date(created_at) as date, count(*) as count").
		Where("action_type = ? AND created_at > ?", ActionIncrement, since).
		Group("date(created_at)").
		Order("date asc").Rows()
	if err != nil {
		return nil, fmt.Errorf("无法统计按天提交数: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d DailyCountDTO
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, fmt.Errorf("无法解析按天统计: %w", err)
		}
		stats.DailySeries = append(stats.DailySeries, d)
	}

	// 3. 最近动作，用于"最近活动"面板
	err = database.DB.Model(&PrayerAction{}).
		Order("created_at desc").Limit(10).Find(&stats.RecentActions).Error
	if err != nil {
		return nil, fmt.Errorf("无法读取最近动作: %w", err)
	}

	return stats, nil
}

// GetActions 返回分页的审计日志。
// filter: "" 全部 / "increment" 仅用户提交 / "admin" 仅管理员动作
func GetActions(limit, offset int, filter string) (*ActionPageDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := database.DB.Model(&PrayerAction{})
	switch filter {
	case "increment":
		query = query.Where("action_type = ?", ActionIncrement)
	case "admin":
		query = query.Where("action_type <> ?", ActionIncrement)
	}

	page := &ActionPageDTO{}
	if err := query.Count(&page.TotalCount).Error; err != nil {
		return nil, fmt.Errorf("无法统计审计记录: %w", err)
	}
	err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&page.Actions).Error
	if err != nil {
		return nil, fmt.Errorf("无法读取审计记录: %w", err)
	}
	return page, nil
}
