package prayer

import (
	"time"
)

// PrayerKind 定义了祷告类型的计数方式
type PrayerKind string

const (
	// KindCount 表示按次数累计的祷告类型
	KindCount PrayerKind = "count"
	// KindTime 表示按分钟数累计的祷告类型
	KindTime PrayerKind = "time"
)

// ActionType 定义了审计记录的种类
type ActionType string

const (
	// ActionIncrement 是一次公开提交产生的计数动作
	ActionIncrement ActionType = "increment"
	// ActionAdminEdit 是管理员对计数器或类型定义的修改
	ActionAdminEdit ActionType = "admin_edit"
	// ActionAdminReset 是管理员对计数器的清零
	ActionAdminReset ActionType = "admin_reset"
	// ActionAdminCreate 是管理员创建祷告类型
	ActionAdminCreate ActionType = "admin_create"
	// ActionAdminDelete 是管理员删除祷告类型
	ActionAdminDelete ActionType = "admin_delete"
)

// PrayerType 定义了一种可计数的祷告类型及其展示属性。
// 增量字段按Kind互斥：count类型使用IncrementValue，time类型使用TimeIncrementMinutes。
type PrayerType struct {
	// ID 是类型的主键，UUID字符串
	ID string `gorm:"primarykey;type:varchar(36)" json:"id"`

	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	Kind        PrayerKind `gorm:"type:varchar(8);not null;default:count" json:"kind"`

	// IncrementValue 是count类型每次提交累加的次数
	IncrementValue int64 `json:"incrementValue"`
	// TimeIncrementMinutes 是time类型每次提交累加的分钟数
	TimeIncrementMinutes int64 `json:"timeIncrementMinutes"`

	// IsVisible 控制公开页面是否展示；IsEnabled 控制是否接受提交。
	// 不设列默认值：GORM在插入时会省略有默认值的零值字段，
	// false会被悄悄写成true。默认值由创建路径在代码里给出。
	IsVisible    bool   `gorm:"not null" json:"isVisible"`
	IsEnabled    bool   `gorm:"not null" json:"isEnabled"`
	DisplayOrder int    `gorm:"not null;default:0" json:"displayOrder"`
	Icon         string `json:"icon"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PrayerCounter 是一个祷告类型的聚合计数，与PrayerType严格1:1。
// 除管理员编辑/清零外，两个总量字段单调不减。
type PrayerCounter struct {
	ID string `gorm:"primarykey;type:varchar(36)" json:"id"`

	// PrayerTypeID 上的唯一索引保证每个类型至多一行计数
	PrayerTypeID string `gorm:"type:varchar(36);not null;uniqueIndex" json:"prayerTypeId"`

	TotalCount         int64 `gorm:"not null;default:0" json:"totalCount"`
	TotalTimeMinutes   int64 `gorm:"not null;default:0" json:"totalTimeMinutes"`
	UniqueContributors int64 `gorm:"not null;default:0" json:"uniqueContributors"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// PrayerAction 是一条只追加的审计记录，同时用作冷却窗口的查询依据。
// 它永远不会被修改或删除。
type PrayerAction struct {
	ID uint `gorm:"primarykey" json:"id"`

	PrayerTypeID string     `gorm:"type:varchar(36);not null;index:idx_actions_cooldown,priority:1" json:"prayerTypeId"`
	ActionType   ActionType `gorm:"type:varchar(16);not null;default:increment" json:"actionType"`

	// IncrementAmount 记录本次动作实际应用的增量；管理员编辑记录的是差值，可以为负
	IncrementAmount int64 `gorm:"not null;default:0" json:"incrementAmount"`

	// UserIdentifier 对用户提交是匿名身份，对管理员动作是管理员ID
	UserIdentifier string `gorm:"type:varchar(64);not null;index:idx_actions_cooldown,priority:2" json:"userIdentifier"`

	// IPAddress/UserAgent 仅用于审计，绝不参与限流决策
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"-"`

	// Note 是管理员动作附带的备注
	Note string `json:"note,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_actions_cooldown,priority:3" json:"createdAt"`
}

// AmountFor 返回该类型单次提交应累加的增量
func (pt *PrayerType) AmountFor() int64 {
	if pt.Kind == KindTime {
		return pt.TimeIncrementMinutes
	}
	return pt.IncrementValue
}

// TotalFor 按类型的Kind返回计数器中对应的总量字段
func (c *PrayerCounter) TotalFor(kind PrayerKind) int64 {
	if kind == KindTime {
		return c.TotalTimeMinutes
	}
	return c.TotalCount
}
