package prayer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 引擎层的哨兵错误，由网关翻译为对外响应
var (
	// ErrTypeNotFound 表示引用的祷告类型不存在
	ErrTypeNotFound = errors.New("祷告类型不存在")
	// ErrTypeDisabled 表示类型存在但已停止接受提交，区别于限流拒绝
	ErrTypeDisabled = errors.New("祷告类型已停用")
	// ErrInvalidValue 表示管理员提交的数值非法
	ErrInvalidValue = errors.New("数值必须大于等于0")
)

// Notifier 在引擎的事务成功提交后接收通知。
// 实现方负责刷新缓存、发布实时事件等副作用；这些副作用永远不影响引擎的结果。
type Notifier interface {
	// CounterUpdated 在计数器发生任何变化（提交、编辑、清零）后被调用
	CounterUpdated(typeID string, counter PrayerCounter)
	// SubmissionAccepted 在一次用户提交成功后被调用，用于预热冷却窗口缓存
	SubmissionAccepted(typeID, identity string, at time.Time)
}

// SubmitResult 是一次提交的结构化结果。
// Success为false且SecondsToWait大于0时表示被冷却窗口拒绝。
type SubmitResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	NewTotal      int64  `json:"newTotal,omitempty"`
	SecondsToWait int    `json:"secondsToWait,omitempty"`
}

// ResetAllResult 汇报批量清零的结果。批量操作整体不是原子的，
// 部分失败必须如实上报，不允许伪装成全部成功。
type ResetAllResult struct {
	ResetCount  int `json:"resetCount"`
	FailedCount int `json:"failedCount"`
}

// Engine 是计数子系统的权威执行者。
// 每一次状态变更（冷却检查、计数累加、审计写入）都在同一个数据库事务内完成，
// 对同一计数器的并发提交由计数器行上的行锁串行化。
type Engine struct {
	db       *gorm.DB
	notifier Notifier

	// Cooldown 是同一身份对同一类型两次成功提交之间的最小间隔
	Cooldown time.Duration
}

// NewEngine 创建一个计数引擎。notifier可以为nil（例如测试中）。
func NewEngine(db *gorm.DB, notifier Notifier, cooldown time.Duration) *Engine {
	return &Engine{db: db, notifier: notifier, Cooldown: cooldown}
}

// Submit 处理一次用户提交：校验类型、执行冷却检查、原子地累加计数并写入审计记录。
// 限流拒绝通过SubmitResult表达而不是error——它是预期内的高频事件。
func (e *Engine) Submit(ctx context.Context, typeID, identity, ipAddress, userAgent string) (*SubmitResult, error) {
	now := time.Now()
	var result SubmitResult
	var applied PrayerCounter

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 锁定计数器行。这是整条提交路径上唯一的竞争资源，
		// 锁住它即串行化了同一类型上的所有冷却检查和累加。
		var counter PrayerCounter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prayer_type_id = ?", typeID).First(&counter).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTypeNotFound
			}
			return fmt.Errorf("无法锁定计数器: %w", err)
		}

		var pt PrayerType
		if err := tx.Where("id = ?", typeID).First(&pt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTypeNotFound
			}
			return fmt.Errorf("无法读取祷告类型: %w", err)
		}
		// 管理端触发的提交可以绕过可见性，但永远不能绕过启用开关
		if !pt.IsEnabled {
			return ErrTypeDisabled
		}

		// 2. 查找该身份对该类型最近一次成功提交，计算冷却剩余时间
		var last PrayerAction
		err = tx.Where("prayer_type_id = ? AND user_identifier = ? AND action_type = ?",
			typeID, identity, ActionIncrement).
			Order("created_at desc").First(&last).Error
		firstEver := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !firstEver {
			return fmt.Errorf("无法查询提交历史: %w", err)
		}

		if !firstEver {
			elapsed := now.Sub(last.CreatedAt)
			if elapsed < e.Cooldown {
				wait := int(math.Ceil((e.Cooldown - elapsed).Seconds()))
				result = SubmitResult{
					Success:       false,
					Message:       fmt.Sprintf("请等待%d秒后再次提交", wait),
					SecondsToWait: wait,
				}
				// 限流拒绝不写入任何状态，直接提交空事务
				return nil
			}
		}

		// 3. 应用增量并维护独立贡献者计数
		amount := pt.AmountFor()
		if pt.Kind == KindTime {
			counter.TotalTimeMinutes += amount
		} else {
			counter.TotalCount += amount
		}
		if firstEver {
			counter.UniqueContributors++
		}
		counter.LastUpdated = now

		if err := tx.Save(&counter).Error; err != nil {
			return fmt.Errorf("无法更新计数器: %w", err)
		}

		// 4. 写入审计记录
		action := PrayerAction{
			PrayerTypeID:    typeID,
			ActionType:      ActionIncrement,
			IncrementAmount: amount,
			UserIdentifier:  identity,
			IPAddress:       ipAddress,
			UserAgent:       userAgent,
			CreatedAt:       now,
		}
		if err := tx.Create(&action).Error; err != nil {
			return fmt.Errorf("无法写入审计记录: %w", err)
		}

		result = SubmitResult{
			Success:  true,
			Message:  "已记录",
			NewTotal: counter.TotalFor(pt.Kind),
		}
		applied = counter
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 5. 事务提交成功后才发出通知。副作用是尽力而为的，失败不回传给调用者
	if result.Success && e.notifier != nil {
		e.notifier.CounterUpdated(typeID, applied)
		e.notifier.SubmissionAccepted(typeID, identity, now)
	}
	return &result, nil
}

// AdminSetValue 直接把计数器中与类型Kind对应的总量覆盖为newValue。
// 不触碰UniqueContributors，不做冷却检查；审计记录的增量是覆盖前后的差值。
func (e *Engine) AdminSetValue(ctx context.Context, typeID string, newValue int64, adminID, note string) (*PrayerCounter, error) {
	if newValue < 0 {
		return nil, ErrInvalidValue
	}

	var updated PrayerCounter
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counter PrayerCounter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prayer_type_id = ?", typeID).First(&counter).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTypeNotFound
			}
			return fmt.Errorf("无法锁定计数器: %w", err)
		}

		var pt PrayerType
		if err := tx.Where("id = ?", typeID).First(&pt).Error; err != nil {
			return ErrTypeNotFound
		}

		var delta int64
		if pt.Kind == KindTime {
			delta = newValue - counter.TotalTimeMinutes
			counter.TotalTimeMinutes = newValue
		} else {
			delta = newValue - counter.TotalCount
			counter.TotalCount = newValue
		}
		counter.LastUpdated = time.Now()

		if err := tx.Save(&counter).Error; err != nil {
			return fmt.Errorf("无法更新计数器: %w", err)
		}

		action := PrayerAction{
			PrayerTypeID:    typeID,
			ActionType:      ActionAdminEdit,
			IncrementAmount: delta,
			UserIdentifier:  adminID,
			Note:            note,
			CreatedAt:       counter.LastUpdated,
		}
		if err := tx.Create(&action).Error; err != nil {
			return fmt.Errorf("无法写入审计记录: %w", err)
		}

		updated = counter
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e.notifier != nil {
		e.notifier.CounterUpdated(typeID, updated)
	}
	return &updated, nil
}

// AdminReset 把一个计数器的三个字段全部清零并写入审计记录。
// 幂等：对已经为零的计数器执行仍然成功，并且仍然留痕。
func (e *Engine) AdminReset(ctx context.Context, typeID, adminID, note string) error {
	var zeroed PrayerCounter
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counter PrayerCounter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prayer_type_id = ?", typeID).First(&counter).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTypeNotFound
			}
			return fmt.Errorf("无法锁定计数器: %w", err)
		}

		var pt PrayerType
		if err := tx.Where("id = ?", typeID).First(&pt).Error; err != nil {
			return ErrTypeNotFound
		}

		// 审计增量记录与Kind对应的那个总量的差值
		delta := -counter.TotalFor(pt.Kind)
		counter.TotalCount = 0
		counter.TotalTimeMinutes = 0
		counter.UniqueContributors = 0
		counter.LastUpdated = time.Now()

		if err := tx.Save(&counter).Error; err != nil {
			return fmt.Errorf("无法更新计数器: %w", err)
		}

		action := PrayerAction{
			PrayerTypeID:    typeID,
			ActionType:      ActionAdminReset,
			IncrementAmount: delta,
			UserIdentifier:  adminID,
			Note:            note,
			CreatedAt:       counter.LastUpdated,
		}
		if err := tx.Create(&action).Error; err != nil {
			return fmt.Errorf("无法写入审计记录: %w", err)
		}

		zeroed = counter
		return nil
	})
	if err != nil {
		return err
	}
	if e.notifier != nil {
		e.notifier.CounterUpdated(typeID, zeroed)
	}
	return nil
}

// ResetAll 逐个清零所有计数器。每次清零各自是原子的，但整体不是：
// 中途失败会留下部分已清零、部分未清零的状态，结果中如实汇报失败数量。
func (e *Engine) ResetAll(ctx context.Context, adminID string) (*ResetAllResult, error) {
	var typeIDs []string
	if err := e.db.WithContext(ctx).Model(&PrayerType{}).Pluck("id", &typeIDs).Error; err != nil {
		return nil, fmt.Errorf("无法列出祷告类型: %w", err)
	}

	result := &ResetAllResult{}
	for _, id := range typeIDs {
		if err := e.AdminReset(ctx, id, adminID, "批量清零"); err != nil {
			fmt.Printf("批量清零: 类型 %s 清零失败: %v\n", id, err)
			result.FailedCount++
			continue
		}
		result.ResetCount++
	}
	return result, nil
}

// NewTypeID 生成一个新的祷告类型主键（UUIDv7，时间有序便于排查）
func NewTypeID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	return id.String(), nil
}
