package prayer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
)

// CounterEvent 是发布到UpdateChannel的消息体
type CounterEvent struct {
	PrayerTypeID string        `json:"prayerTypeId"`
	Counter      PrayerCounter `json:"counter"`
}

// redisNotifier 把引擎的提交结果镜像到Redis：
// 刷新展示缓存、预热冷却窗口、发布实时事件。
// 所有操作都是尽力而为的——Redis不健康时静默跳过，SQL权威数据不受影响。
type redisNotifier struct{}

// NewRedisNotifier 返回生产环境使用的Notifier实现
func NewRedisNotifier() Notifier {
	return &redisNotifier{}
}

func (n *redisNotifier) CounterUpdated(typeID string, counter PrayerCounter) {
	if !database.IsRedisHealthy() {
		return
	}

	counterJSON, err := json.Marshal(counter)
	if err != nil {
		return
	}
	event, _ := json.Marshal(CounterEvent{PrayerTypeID: typeID, Counter: counter})

	pipe := database.RDB.TxPipeline()
	pipe.HSet(database.Ctx, CountersKey, typeID, counterJSON)
	pipe.Publish(database.Ctx, UpdateChannel, event)
	if _, err := pipe.Exec(database.Ctx); err != nil {
		fmt.Printf("警告: 刷新计数器缓存失败 (type %s): %v\n", typeID, err)
	}
}

func (n *redisNotifier) SubmissionAccepted(typeID, identity string, at time.Time) {
	ArmCooldown(typeID, identity, at)
}

// WarmupCache 从SQL权威数据重建Redis中的计数器展示缓存。
// 在应用启动和Redis重启后的热重建中被调用。
func WarmupCache() error {
	var counters []PrayerCounter
	if err := database.DB.Find(&counters).Error; err != nil {
		return fmt.Errorf("无法从数据库读取计数器: %w", err)
	}

	pipe := database.RDB.Pipeline()
	// 先清空旧的缓存，确保数据一致性
	pipe.Del(database.Ctx, CountersKey)
	for _, c := range counters {
		counterJSON, err := json.Marshal(c)
		if err != nil {
			continue
		}
		pipe.HSet(database.Ctx, CountersKey, c.PrayerTypeID, counterJSON)
	}
	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("预热计数器缓存到Redis失败: %w", err)
	}

	fmt.Printf("成功预热 %d 个计数器到Redis。\n", len(counters))
	return nil
}

// cachedCounters 从Redis批量读取一组类型的计数器。
// 任何一个字段缺失或解析失败都返回错误，让调用方退回SQL。
func cachedCounters(typeIDs []string) (map[string]PrayerCounter, error) {
	if len(typeIDs) == 0 {
		return map[string]PrayerCounter{}, nil
	}

	values, err := database.RDB.HMGet(database.Ctx, CountersKey, typeIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("无法从Redis读取计数器缓存: %w", err)
	}

	counters := make(map[string]PrayerCounter, len(typeIDs))
	for i, v := range values {
		if v == nil {
			return nil, fmt.Errorf("计数器缓存缺少类型 %s", typeIDs[i])
		}
		var c PrayerCounter
		if err := json.Unmarshal([]byte(v.(string)), &c); err != nil {
			return nil, fmt.Errorf("无法解析类型 %s 的计数器缓存: %w", typeIDs[i], err)
		}
		counters[typeIDs[i]] = c
	}
	return counters, nil
}
