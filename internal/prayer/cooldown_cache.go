package prayer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
	"github.com/vitanova-team/prayer-counter-backend/pkg/lifecycle"
)

// 冷却窗口的Redis快速路径。
// 这是一个advisory缓存：命中时网关可以不开数据库事务直接回答429，
// 未命中或Redis不可用时放行，由引擎事务内的权威检查兜底。
// 因此这里的一切失败策略都是fail-open。

const (
	// cooldownTTLBuffer 让每个键的过期时间略长于冷却窗口，作为缓冲
	cooldownTTLBuffer = time.Minute
	// sweepInterval 是后台清扫过期成员的周期
	sweepInterval = time.Minute
)

// CooldownSecondsToWait 查询快速路径中该身份对该类型的剩余冷却秒数。
// 返回0表示放行（包括Redis不可用、键不存在等所有不确定情况）。
func CooldownSecondsToWait(typeID, identity string, cooldown time.Duration) int {
	if !database.IsRedisHealthy() {
		return 0
	}

	key := cooldownKeyPrefix + typeID
	score, err := database.RDB.ZScore(database.Ctx, key, identity).Result()
	if err != nil {
		// redis.Nil（无记录）与其它错误一律放行
		return 0
	}

	last := time.UnixMicro(int64(score))
	elapsed := time.Since(last)
	if elapsed >= cooldown {
		return 0
	}
	return int(math.Ceil((cooldown - elapsed).Seconds()))
}

// ArmCooldown 在一次成功提交后记录该身份的最近提交时间。
func ArmCooldown(typeID, identity string, at time.Time) {
	if !database.IsRedisHealthy() {
		return
	}

	key := cooldownKeyPrefix + typeID
	cooldown := cooldownWindow()

	pipe := database.RDB.TxPipeline()
	pipe.ZAdd(database.Ctx, key, redis.Z{Score: float64(at.UnixMicro()), Member: identity})
	pipe.Expire(database.Ctx, key, cooldown+cooldownTTLBuffer)
	if _, err := pipe.Exec(database.Ctx); err != nil {
		fmt.Printf("警告: 写入冷却窗口缓存失败 (type %s): %v\n", typeID, err)
	}
}

// cooldownTTL 由setup注入，避免本文件反向依赖config
var cooldownTTL = 30 * time.Second

func setCooldownTTL(d time.Duration) {
	if d > 0 {
		cooldownTTL = d
	}
}

func cooldownWindow() time.Duration {
	return cooldownTTL
}

// RebuildCooldownCache 从SQL审计记录重建冷却窗口缓存。
// 用于应用启动和Redis重启后的热重建，模式与展示缓存的预热一致。
func RebuildCooldownCache() error {
	fmt.Println("正在从数据库重建冷却窗口缓存...")

	cooldown := cooldownWindow()
	var recent []PrayerAction
	beginTime := time.Now().Add(-cooldown)
	err := database.DB.Model(&PrayerAction{}).
		Where("action_type = ? AND created_at > ?", ActionIncrement, beginTime).
		Select("prayer_type_id", "user_identifier", "created_at").
		Find(&recent).Error
	if err != nil {
		return fmt.Errorf("无法从数据库读取近期提交: %w", err)
	}

	// 1. 安全地删除所有旧的冷却键
	if err := deleteKeysByPrefix(database.Ctx, database.RDB, cooldownKeyPrefix); err != nil {
		return fmt.Errorf("删除旧的冷却键失败: %w", err)
	}

	if len(recent) == 0 {
		fmt.Println("冷却窗口：无近期提交数据需要恢复。")
		return nil
	}

	// 2. 按类型分组，减少Pipeline的调用次数
	// 同一(类型, 身份)只保留最新的时间戳
	grouped := make(map[string]map[string]float64)
	for _, a := range recent {
		key := cooldownKeyPrefix + a.PrayerTypeID
		if grouped[key] == nil {
			grouped[key] = make(map[string]float64)
		}
		ts := float64(a.CreatedAt.UnixMicro())
		if ts > grouped[key][a.UserIdentifier] {
			grouped[key][a.UserIdentifier] = ts
		}
	}

	// 3. 批量写回Redis
	pipe := database.RDB.Pipeline()
	for key, members := range grouped {
		zs := make([]redis.Z, 0, len(members))
		for identity, ts := range members {
			zs = append(zs, redis.Z{Score: ts, Member: identity})
		}
		pipe.ZAdd(database.Ctx, key, zs...)
		pipe.Expire(database.Ctx, key, cooldown+cooldownTTLBuffer)
	}
	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("批量写回冷却数据到Redis失败: %w", err)
	}

	fmt.Printf("冷却窗口：成功从数据库恢复了 %d 个类型的提交数据到缓存。\n", len(grouped))
	return nil
}

// deleteKeysByPrefix 是一个辅助函数，用SCAN安全地删除一批键
func deleteKeysByPrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	var cursor uint64
	matchPattern := prefix + "*"
	const batchSize = 500

	for {
		keys, nextCursor, err := rdb.Scan(ctx, cursor, matchPattern, batchSize).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}

// StartCooldownSweeper 启动后台清扫器，定期移除所有冷却键中已经过期的成员，
// 约束缓存的体积。生命周期与优雅停机信号绑定。
func StartCooldownSweeper(handle *lifecycle.Handle) {
	go runSweeper(handle)
}

func runSweeper(handle *lifecycle.Handle) {
	defer handle.Close()
	fmt.Println("冷却窗口清扫器已启动。")

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-handle.Done():
			fmt.Println("冷却窗口清扫器已退出。")
			return
		case <-ticker.C:
			sweepExpiredCooldowns()
		}
	}
}

func sweepExpiredCooldowns() {
	if !database.IsRedisHealthy() {
		return
	}

	minScore := fmt.Sprintf("(%d", time.Now().Add(-cooldownWindow()).UnixMicro())
	var cursor uint64
	for {
		keys, nextCursor, err := database.RDB.Scan(database.Ctx, cursor, cooldownKeyPrefix+"*", 500).Result()
		if err != nil {
			return
		}
		for _, key := range keys {
			database.RDB.ZRemRangeByScore(database.Ctx, key, "-inf", minScore)
		}
		cursor = nextCursor
		if cursor == 0 {
			return
		}
	}
}
