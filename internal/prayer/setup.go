package prayer

import (
	"fmt"
	"time"

	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
)

// defaultEngine 是本模块的全局引擎实例，由InitializeEngine装配
var defaultEngine *Engine

// PrimeDB 负责迁移prayer模块的数据库表结构
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&PrayerType{}, &PrayerCounter{}, &PrayerAction{}); err != nil {
		return fmt.Errorf("无法迁移prayer表: %w", err)
	}
	fmt.Println("Prayer数据库表迁移成功。")
	return nil
}

// InitializeEngine 装配全局引擎。应该在应用启动时且仅调用一次。
func InitializeEngine(notifier Notifier, cooldownSeconds int) {
	cooldown := time.Duration(cooldownSeconds) * time.Second
	setCooldownTTL(cooldown)
	defaultEngine = NewEngine(database.DB, notifier, cooldown)
	fmt.Printf("计数引擎已初始化，冷却窗口 %v。\n", cooldown)
}

// DefaultEngine 返回全局引擎，供管理端处理器使用
func DefaultEngine() *Engine {
	return defaultEngine
}
