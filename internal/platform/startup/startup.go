package startup

import (
	"fmt"

	"github.com/vitanova-team/prayer-counter-backend/internal/admin"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/config"
	"github.com/vitanova-team/prayer-counter-backend/internal/prayer"
	"github.com/vitanova-team/prayer-counter-backend/internal/program"
)

// InitializeApplication 是应用首次启动时执行的总入口
func InitializeApplication(cfg *config.Config) error {
	fmt.Println("开始应用首次初始化...")

	if err := prayer.PrimeDB(); err != nil {
		return err
	}
	if err := admin.PrimeDB(); err != nil {
		return err
	}
	if err := program.PrimeDB(); err != nil {
		return err
	}
	if err := admin.Initialize(cfg); err != nil {
		return err
	}

	if err := RebuildCache(); err != nil {
		return err
	}

	fmt.Println("应用初始化完成！")
	return nil
}

// RebuildCache 是一个专门用于在运行时热重建Redis缓存的函数。
// 展示缓存和冷却窗口缓存都以SQL为权威数据源整体重建。
func RebuildCache() error {
	fmt.Println("开始缓存热重建...")

	if err := prayer.WarmupCache(); err != nil {
		return err
	}
	if err := prayer.RebuildCooldownCache(); err != nil {
		return err
	}

	fmt.Println("缓存热重建完成。")
	return nil
}
