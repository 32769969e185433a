package admin

import (
	"fmt"
	"time"

	"github.com/vitanova-team/prayer-counter-backend/internal/platform/config"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
)

// PrimeDB 负责迁移admin模块的数据库表结构
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&AdminUser{}); err != nil {
		return fmt.Errorf("无法迁移admin表: %w", err)
	}
	fmt.Println("Admin数据库表迁移成功。")
	return nil
}

// Initialize 注入会话有效期并按需创建引导管理员。
func Initialize(cfg *config.Config) error {
	if cfg.Admin.TokenTTLHours > 0 {
		sessionTTL = time.Duration(cfg.Admin.TokenTTLHours) * time.Hour
	}
	return ensureBootstrapAdmin(cfg.Admin.BootstrapEmail, cfg.Admin.BootstrapPassword)
}
