package program

import (
	"fmt"

	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
)

// PrimeDB 负责迁移program模块的数据库表结构并保证默认数据存在
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Program{}); err != nil {
		return fmt.Errorf("无法迁移program表: %w", err)
	}
	if err := seedDefaultProgram(); err != nil {
		return err
	}
	fmt.Println("Program数据库表迁移成功。")
	return nil
}
