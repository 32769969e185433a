package program

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
	"gorm.io/gorm"
)

// ErrNoActiveProgram 表示当前没有激活的活动
var ErrNoActiveProgram = errors.New("当前没有激活的活动")

// GetActive 返回当前激活的活动。按约定最多只有一个激活项，
// 存在多个时取最近创建的。
func GetActive() (*Program, error) {
	var p Program
	err := database.DB.Where("is_active = ?", true).
		Order("created_at desc").First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveProgram
		}
		return nil, fmt.Errorf("无法读取激活的活动: %w", err)
	}
	return &p, nil
}

// Update 更新一个活动的名称与描述
func Update(id, name, description string) (*Program, error) {
	var p Program
	if err := database.DB.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}

	p.Name = name
	p.Description = description
	if err := database.DB.Save(&p).Error; err != nil {
		return nil, fmt.Errorf("无法更新活动: %w", err)
	}
	return &p, nil
}

// seedDefaultProgram 在空表上创建一个默认的激活活动，
// 保证公开页面首次启动就有页头内容。
func seedDefaultProgram() error {
	var count int64
	if err := database.DB.Model(&Program{}).Count(&count).Error; err != nil {
		return fmt.Errorf("无法检查活动数据: %w", err)
	}
	if count > 0 {
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("无法生成活动ID: %w", err)
	}
	p := Program{
		ID:       id.String(),
		Name:     "同心祷告",
		IsActive: true,
	}
	if err := database.DB.Create(&p).Error; err != nil {
		return fmt.Errorf("无法创建默认活动: %w", err)
	}
	fmt.Println("已创建默认的祷告活动。")
	return nil
}
