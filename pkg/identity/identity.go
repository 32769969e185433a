// Package identity 管理客户端的匿名身份。
// 身份是一个随机UUID，与任何个人信息无关，持久化在XDG数据目录下，
// 让同一台设备的多次提交共享同一个身份。
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

const (
	// AppName 是XDG目录下的应用子目录名
	AppName = "prayer-counter"
	// recordVersion 是身份文件的格式版本，不兼容变更时递增
	recordVersion = "v1"

	fileName = "identity.json"
)

// Record 是持久化的身份文件内容
type Record struct {
	UserID    string    `json:"userId"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

// filePath 返回身份文件的绝对路径
func filePath() string {
	return filepath.Join(xdg.DataHome, AppName, fileName)
}

// Load 返回本机的匿名身份ID。
// 文件缺失、损坏或版本不匹配时重新生成并落盘；
// 存储不可用时退回一次性的内存身份，绝不因此失败。
func Load() string {
	path := filePath()

	if data, err := os.ReadFile(path); err == nil {
		var rec Record
		if json.Unmarshal(data, &rec) == nil &&
			rec.Version == recordVersion &&
			uuid.Validate(rec.UserID) == nil {
			return rec.UserID
		}
		// 损坏或版本不匹配：视同不存在，重新生成
	}

	rec := Record{
		UserID:    uuid.NewString(),
		Version:   recordVersion,
		CreatedAt: time.Now(),
	}

	if err := save(path, rec); err != nil {
		// 存储失败只影响持久性，本次会话仍可使用临时身份
		fmt.Fprintf(os.Stderr, "警告: 无法保存身份文件，本次使用临时身份: %v\n", err)
	}
	return rec.UserID
}

func save(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Reset 删除持久化的身份，下次Load会生成全新身份。
func Reset() error {
	err := os.Remove(filePath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
