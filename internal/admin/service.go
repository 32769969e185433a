package admin

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitanova-team/prayer-counter-backend/internal/platform/database"
	"github.com/vitanova-team/prayer-counter-backend/pkg/token"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrBadCredentials 表示邮箱或密码不正确，或账号被停用。
// 对外只暴露这一种失败，避免泄露账号是否存在。
var ErrBadCredentials = errors.New("邮箱或密码不正确")

// sessionTTL 由setup从配置注入
var sessionTTL = 24 * time.Hour

// Authenticate 校验凭据并签发一个会话令牌。
func Authenticate(email, password string) (string, *AdminUser, error) {
	var account AdminUser
	err := database.DB.Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 即便账号不存在也做一次哈希比较，抹平响应时间差异
			_ = bcrypt.CompareHashAndPassword(
				[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
			return "", nil, ErrBadCredentials
		}
		return "", nil, fmt.Errorf("无法查询管理员账号: %w", err)
	}

	if !account.IsActive {
		return "", nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrBadCredentials
	}

	sessionToken, err := token.GenerateSessionToken(account.ID, account.Role, sessionTTL)
	if err != nil {
		return "", nil, fmt.Errorf("无法签发会话令牌: %w", err)
	}

	now := time.Now()
	database.DB.Model(&account).Update("last_login_at", now)
	account.LastLoginAt = now

	return sessionToken, &account, nil
}

// GetByID 按ID读取管理员账号
func GetByID(id string) (*AdminUser, error) {
	var account AdminUser
	if err := database.DB.Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ensureBootstrapAdmin 保证系统至少有一个可登录的管理员。
// 只在admin_users表为空时，用配置中的引导凭据创建初始账号。
func ensureBootstrapAdmin(email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := database.DB.Model(&AdminUser{}).Count(&count).Error; err != nil {
		return fmt.Errorf("无法检查管理员账号: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("无法哈希引导密码: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("无法生成管理员ID: %w", err)
	}

	account := AdminUser{
		ID:           id.String(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Administrator",
		Role:         "super_admin",
		IsActive:     true,
	}
	if err := database.DB.Create(&account).Error; err != nil {
		return fmt.Errorf("无法创建引导管理员: %w", err)
	}
	fmt.Printf("已创建引导管理员账号: %s\n", email)
	return nil
}
