package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// secretKey 是服务器在启动时生成的32字节密钥。
// 密钥只存在于内存中，服务重启会使所有已签发的令牌失效。
var secretKey []byte

// SessionPayload 定义了管理员会话令牌中携带的数据。
type SessionPayload struct {
	AdminID   string `json:"a"`
	Role      string `json:"r"`
	ExpiresAt int64  `json:"e"` // Unix秒
}

// ErrInvalidToken 表示令牌格式错误或签名校验失败。
var ErrInvalidToken = errors.New("令牌无效")

// ErrExpiredToken 表示令牌已过期。
var ErrExpiredToken = errors.New("令牌已过期")

// GenerateSecretKey 生成一个密码学安全的32字节随机密钥。
func GenerateSecretKey() {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		panic("无法生成安全的密钥: " + err.Error())
	}
	secretKey = key
	fmt.Println("HMAC密钥已成功生成。")
}

// sign 使用HMAC-SHA256对一段数据签名，返回URL安全的Base64编码。
func sign(data []byte) string {
	mac := hmac.New(sha256.New, secretKey)
	mac.Write(data)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// GenerateSessionToken 为一个管理员签发会话令牌。
// 令牌格式: base64(payloadJSON) + "." + base64(hmac)
func GenerateSessionToken(adminID, role string, ttl time.Duration) (string, error) {
	payload := SessionPayload{
		AdminID:   adminID,
		Role:      role,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", errors.New("无法序列化会话payload")
	}

	encodedPayload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return encodedPayload + "." + sign(payloadBytes), nil
}

// ValidateSessionToken 校验令牌的签名和有效期，返回其中的payload。
func ValidateSessionToken(tokenStr string) (*SessionPayload, error) {
	parts := strings.SplitN(tokenStr, ".", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}

	// 1. 重新计算预期的签名
	expectedSignature, err := base64.RawURLEncoding.DecodeString(sign(payloadBytes))
	if err != nil {
		return nil, ErrInvalidToken
	}
	actualSignature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}

	// 2. 使用 hmac.Equal 进行时间恒定的比较，防止时序攻击
	if !hmac.Equal(expectedSignature, actualSignature) {
		return nil, ErrInvalidToken
	}

	// 3. 签名通过后再解析payload并检查有效期
	var payload SessionPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, ErrInvalidToken
	}
	if time.Now().Unix() >= payload.ExpiresAt {
		return nil, ErrExpiredToken
	}

	return &payload, nil
}
