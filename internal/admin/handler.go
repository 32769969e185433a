package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// LoginRequestBody 定义了登录接口的请求体
type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 校验凭据并返回会话令牌
func Login(c *gin.Context) {
	var body LoginRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	sessionToken, account, err := Authenticate(body.Email, body.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": ErrBadCredentials.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登录失败，请重试"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": sessionToken,
		"admin": account,
	})
}

// Me 返回当前会话对应的管理员信息
func Me(c *gin.Context) {
	account, err := GetByID(c.GetString(AdminIDKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "登录已失效，请重新登录"})
		return
	}
	c.JSON(http.StatusOK, account)
}
