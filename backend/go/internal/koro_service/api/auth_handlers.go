package api

import (
	"net/http"

	"Koro/backend/go/internal/models"

	"github.com/gin-gonic/gin"
)

// SignUpRequest 定义了注册请求的 JSON 结构。
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest 定义了登录请求的 JSON 结构。
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LocalLoginRequest 定义了离线本地身份的请求结构，两个字段都可以省略。
type LocalLoginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// SignUpHandler 处理邮箱注册。
func (a *API) SignUpHandler(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := a.accounts.SignUp(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

// LoginHandler 处理邮箱登录。
func (a *API) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing registry credentials."})
		return
	}

	user, token, err := a.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

// LocalLoginHandler 签发离线本地身份，不校验任何凭据。
func (a *API) LocalLoginHandler(c *gin.Context) {
	if a.local == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "local identity is disabled"})
		return
	}
	var req LocalLoginRequest
	// 请求体可以为空
	_ = c.ShouldBindJSON(&req)

	user, token, err := a.local.SignUp(c.Request.Context(), req.Name, req.Email, "")
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

// LogoutHandler 丢弃缓存的工作区，本地身份同时清除保存的操作者。
func (a *API) LogoutHandler(c *gin.Context) {
	uid := userID(c)
	var err error
	if c.GetString(ctxProvider) == models.ProviderLocal && a.local != nil {
		err = a.local.SignOut(c.Request.Context(), uid)
	} else {
		err = a.accounts.SignOut(c.Request.Context(), uid)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	a.conv.Evict(uid)
	c.Status(http.StatusNoContent)
}
