// Package api 暴露对话服务的 REST、SSE 与 WebSocket 接口。
package api

import (
	"errors"
	"net/http"

	"Koro/backend/go/internal/attachment"
	"Koro/backend/go/internal/avatar"
	"Koro/backend/go/internal/engine"
	"Koro/backend/go/internal/identity"
	"Koro/backend/go/internal/koro_service/service"
	"Koro/backend/go/internal/llm"
	"Koro/backend/go/internal/preferences"
	"Koro/backend/go/internal/voice"
	"Koro/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// defaultMaxUpload 是单次 multipart 请求在内存中保留的最大字节数。
const defaultMaxUpload = 32 << 20

// Options 是 API 的依赖。
type Options struct {
	Conversations *service.ConversationService
	Accounts      identity.Provider
	Local         *identity.LocalProvider // 为 nil 时禁用离线本地身份
	Tokens        *identity.TokenIssuer
	Avatar        *avatar.Service
	Voice         *voice.Service
	Encoder       *attachment.Encoder
	Logger        *logger.Logger
	MaxUpload     int64
}

// API 包含所有 endpoint 的处理函数。
type API struct {
	conv      *service.ConversationService
	accounts  identity.Provider
	local     *identity.LocalProvider
	tokens    *identity.TokenIssuer
	avatar    *avatar.Service
	voice     *voice.Service
	encoder   *attachment.Encoder
	logger    *logger.Logger
	maxUpload int64
	upgrader  websocket.Upgrader
}

// NewAPI 创建 API。
func NewAPI(opts Options) *API {
	if opts.Encoder == nil {
		opts.Encoder = attachment.NewEncoder(0)
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = defaultMaxUpload
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &API{
		conv:      opts.Conversations,
		accounts:  opts.Accounts,
		local:     opts.Local,
		tokens:    opts.Tokens,
		avatar:    opts.Avatar,
		voice:     opts.Voice,
		encoder:   opts.Encoder,
		logger:    opts.Logger,
		maxUpload: opts.MaxUpload,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 访问控制由令牌负责
			},
		},
	}
}

// statusFor 把领域错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyPrompt),
		errors.Is(err, preferences.ErrUnsupportedLanguage),
		errors.Is(err, preferences.ErrUnsupportedTheme),
		errors.Is(err, avatar.ErrUnknownStyle),
		errors.Is(err, voice.ErrUnknownPersona),
		errors.Is(err, voice.ErrEmptyScript),
		errors.Is(err, identity.ErrMissingCredentials),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrAccountExists):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrTurnInProgress):
		return http.StatusConflict
	case errors.Is(err, llm.ErrImageUnsupported), errors.Is(err, llm.ErrSpeechUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
