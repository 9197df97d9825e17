package api

import (
	"net/http"

	"Koro/backend/go/internal/avatar"
	"Koro/backend/go/internal/llm"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/internal/voice"

	"github.com/gin-gonic/gin"
)

// AvatarRequest 是头像工坊的请求，style 为空时根据描述推断。
type AvatarRequest struct {
	Subject string       `json:"subject" binding:"required"`
	Style   avatar.Style `json:"style"`
}

// SpeechRequest 是语音合成的请求。
type SpeechRequest struct {
	Text    string        `json:"text" binding:"required"`
	Persona voice.Persona `json:"persona"`
}

// AvatarHandler 生成一张方形头像。
func (a *API) AvatarHandler(c *gin.Context) {
	if a.avatar == nil {
		abortWithError(c, llm.ErrImageUnsupported)
		return
	}
	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	style := req.Style
	if style == "" {
		style = avatar.DetectStyle(req.Subject)
	}

	img, err := a.avatar.Generate(c.Request.Context(), req.Subject, style)
	if err != nil {
		a.logger.WithError(models.NewErrorInfo(err, "avatar_error")).WithUser(userID(c)).Warn("avatar synthesis failed")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"style":    style,
		"data":     img.Data,
		"mimeType": img.MIMEType,
		"caption":  img.Caption,
	})
}

// SpeechHandler 把剧本合成为 WAV 音频。
func (a *API) SpeechHandler(c *gin.Context) {
	if a.voice == nil {
		abortWithError(c, llm.ErrSpeechUnsupported)
		return
	}
	var req SpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wav, err := a.voice.Speak(c.Request.Context(), req.Text, req.Persona)
	if err != nil {
		a.logger.WithError(models.NewErrorInfo(err, "speech_error")).WithUser(userID(c)).Warn("speech synthesis failed")
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/wav", wav)
}
