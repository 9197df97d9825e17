package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"Koro/backend/go/internal/attachment"
	"Koro/backend/go/internal/engine"
	"Koro/backend/go/internal/koro_service/service"
	"Koro/backend/go/internal/models"

	"github.com/gin-gonic/gin"
)

// TurnRequest 是 JSON 形式的回合请求，附件需已是 base64 文本。
type TurnRequest struct {
	Prompt      string              `json:"prompt"`
	Attachments []models.Attachment `json:"attachments"`
}

// ScriptRequest 是剧本工坊的请求。
type ScriptRequest struct {
	SessionID string `json:"sessionId"`
	Topic     string `json:"topic" binding:"required"`
	Platform  string `json:"platform"`
	Tone      string `json:"tone"`
	Minutes   int    `json:"minutes"`
}

// SubmitTurnHandler 接受 multipart（prompt 字段 + files）或 JSON，以 SSE 推送进度。
func (a *API) SubmitTurnHandler(c *gin.Context) {
	prompt, attachments, err := a.readTurn(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.streamTurn(c, c.Param("id"), prompt, attachments)
}

// ScriptHandler 生成剧本指令并作为普通回合运行。
func (a *API) ScriptHandler(c *gin.Context) {
	var req ScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prompt := engine.ScriptPrompt(req.Topic, req.Platform, req.Tone, req.Minutes)
	a.streamTurn(c, req.SessionID, prompt, nil)
}

// streamTurn 运行回合。第一次进度到达前出错时返回普通 JSON 错误，之后改用 SSE 事件。
func (a *API) streamTurn(c *gin.Context, sessionID, prompt string, attachments []models.Attachment) {
	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}

	out, err := a.conv.SubmitTurn(c.Request.Context(), userID(c), sessionID, prompt, attachments, func(u service.Update) {
		begin()
		c.SSEvent("update", u)
		c.Writer.Flush()
	})
	if err != nil {
		if !started {
			abortWithError(c, err)
			return
		}
		c.SSEvent("error", gin.H{"error": err.Error()})
		c.Writer.Flush()
		return
	}
	begin()
	c.SSEvent("done", out)
	c.Writer.Flush()
}

// readTurn 从请求体中读取提示与附件。无法读取的文件被跳过，不影响其他文件。
func (a *API) readTurn(c *gin.Context) (string, []models.Attachment, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(a.maxUpload); err != nil {
			return "", nil, fmt.Errorf("invalid multipart body: %w", err)
		}
		form := c.Request.MultipartForm
		prompt := strings.Join(form.Value["prompt"], "\n")

		files := form.File["files"]
		sources := make([]attachment.Source, 0, len(files))
		for _, fh := range files {
			sources = append(sources, fileSource(fh))
		}
		results := a.encoder.EncodeBatch(c.Request.Context(), sources)
		for i, r := range results {
			if r.Err != nil {
				a.logger.WithError(models.NewErrorInfo(r.Err, "attachment_error")).
					WithField("file", files[i].Filename).Warn("skipping unreadable attachment")
			}
		}
		return prompt, attachment.Succeeded(results), nil
	}

	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	atts, err := attachment.NormalizeAll(req.Attachments)
	if err != nil {
		return "", nil, err
	}
	return req.Prompt, atts, nil
}

func fileSource(fh *multipart.FileHeader) attachment.Source {
	// 声明的类型原样保留，只有缺失时才根据内容探测
	mimeType := fh.Header.Get("Content-Type")
	return attachment.Source{
		Name:     fh.Filename,
		MIMEType: mimeType,
		Open:     func() (io.ReadCloser, error) { return fh.Open() },
	}
}
