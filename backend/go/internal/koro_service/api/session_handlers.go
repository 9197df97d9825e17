package api

import (
	"net/http"
	"strings"

	"Koro/backend/go/internal/koro_service/service"
	"Koro/backend/go/internal/models"

	"github.com/gin-gonic/gin"
)

type sessionsResponse struct {
	Sessions         []models.ChatSession `json:"sessions"`
	CurrentSessionID string               `json:"currentSessionId"`
}

// ListSessionsHandler 返回会话列表及当前会话。
func (a *API) ListSessionsHandler(c *gin.Context) {
	sessions, current := a.conv.Workspace(userID(c)).Sessions.List(c.Request.Context())
	c.JSON(http.StatusOK, sessionsResponse{Sessions: sessions, CurrentSessionID: current})
}

// CreateSessionHandler 创建新会话并设为当前会话。
func (a *API) CreateSessionHandler(c *gin.Context) {
	s := a.conv.Workspace(userID(c)).Sessions.Create(c.Request.Context())
	c.JSON(http.StatusCreated, s)
}

// SelectSessionHandler 切换当前会话。
func (a *API) SelectSessionHandler(c *gin.Context) {
	s, ok := a.conv.Workspace(userID(c)).Sessions.Select(c.Request.Context(), c.Param("id"))
	if !ok {
		abortWithError(c, service.ErrSessionNotFound)
		return
	}
	c.JSON(http.StatusOK, s)
}

// RenameSessionHandler 修改会话标题，之后不再自动派生。
func (a *API) RenameSessionHandler(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	sessions := a.conv.Workspace(userID(c)).Sessions
	if !sessions.Rename(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.Title)) {
		abortWithError(c, service.ErrSessionNotFound)
		return
	}
	s, _ := sessions.Get(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, s)
}

// DeleteSessionHandler 删除会话，返回删除后的列表。
func (a *API) DeleteSessionHandler(c *gin.Context) {
	uid := userID(c)
	sessions := a.conv.Workspace(uid).Sessions
	a.conv.Cancel(uid, c.Param("id"))
	if !sessions.Delete(c.Request.Context(), c.Param("id")) {
		abortWithError(c, service.ErrSessionNotFound)
		return
	}
	list, current := sessions.List(c.Request.Context())
	c.JSON(http.StatusOK, sessionsResponse{Sessions: list, CurrentSessionID: current})
}

// CancelTurnHandler 取消会话中正在进行的回合。
func (a *API) CancelTurnHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": a.conv.Cancel(userID(c), c.Param("id"))})
}

// ListMemoryHandler 返回记忆列表，最新的在前。
func (a *API) ListMemoryHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"synapses": a.conv.Workspace(userID(c)).Memory.List(c.Request.Context())})
}

// ClearMemoryHandler 清空记忆。
func (a *API) ClearMemoryHandler(c *gin.Context) {
	a.conv.Workspace(userID(c)).Memory.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// DeleteMemoryHandler 删除单条记忆。
func (a *API) DeleteMemoryHandler(c *gin.Context) {
	if !a.conv.Workspace(userID(c)).Memory.Remove(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "synapse not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPreferencesHandler 返回偏好。
func (a *API) GetPreferencesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.conv.Workspace(userID(c)).Preferences.Load(c.Request.Context()))
}

// UpdatePreferencesRequest 中省略的字段保持不变。
type UpdatePreferencesRequest struct {
	Theme      *models.Theme    `json:"theme"`
	Language   *models.Language `json:"language"`
	ForceLocal *bool            `json:"forceLocal"`
}

// UpdatePreferencesHandler 部分更新偏好。
func (a *API) UpdatePreferencesHandler(c *gin.Context) {
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	repo := a.conv.Workspace(userID(c)).Preferences

	prefs := repo.Load(ctx)
	var err error
	if req.Theme != nil {
		prefs, err = repo.SetTheme(ctx, *req.Theme)
	}
	if err == nil && req.Language != nil {
		prefs, err = repo.SetLanguage(ctx, *req.Language)
	}
	if err == nil && req.ForceLocal != nil {
		prefs, err = repo.SetForceLocal(ctx, *req.ForceLocal)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}
