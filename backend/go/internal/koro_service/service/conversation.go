// Package service 把会话、记忆、偏好和回合编排组合成面向 API 的对话服务。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Koro/backend/go/internal/engine"
	"Koro/backend/go/internal/events"
	"Koro/backend/go/internal/i18n"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrEmptyPrompt     = errors.New("prompt and attachments are both empty")
	ErrSessionNotFound = errors.New("session not found")
)

// Update 是推送给调用方的一次进度：助手消息的完整当前状态。
type Update struct {
	SessionID string               `json:"sessionId"`
	Turn      models.ChatTurn      `json:"turn"`
	Intent    models.IntentProfile `json:"intent"`
}

// Outcome 是一轮对话结束后的结果。
type Outcome struct {
	SessionID  string               `json:"sessionId"`
	UserTurn   models.ChatTurn      `json:"userTurn"`
	Reply      *models.ChatTurn     `json:"reply,omitempty"`   // 取消且没有任何输出时为空
	Failure    *models.ChatTurn     `json:"failure,omitempty"` // 远程失败时追加的提示消息
	Intent     models.IntentProfile `json:"intent"`
	State      engine.State         `json:"state"`
	DurationMs int64                `json:"durationMs"`
}

// ConversationService 负责一轮对话在会话中的全部落地工作。
type ConversationService struct {
	workspaces   *Workspaces
	orchestrator *engine.Orchestrator
	gate         *engine.Gate
	publisher    events.Publisher
	logger       *logger.Logger
	now          func() time.Time
}

// NewConversationService 创建对话服务。publisher 为 nil 时不发布事件。
func NewConversationService(ws *Workspaces, orch *engine.Orchestrator, publisher events.Publisher, logger *logger.Logger) *ConversationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ConversationService{
		workspaces:   ws,
		orchestrator: orch,
		gate:         engine.NewGate(),
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// Workspace 返回用户的工作区。
func (s *ConversationService) Workspace(userID string) *Workspace {
	return s.workspaces.Get(userID)
}

// Evict 丢弃用户缓存的工作区，下次访问时从存储重新加载。
func (s *ConversationService) Evict(userID string) {
	s.workspaces.Evict(userID)
}

// Cancel 取消会话中正在进行的回合，没有进行中的回合时返回 false。
func (s *ConversationService) Cancel(userID, sessionID string) bool {
	if sessionID == "" {
		sessionID = s.workspaces.Get(userID).Sessions.Current(context.Background()).ID
	}
	return s.gate.Cancel(gateKey(userID, sessionID))
}

// SubmitTurn 在会话中运行一轮对话。sessionID 为空时使用当前会话。
// 远程失败不作为错误返回：部分回复保留，并追加本地化的失败提示；Outcome.State 为 failed。
// 取消同样不是错误，已有的部分文本会保留。
func (s *ConversationService) SubmitTurn(ctx context.Context, userID, sessionID, prompt string, attachments []models.Attachment, onUpdate func(Update)) (*Outcome, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && len(attachments) == 0 {
		return nil, ErrEmptyPrompt
	}
	if onUpdate == nil {
		onUpdate = func(Update) {}
	}

	ws, unpin := s.workspaces.Acquire(userID)
	defer unpin()
	prefs := ws.Preferences.Load(ctx)

	if sessionID == "" {
		sessionID = ws.Sessions.Current(ctx).ID
	}
	sess, ok := ws.Sessions.Get(ctx, sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	turnCtx, release, err := s.gate.Begin(ctx, gateKey(userID, sessionID))
	if err != nil {
		return nil, err
	}
	defer release()

	// 存储写入不跟随取消，取消后的最终状态也要落盘
	store := context.WithoutCancel(ctx)
	log := s.logger.WithUser(userID).WithField("session_id", sessionID)

	ws.Memory.RecordFromText(store, prompt)

	history := sess.Turns
	userTurn := models.ChatTurn{
		ID:          uuid.NewString(),
		Role:        models.RoleUser,
		Content:     prompt,
		Timestamp:   s.now(),
		Attachments: attachments,
	}
	ws.Sessions.AppendOrReplaceTurn(store, sessionID, userTurn)

	effective := prompt
	if effective == "" {
		effective = i18n.Localize(prefs.Language, i18n.AttachmentsPrompt)
	}

	reply := models.ChatTurn{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Timestamp: s.now(),
		Streaming: true,
	}
	var profile models.IntentProfile
	push := func() {
		ws.Sessions.AppendOrReplaceTurn(store, sessionID, reply)
		onUpdate(Update{SessionID: sessionID, Turn: reply, Intent: profile})
	}
	push()

	req := engine.TurnRequest{
		Prompt:        effective,
		History:       history,
		Language:      prefs.Language,
		Attachments:   attachments,
		MemoryContext: ws.Memory.Context(store),
		ForceLocal:    prefs.ForceLocal,
		OnReasoning: func(p models.IntentProfile, trace []string) {
			profile = p
			reply.Reasoning = trace
			push()
		},
	}
	res, runErr := s.orchestrator.RunTurn(turnCtx, req, func(p engine.Partial) {
		reply.Content = p.Text
		reply.Reasoning = p.Reasoning
		reply.Citations = p.Citations
		reply.Roster = p.Roster
		if p.Image != nil {
			reply.Attachments = []models.Attachment{*p.Image}
		}
		push()
	})
	if res == nil {
		ws.Sessions.RemoveTurn(store, sessionID, reply.ID)
		return nil, runErr
	}

	out := &Outcome{SessionID: sessionID, UserTurn: userTurn, Intent: res.Intent, State: res.State, DurationMs: res.Duration.Milliseconds()}
	reply.Streaming = false

	switch {
	case runErr != nil && !errors.Is(runErr, engine.ErrTurnFailed):
		ws.Sessions.RemoveTurn(store, sessionID, reply.ID)
		return nil, runErr

	case runErr != nil:
		log.WithError(models.NewErrorInfo(runErr, "remote_error")).Error("turn failed")
		if res.Text != "" {
			reply.Content = res.Text
			s.finalize(store, ws, out, reply)
		} else {
			ws.Sessions.RemoveTurn(store, sessionID, reply.ID)
		}
		failure := models.ChatTurn{
			ID:        uuid.NewString(),
			Role:      models.RoleAssistant,
			Content:   i18n.Localize(prefs.Language, i18n.SyncFailed),
			Timestamp: s.now(),
		}
		ws.Sessions.AppendOrReplaceTurn(store, sessionID, failure)
		onUpdate(Update{SessionID: sessionID, Turn: failure, Intent: res.Intent})
		out.Failure = &failure

	case res.State == engine.StateCancelled:
		if res.Text == "" && res.Image == nil {
			ws.Sessions.RemoveTurn(store, sessionID, reply.ID)
		} else {
			s.finalize(store, ws, out, reply)
		}

	default:
		reply.Content = res.Text
		reply.Reasoning = res.Reasoning
		reply.Citations = res.Citations
		reply.Roster = res.Roster
		if res.Image != nil {
			reply.Attachments = []models.Attachment{*res.Image}
		}
		s.finalize(store, ws, out, reply)
		onUpdate(Update{SessionID: sessionID, Turn: reply, Intent: res.Intent})
	}

	s.publish(store, userID, out, res)
	return out, nil
}

func (s *ConversationService) finalize(ctx context.Context, ws *Workspace, out *Outcome, reply models.ChatTurn) {
	ws.Sessions.AppendOrReplaceTurn(ctx, out.SessionID, reply)
	out.Reply = &reply
}

func (s *ConversationService) publish(ctx context.Context, userID string, out *Outcome, res *engine.Result) {
	ev := models.TurnEvent{
		UserID:     userID,
		SessionID:  out.SessionID,
		Mode:       res.Intent.Mode,
		State:      string(res.State),
		Citations:  len(res.Citations),
		Characters: len(res.Roster),
		DurationMs: res.Duration.Milliseconds(),
		Timestamp:  s.now(),
	}
	if out.Reply != nil {
		ev.TurnID = out.Reply.ID
	}
	if err := s.publisher.PublishTurn(ctx, ev); err != nil {
		s.logger.WithError(models.NewErrorInfo(err, "publish_error")).Warn("turn event dropped")
	}
}

func gateKey(userID, sessionID string) string {
	return userID + "/" + sessionID
}
