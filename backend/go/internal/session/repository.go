// Package session 维护一个用户的会话列表及当前会话。
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"Koro/backend/go/internal/i18n"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/internal/storage"
	"Koro/backend/go/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// titleRunes 是由首条用户消息派生标题时保留的字符数。
const titleRunes = 30

// snapshot 是持久化在 storage.KeySessions 下的结构。
type snapshot struct {
	Sessions         []models.ChatSession `json:"sessions"`
	CurrentSessionID string               `json:"currentSessionId"`
}

// LanguageFunc 返回用户当前的语言，用于种子消息与默认标题。
type LanguageFunc func(ctx context.Context) models.Language

// Repository 是会话列表的唯一写入方。
// 任何操作之后列表中至少有一个会话；会话内的消息只会追加或按 ID 原地替换。
type Repository struct {
	mu       sync.Mutex
	kv       storage.Store
	logger   *logger.Logger
	language LanguageFunc
	now      func() time.Time

	state *snapshot
}

// NewRepository 创建会话仓库，首次访问时从存储加载。
func NewRepository(kv storage.Store, logger *logger.Logger, language LanguageFunc) *Repository {
	if language == nil {
		language = func(context.Context) models.Language { return models.LangEnglish }
	}
	return &Repository{kv: kv, logger: logger, language: language, now: time.Now}
}

// List 返回所有会话，最新创建的在前。
func (r *Repository) List(ctx context.Context) ([]models.ChatSession, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.load(ctx)
	return lo.Map(st.Sessions, func(s models.ChatSession, _ int) models.ChatSession { return clone(s) }), st.CurrentSessionID
}

// Current 返回当前会话。
func (r *Repository) Current(ctx context.Context) models.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.load(ctx)
	if s, ok := find(st, st.CurrentSessionID); ok {
		return clone(*s)
	}
	return clone(st.Sessions[0])
}

// Get 按 ID 返回会话。
func (r *Repository) Get(ctx context.Context, id string) (models.ChatSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := find(r.load(ctx), id)
	if !ok {
		return models.ChatSession{}, false
	}
	return clone(*s), true
}

// Create 在列表头部插入一个带种子消息的新会话并设为当前会话。
func (r *Repository) Create(ctx context.Context) models.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.load(ctx)
	lang := r.language(ctx)
	s := r.seeded(lang, i18n.Localize(lang, i18n.NewSessionTitle))
	st.Sessions = append([]models.ChatSession{s}, st.Sessions...)
	st.CurrentSessionID = s.ID
	r.persist(ctx)
	return clone(s)
}

// Select 切换当前会话，会话不存在时返回 false。
func (r *Repository) Select(ctx context.Context, id string) (models.ChatSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.load(ctx)
	s, ok := find(st, id)
	if !ok {
		return models.ChatSession{}, false
	}
	st.CurrentSessionID = id
	r.persist(ctx)
	return clone(*s), true
}

// Delete 删除会话。删除最后一个会话时会合成一个新会话，列表永不为空。
func (r *Repository) Delete(ctx context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.load(ctx)
	remaining := lo.Reject(st.Sessions, func(s models.ChatSession, _ int) bool { return s.ID == id })
	if len(remaining) == len(st.Sessions) {
		return false
	}
	if len(remaining) == 0 {
		lang := r.language(ctx)
		remaining = []models.ChatSession{r.seeded(lang, i18n.Localize(lang, i18n.RecoveredSessionTitle))}
		st.CurrentSessionID = remaining[0].ID
	} else if st.CurrentSessionID == id {
		st.CurrentSessionID = remaining[0].ID
	}
	st.Sessions = remaining
	r.persist(ctx)
	return true
}

// Rename 显式设置标题，之后不再自动派生。
func (r *Repository) Rename(ctx context.Context, id, title string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := find(r.load(ctx), id)
	if !ok {
		return false
	}
	s.Title = title
	s.TitleLocked = true
	r.persist(ctx)
	return true
}

// AppendOrReplaceTurn 按 ID 原地替换已有消息，否则追加到末尾。
// 会话中尚无用户消息时，追加的第一条用户消息决定会话标题。
func (r *Repository) AppendOrReplaceTurn(ctx context.Context, sessionID string, turn models.ChatTurn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := find(r.load(ctx), sessionID)
	if !ok {
		return false
	}
	if _, idx, found := lo.FindIndexOf(s.Turns, func(t models.ChatTurn) bool { return t.ID == turn.ID }); found {
		s.Turns[idx] = turn
	} else {
		if turn.Role == models.RoleUser && len(s.Turns) <= 1 && !s.TitleLocked {
			s.Title = deriveTitle(r.language(ctx), turn)
		}
		s.Turns = append(s.Turns, turn)
	}
	r.persist(ctx)
	return true
}

// RemoveTurn 删除一条消息，用于丢弃取消后没有任何内容的助手消息。
func (r *Repository) RemoveTurn(ctx context.Context, sessionID, turnID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := find(r.load(ctx), sessionID)
	if !ok {
		return false
	}
	kept := lo.Reject(s.Turns, func(t models.ChatTurn, _ int) bool { return t.ID == turnID })
	if len(kept) == len(s.Turns) {
		return false
	}
	s.Turns = kept
	r.persist(ctx)
	return true
}

// load 返回内存中的快照，第一次调用时从存储读取；损坏或为空的数据从头开始。
func (r *Repository) load(ctx context.Context) *snapshot {
	if r.state != nil {
		return r.state
	}
	var st snapshot
	ok, err := storage.LoadJSON(ctx, r.kv, storage.KeySessions, &st)
	if err != nil {
		r.logger.WithError(models.NewErrorInfo(err, "storage_error")).Warn("discarding unreadable session store")
	}
	if err != nil || !ok || len(st.Sessions) == 0 {
		lang := r.language(ctx)
		s := r.seeded(lang, i18n.Localize(lang, i18n.InitialSessionTitle))
		st = snapshot{Sessions: []models.ChatSession{s}, CurrentSessionID: s.ID}
	}
	if _, found := find(&st, st.CurrentSessionID); !found {
		st.CurrentSessionID = st.Sessions[0].ID
	}
	r.state = &st
	return r.state
}

func (r *Repository) persist(ctx context.Context) {
	if err := storage.SaveJSON(ctx, r.kv, storage.KeySessions, r.state); err != nil {
		r.logger.WithError(models.NewErrorInfo(err, "storage_error")).Error("failed to persist sessions")
	}
}

func (r *Repository) seeded(lang models.Language, title string) models.ChatSession {
	now := r.now()
	return models.ChatSession{
		ID:    uuid.NewString(),
		Title: title,
		Turns: []models.ChatTurn{{
			ID:        uuid.NewString(),
			Role:      models.RoleAssistant,
			Content:   i18n.Localize(lang, i18n.InitialMessage),
			Timestamp: now,
		}},
		CreatedAt: now,
	}
}

func deriveTitle(lang models.Language, turn models.ChatTurn) string {
	if text := strings.TrimSpace(turn.Content); text != "" {
		runes := []rune(text)
		if len(runes) > titleRunes {
			runes = runes[:titleRunes]
		}
		return string(runes)
	}
	if n := len(turn.Attachments); n > 0 {
		return i18n.LocalizeWith(lang, i18n.AttachmentAnalysisTitle, map[string]interface{}{"Count": n})
	}
	return i18n.Localize(lang, i18n.UntitledSession)
}

func find(st *snapshot, id string) (*models.ChatSession, bool) {
	for i := range st.Sessions {
		if st.Sessions[i].ID == id {
			return &st.Sessions[i], true
		}
	}
	return nil, false
}

func clone(s models.ChatSession) models.ChatSession {
	s.Turns = append([]models.ChatTurn(nil), s.Turns...)
	return s
}
