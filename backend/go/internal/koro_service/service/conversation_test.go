package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"Koro/backend/go/internal/engine"
	"Koro/backend/go/internal/llm"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/internal/storage"
	"Koro/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGenerator 发送 chunks 后关闭；hold 为 true 时发送完保持打开直到 ctx 取消。
type stubGenerator struct {
	mu       sync.Mutex
	chunks   []string
	hold     bool
	startErr error
	started  chan struct{}
	prompts  []string
}

func (g *stubGenerator) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	g.mu.Lock()
	if n := len(req.Content); n > 0 {
		last := req.Content[n-1]
		g.prompts = append(g.prompts, last.Parts[len(last.Parts)-1].Text)
	}
	g.mu.Unlock()
	if g.startErr != nil {
		return nil, g.startErr
	}
	ch := make(chan *models.GenerateContentResponse)
	go func() {
		defer close(ch)
		for _, c := range g.chunks {
			resp := &models.GenerateContentResponse{Content: []models.Content{{Role: models.SpeakerModel, Parts: []*models.Part{{Text: c}}}}}
			select {
			case ch <- resp:
			case <-ctx.Done():
				return
			}
		}
		if g.started != nil {
			close(g.started)
		}
		if g.hold {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

func (g *stubGenerator) GenerateImage(context.Context, *models.ImageRequest) (*models.ImageResponse, error) {
	return nil, llm.ErrImageUnsupported
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.TurnEvent
}

func (p *recordingPublisher) PublishTurn(_ context.Context, ev models.TurnEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func newService(t *testing.T, gen llm.Generator, pub *recordingPublisher) *ConversationService {
	t.Helper()
	ws, err := NewWorkspaces(storage.NewMemoryStore(), 8, 0, logger.Discard())
	require.NoError(t, err)
	orch := engine.NewOrchestrator(gen, llm.NewLocal(0), logger.Discard())
	if pub == nil {
		return NewConversationService(ws, orch, nil, logger.Discard())
	}
	return NewConversationService(ws, orch, pub, logger.Discard())
}

func TestSubmitTurnCompletes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(t, llm.NewLocal(0), pub)
	ctx := context.Background()

	var updates []Update
	out, err := svc.SubmitTurn(ctx, "u1", "", "hello, my name is Zara", nil, func(u Update) { updates = append(updates, u) })
	require.NoError(t, err)

	assert.Equal(t, engine.StateCompleted, out.State)
	require.NotNil(t, out.Reply)
	assert.False(t, out.Reply.Streaming)
	assert.Contains(t, llm.LocalGreetings, out.Reply.Content)
	assert.Nil(t, out.Failure)

	require.NotEmpty(t, updates)
	assert.True(t, updates[0].Turn.Streaming)
	for _, u := range updates {
		assert.Equal(t, out.Reply.ID, u.Turn.ID)
	}

	ws := svc.Workspace("u1")
	sess := ws.Sessions.Current(ctx)
	require.Len(t, sess.Turns, 3)
	assert.Equal(t, models.RoleUser, sess.Turns[1].Role)
	assert.Equal(t, out.Reply.ID, sess.Turns[2].ID)
	assert.False(t, sess.Turns[2].Streaming)
	assert.Equal(t, "hello, my name is Zara", sess.Title)
	assert.Contains(t, ws.Memory.Context(ctx), "Zara")

	require.Len(t, pub.events, 1)
	assert.Equal(t, "u1", pub.events[0].UserID)
	assert.Equal(t, out.Reply.ID, pub.events[0].TurnID)
	assert.Equal(t, string(engine.StateCompleted), pub.events[0].State)
}

func TestSubmitTurnRejectsEmptyPrompt(t *testing.T) {
	svc := newService(t, llm.NewLocal(0), nil)
	_, err := svc.SubmitTurn(context.Background(), "u1", "", "   ", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = svc.SubmitTurn(context.Background(), "u1", "missing", "hi", nil, nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitTurnAttachmentsOnly(t *testing.T) {
	gen := &stubGenerator{chunks: []string{"A chart."}}
	svc := newService(t, gen, nil)
	att := models.Attachment{ID: "a1", Kind: models.KindDocument, Data: base64.StdEncoding.EncodeToString([]byte("a,b\n1,2")), MIMEType: "text/csv", Name: "data.csv"}

	out, err := svc.SubmitTurn(context.Background(), "u1", "", "", []models.Attachment{att}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ModeAnalysis, out.Intent.Mode)
	assert.Equal(t, []string{"Analyze these attachments."}, gen.prompts)
	assert.Equal(t, "", out.UserTurn.Content)

	sess := svc.Workspace("u1").Sessions.Current(context.Background())
	assert.Equal(t, "Analysis of 1 items", sess.Title)
}

func TestSubmitTurnFailureAppendsNotice(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(t, &stubGenerator{startErr: errors.New("503 from upstream")}, pub)
	ctx := context.Background()

	out, err := svc.SubmitTurn(ctx, "u1", "", "what is new today", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.StateFailed, out.State)
	assert.Nil(t, out.Reply)
	require.NotNil(t, out.Failure)
	assert.Equal(t, "Neural Pathway Obstruction. Synchronization failed.", out.Failure.Content)

	turns := svc.Workspace("u1").Sessions.Current(ctx).Turns
	require.Len(t, turns, 3)
	assert.Equal(t, out.Failure.ID, turns[2].ID)
	assert.Equal(t, string(engine.StateFailed), pub.events[0].State)
}

func TestCancelKeepsPartialText(t *testing.T) {
	gen := &stubGenerator{chunks: []string{"Partial "}, hold: true}
	svc := newService(t, gen, nil)
	ctx := context.Background()
	sessionID := svc.Workspace("u1").Sessions.Current(ctx).ID

	out, err := svc.SubmitTurn(ctx, "u1", sessionID, "tell me a story", nil, func(u Update) {
		if u.Turn.Content != "" {
			assert.True(t, svc.Cancel("u1", sessionID))
		}
	})
	require.NoError(t, err)
	assert.Equal(t, engine.StateCancelled, out.State)
	require.NotNil(t, out.Reply)
	assert.Equal(t, "Partial ", out.Reply.Content)
	assert.False(t, out.Reply.Streaming)

	turns := svc.Workspace("u1").Sessions.Current(ctx).Turns
	require.Len(t, turns, 3)
	assert.False(t, turns[2].Streaming)
	assert.False(t, svc.Cancel("u1", sessionID))
}

func TestCancelWithoutOutputDropsReply(t *testing.T) {
	gen := &stubGenerator{hold: true, started: make(chan struct{})}
	svc := newService(t, gen, nil)
	ctx := context.Background()

	go func() {
		<-gen.started
		svc.Cancel("u1", "")
	}()
	out, err := svc.SubmitTurn(ctx, "u1", "", "tell me a story", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.StateCancelled, out.State)
	assert.Nil(t, out.Reply)
	assert.Len(t, svc.Workspace("u1").Sessions.Current(ctx).Turns, 2)
}

func TestSecondTurnIsRejectedWhileBusy(t *testing.T) {
	gen := &stubGenerator{hold: true, started: make(chan struct{})}
	svc := newService(t, gen, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.SubmitTurn(ctx, "u1", "", "first", nil, nil)
	}()
	<-gen.started

	_, err := svc.SubmitTurn(ctx, "u1", "", "second", nil, nil)
	assert.ErrorIs(t, err, engine.ErrTurnInProgress)

	// 另一个用户不受影响
	_, err = svc.SubmitTurn(ctx, "u2", "", "", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	require.True(t, svc.Cancel("u1", ""))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("first turn did not finish after cancel")
	}
}

func TestWorkspacesAreIsolatedAndReloadable(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	ws, err := NewWorkspaces(kv, 1, 0, logger.Discard())
	require.NoError(t, err)

	a := ws.Get("alice")
	a.Memory.RecordFromText(ctx, "I live in Lahore")
	created := a.Sessions.Create(ctx)

	b := ws.Get("bob")
	assert.Empty(t, b.Memory.List(ctx))
	assert.Equal(t, 1, ws.Len())

	// alice 已被淘汰，重新加载后状态仍在
	again := ws.Get("alice")
	assert.NotSame(t, a, again)
	assert.Len(t, again.Memory.List(ctx), 1)
	assert.Equal(t, created.ID, again.Sessions.Current(ctx).ID)

	ws.Evict("alice")
	assert.NotSame(t, again, ws.Get("alice"))
}
