// Package engine runs a single chat turn: classify, call the generator, stream partial output.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Koro/backend/go/internal/attachment"
	"Koro/backend/go/internal/avatar"
	"Koro/backend/go/internal/i18n"
	"Koro/backend/go/internal/intent"
	"Koro/backend/go/internal/llm"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// ErrTurnFailed is returned when the generator could not be reached or broke off.
// A cancelled turn never returns it.
var ErrTurnFailed = errors.New("turn failed")

// TurnRequest is the input of RunTurn.
type TurnRequest struct {
	Prompt        string
	History       []models.ChatTurn // prior turns, chronological
	Language      models.Language
	Attachments   []models.Attachment
	MemoryContext string
	ForceLocal    bool

	// OnReasoning is called once, right after classification.
	OnReasoning func(profile models.IntentProfile, trace []string)
}

// Partial is the cumulative state delivered to the caller on every increment.
type Partial struct {
	Text      string
	Reasoning []string
	Citations []models.Citation
	Image     *models.Attachment
	Roster    []models.Character
}

// Result is the final outcome of a turn.
type Result struct {
	Text      string
	Reasoning []string
	Citations []models.Citation
	Image     *models.Attachment
	Roster    []models.Character
	Intent    models.IntentProfile
	State     State
	Duration  time.Duration
}

// Orchestrator builds outbound requests and streams the generator's output back.
type Orchestrator struct {
	gen    llm.Generator
	local  llm.Generator
	logger *logger.Logger
}

// NewOrchestrator creates an orchestrator. local serves turns that force local mode.
func NewOrchestrator(gen, local llm.Generator, logger *logger.Logger) *Orchestrator {
	if local == nil {
		local = gen
	}
	return &Orchestrator{gen: gen, local: local, logger: logger}
}

// RunTurn runs one turn. onPartial is never called after ctx is cancelled.
// Cancellation returns the partial result with State Cancelled and a nil error.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest, onPartial func(Partial)) (*Result, error) {
	start := time.Now()
	m := NewMachine()
	if err := m.Transition(StateClassifying); err != nil {
		return nil, err
	}

	profile := intent.Classify(req.Prompt, len(req.Attachments) > 0)
	res := &Result{Intent: profile, Reasoning: ReasoningTrace(profile.Mode)}
	defer func() { res.Duration = time.Since(start) }()

	if req.OnReasoning != nil {
		req.OnReasoning(profile, res.Reasoning)
	}
	if onPartial == nil {
		onPartial = func(Partial) {}
	}

	gen := o.gen
	if req.ForceLocal {
		gen = o.local
	}

	if ctx.Err() != nil {
		o.finish(m, res, StateCancelled)
		return res, nil
	}
	if profile.WantsImage() {
		return o.runImage(ctx, m, gen, req, res, onPartial)
	}
	return o.runStream(ctx, m, gen, req, res, onPartial)
}

func (o *Orchestrator) runImage(ctx context.Context, m *Machine, gen llm.Generator, req TurnRequest, res *Result, onPartial func(Partial)) (*Result, error) {
	if err := m.Transition(StateGeneratingImage); err != nil {
		return res, err
	}

	imgReq := &models.ImageRequest{Prompt: req.Prompt, AspectRatio: avatar.AspectRatio}
	if res.Intent.Mode == models.ModeAvatar {
		imgReq.Prompt = avatar.BuildPrompt(req.Prompt, avatar.DetectStyle(req.Prompt))
	}

	img, err := gen.GenerateImage(ctx, imgReq)
	if ctx.Err() != nil {
		o.finish(m, res, StateCancelled)
		return res, nil
	}
	if err != nil {
		o.finish(m, res, StateFailed)
		return res, fmt.Errorf("%w: %w", ErrTurnFailed, err)
	}

	res.Text = img.Caption
	if img.Data != "" {
		att := models.Attachment{
			ID:       uuid.NewString(),
			Kind:     models.KindImage,
			Data:     img.Data,
			MIMEType: img.MIMEType,
			Name:     "koro-synthesis",
		}
		if raw, err := attachment.Decode(att); err == nil {
			att.Size = int64(len(raw))
		}
		if att.MIMEType == "" {
			att.MIMEType = "image/png"
		}
		res.Image = &att
	}

	onPartial(Partial{Text: res.Text, Reasoning: res.Reasoning, Image: res.Image})
	o.finish(m, res, StateCompleted)
	return res, nil
}

func (o *Orchestrator) runStream(ctx context.Context, m *Machine, gen llm.Generator, req TurnRequest, res *Result, onPartial func(Partial)) (*Result, error) {
	if err := m.Transition(StateStreaming); err != nil {
		return res, err
	}

	greq := &models.GenerateContentRequest{
		Content:           BuildContents(req.History, req.Prompt, req.Attachments),
		SystemInstruction: SystemInstruction(res.Intent, req.Language, req.MemoryContext),
		Language:          req.Language,
		EnableSearch:      res.Intent.WantsSearch(),
	}

	stream, err := gen.GenerateContentStream(ctx, greq)
	if err != nil {
		if ctx.Err() != nil {
			o.finish(m, res, StateCancelled)
			return res, nil
		}
		o.finish(m, res, StateFailed)
		return res, fmt.Errorf("%w: %w", ErrTurnFailed, err)
	}

	var (
		buf       strings.Builder
		parser    RosterParser
		seen      = make(map[string]bool)
		streamErr error
	)
	rosterLen := 0

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case resp, ok := <-stream:
			if !ok || ctx.Err() != nil {
				break loop
			}
			if resp.Err != nil {
				streamErr = resp.Err
				break loop
			}
			buf.WriteString(resp.Text())
			citationsChanged := false
			for _, c := range resp.Citations {
				if c.URL == "" || seen[c.URL] {
					continue
				}
				seen[c.URL] = true
				res.Citations = append(res.Citations, c)
				citationsChanged = true
			}

			visible, roster := parser.Feed(buf.String())
			if visible == res.Text && !citationsChanged && len(roster) == rosterLen {
				continue
			}
			if ctx.Err() != nil {
				break loop
			}
			res.Text, res.Roster, rosterLen = visible, roster, len(roster)
			onPartial(Partial{
				Text:      res.Text,
				Reasoning: res.Reasoning,
				Citations: append([]models.Citation(nil), res.Citations...),
				Roster:    res.Roster,
			})
		}
	}

	if ctx.Err() != nil {
		o.finish(m, res, StateCancelled)
		return res, nil
	}
	if streamErr != nil {
		o.logger.WithError(models.NewErrorInfo(streamErr, "remote_error")).
			WithPayload(map[string]interface{}{"mode": res.Intent.Mode, "received": buf.Len()}).
			Error("generation stream broke off")
		o.finish(m, res, StateFailed)
		return res, fmt.Errorf("%w: %w", ErrTurnFailed, streamErr)
	}
	if err := parser.Err(); err != nil {
		o.logger.WithError(models.NewErrorInfo(err, "roster_parse_error")).Warn("discarding embedded character roster")
	}
	if strings.TrimSpace(res.Text) == "" && len(res.Roster) == 0 {
		res.Text = i18n.Localize(req.Language, i18n.EmptyResponse)
	}
	o.finish(m, res, StateCompleted)
	return res, nil
}

func (o *Orchestrator) finish(m *Machine, res *Result, to State) {
	if err := m.Transition(to); err != nil {
		o.logger.WithError(models.NewErrorInfo(err, "state_error")).Error("turn state machine rejected transition")
	}
	res.State = m.State()
}

// BuildContents turns the history plus the new prompt into request units.
// System turns and turns with neither text nor attachments are skipped.
func BuildContents(history []models.ChatTurn, prompt string, attachments []models.Attachment) []models.Content {
	contents := make([]models.Content, 0, len(history)+1)
	for _, t := range history {
		if t.Role == models.RoleSystem {
			continue
		}
		role := models.SpeakerUser
		if t.Role == models.RoleAssistant {
			role = models.SpeakerModel
		}
		if c, ok := toContent(role, t.Content, t.Attachments); ok {
			contents = append(contents, c)
		}
	}
	if c, ok := toContent(models.SpeakerUser, prompt, attachments); ok {
		contents = append(contents, c)
	}
	return contents
}

func toContent(role models.SpeakerRole, text string, attachments []models.Attachment) (models.Content, bool) {
	var parts []*models.Part
	for _, a := range attachments {
		data, err := attachment.Decode(a)
		if err != nil {
			continue
		}
		parts = append(parts, &models.Part{InlineData: &models.Blob{DisplayName: a.Name, Data: data, MIMEType: a.MIMEType}})
	}
	if text != "" {
		parts = append(parts, &models.Part{Text: text})
	}
	if len(parts) == 0 {
		return models.Content{}, false
	}
	return models.Content{Role: role, Parts: parts}, true
}
