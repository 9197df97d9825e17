package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"Koro/backend/go/internal/config"
	"Koro/backend/go/internal/models"

	"google.golang.org/genai"
)

// GenAI 使用 google.golang.org/genai 访问 Gemini，支持流式文本、联网检索、图像与语音。
type GenAI struct {
	client      *genai.Client
	chatModel   string
	imageModel  string
	speechModel string
	temperature float32
	topP        float32
}

// NewGenAI 创建一个新的 GenAI 客户端。
func NewGenAI(ctx context.Context, cfg config.LLMConfig) (*GenAI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAI{
		client:      client,
		chatModel:   cfg.ChatModel,
		imageModel:  cfg.ImageModel,
		speechModel: cfg.SpeechModel,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}, nil
}

// GenerateContentStream 以流式方式生成内容。
func (g *GenAI) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	contents := toGenAIContents(req.Content)
	if len(contents) == 0 {
		return nil, errors.New("empty request content")
	}

	temperature, topP := g.temperature, g.topP
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	if req.TopP > 0 {
		topP = req.TopP
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
		TopP:        genai.Ptr(topP),
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.EnableSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	ch := make(chan *models.GenerateContentResponse)
	go func() {
		defer close(ch)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.chatModel, contents, cfg) {
			if err != nil {
				if ctx.Err() == nil {
					send(ctx, ch, &models.GenerateContentResponse{Err: err})
				}
				return
			}
			if !send(ctx, ch, fromGenAIResponse(resp)) {
				return
			}
		}
	}()
	return ch, nil
}

// GenerateImage 发起单次图像生成调用。
func (g *GenAI) GenerateImage(ctx context.Context, req *models.ImageRequest) (*models.ImageResponse, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
	if req.AspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: req.AspectRatio}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	out := &models.ImageResponse{}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch {
			case part == nil:
			case part.InlineData != nil && out.Data == "":
				out.Data = base64.StdEncoding.EncodeToString(part.InlineData.Data)
				out.MIMEType = part.InlineData.MIMEType
			case part.Text != "" && !part.Thought:
				out.Caption += part.Text
			}
		}
	}
	if out.Data == "" {
		return nil, errors.New("image generation returned no image data")
	}
	return out, nil
}

// Synthesize 使用预置音色把文本合成为 PCM 音频。
func (g *GenAI) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.speechModel, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, errors.New("speech synthesis returned no audio data")
}

func toGenAIContents(content []models.Content) []*genai.Content {
	out := make([]*genai.Content, 0, len(content))
	for _, c := range content {
		var parts []*genai.Part
		for _, p := range c.Parts {
			switch {
			case p.InlineData != nil:
				parts = append(parts, genai.NewPartFromBytes(p.InlineData.Data, p.InlineData.MIMEType))
			case p.Text != "":
				parts = append(parts, genai.NewPartFromText(p.Text))
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, &genai.Content{Role: string(c.Role), Parts: parts})
	}
	return out
}

func fromGenAIResponse(resp *genai.GenerateContentResponse) *models.GenerateContentResponse {
	out := &models.GenerateContentResponse{}
	if resp == nil {
		return out
	}
	out.CreateTime = resp.CreateTime
	out.ModelVersion = resp.ModelVersion
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		if cand.Content != nil {
			c := models.Content{Role: models.SpeakerModel}
			for _, p := range cand.Content.Parts {
				if p == nil {
					continue
				}
				part := &models.Part{Text: p.Text, Thought: p.Thought}
				if p.InlineData != nil {
					part.InlineData = &models.Blob{Data: p.InlineData.Data, MIMEType: p.InlineData.MIMEType}
				}
				c.Parts = append(c.Parts, part)
			}
			out.Content = append(out.Content, c)
		}
		if cand.GroundingMetadata != nil {
			for _, chunk := range cand.GroundingMetadata.GroundingChunks {
				if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
					continue
				}
				out.Citations = append(out.Citations, models.Citation{URL: chunk.Web.URI, Title: chunk.Web.Title})
			}
		}
	}
	return out
}
