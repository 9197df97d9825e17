package llm

import (
	"context"
	"errors"
	"fmt"

	"Koro/backend/go/internal/config"
	"Koro/backend/go/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini 是一个通过 generative-ai-go SDK 与 Gemini API 交互的生成器。
// 该 SDK 不支持联网检索与图像输出，只承担纯文本对话。
type Gemini struct {
	client      *genai.Client
	modelName   string
	temperature float32
	topP        float32
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	cfg: 模型名称、API 密钥与采样参数。
//
// 返回值:
//
//	*Gemini: 新创建的 Gemini 客户端实例。
//	error: 如果无法创建 GenAI 客户端，则返回错误。
func NewGemini(ctx context.Context, cfg config.LLMConfig) (*Gemini, error) {
	// 使用 API 密钥创建 GenAI 客户端。
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client:      client,
		modelName:   cfg.ChatModel,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}, nil
}

// GenerateContentStream 向 Gemini API 发送请求并返回响应通道。
// 每次调用都新建一个聊天会话，请求中除最后一条之外的内容作为历史。
//
// 参数:
//
//	ctx: 上下文，用于控制请求的生命周期。
//	req: 生成内容请求。
//
// 返回值:
//
//	<-chan *GenerateContentResponse: 接收流式响应的通道。
//	error: 如果请求为空，则返回错误。
func (g *Gemini) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	contents := toGeminiContents(req.Content)
	if len(contents) == 0 {
		return nil, errors.New("empty request content")
	}

	model := g.client.GenerativeModel(g.modelName)
	if req.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	}
	temperature, topP := g.temperature, g.topP
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	if req.TopP > 0 {
		topP = req.TopP
	}
	model.SetTemperature(temperature)
	model.SetTopP(topP)

	chatSession := model.StartChat()
	last := contents[len(contents)-1]
	chatSession.History = contents[:len(contents)-1]

	ch := make(chan *models.GenerateContentResponse) // 创建用于发送响应的通道。
	iter := chatSession.SendMessageStream(ctx, last.Parts...)

	// 启动一个 goroutine 来处理流式响应。
	go func() {
		defer close(ch) // 确保在 goroutine 退出时关闭通道。
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return // 流结束。
			}
			if err != nil {
				if ctx.Err() == nil {
					send(ctx, ch, &models.GenerateContentResponse{Err: fmt.Errorf("gemini stream: %w", err)})
				}
				return
			}
			if !send(ctx, ch, fromGeminiResponse(resp)) {
				return
			}
		}
	}()

	return ch, nil
}

// GenerateImage 不被该 SDK 支持。
func (g *Gemini) GenerateImage(context.Context, *models.ImageRequest) (*models.ImageResponse, error) {
	return nil, ErrImageUnsupported
}

// Close 释放底层连接。
func (g *Gemini) Close() error {
	return g.client.Close()
}

// toGeminiContents 将内部 Content 转换为 GenAI Content，空内容被丢弃。
func toGeminiContents(content []models.Content) []*genai.Content {
	var out []*genai.Content
	for _, c := range content {
		var parts []genai.Part
		for _, p := range c.Parts {
			if p.InlineData != nil {
				parts = append(parts, genai.Blob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data})
			} else if p.Text != "" {
				parts = append(parts, genai.Text(p.Text))
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, &genai.Content{Role: string(c.Role), Parts: parts})
	}
	return out
}

// fromGeminiResponse 将 GenAI 响应转换为内部增量，引用来源被映射为 Citation。
func fromGeminiResponse(resp *genai.GenerateContentResponse) *models.GenerateContentResponse {
	out := &models.GenerateContentResponse{}
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			c := models.Content{Role: models.SpeakerModel}
			for _, p := range cand.Content.Parts {
				switch v := p.(type) {
				case genai.Text:
					c.Parts = append(c.Parts, &models.Part{Text: string(v)})
				case genai.Blob:
					c.Parts = append(c.Parts, &models.Part{InlineData: &models.Blob{MIMEType: v.MIMEType, Data: v.Data}})
				}
			}
			out.Content = append(out.Content, c)
		}
		if cand.CitationMetadata != nil {
			for _, src := range cand.CitationMetadata.CitationSources {
				if src == nil || src.URI == nil || *src.URI == "" {
					continue
				}
				out.Citations = append(out.Citations, models.Citation{URL: *src.URI, Title: *src.URI})
			}
		}
	}
	return out
}
