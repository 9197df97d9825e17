package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Koro/backend/go/internal/models"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于本地 Ollama 服务的生成器。
type Ollama struct {
	client      *olla.Client // Ollama 客户端实例。
	model       string       // 要使用的模型名称。
	temperature float32
	topP        float32
}

// NewOllama 创建一个新的 Ollama 客户端。
//
// 参数:
//
//	model: 要使用的模型名称。
//	baseURL: Ollama 服务的基准 URL。如果为空，则默认为 "http://localhost:11434"。
//
// 返回值:
//
//	*Ollama: 新创建的 Ollama 客户端实例。
//	error: 如果基准 URL 无效，则返回错误。
func NewOllama(model, baseURL string, temperature, topP float32) (*Ollama, error) {
	// 如果 baseURL 为空，则使用默认地址。
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	// 流式响应可能持续较久，超时只覆盖单次请求。
	hc := &http.Client{
		Timeout: 120 * time.Second,
	}

	return &Ollama{
		client:      olla.NewClient(parsedURL, hc),
		model:       model,
		temperature: temperature,
		topP:        topP,
	}, nil
}

// GenerateContentStream 使用 Ollama 的 Chat 接口以流式方式生成内容。
// Ollama 不支持联网检索，EnableSearch 被忽略。
func (o *Ollama) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	messages := toOllamaMessages(req)
	if len(messages) == 0 {
		return nil, errors.New("empty request content")
	}

	temperature, topP := o.temperature, o.topP
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	if req.TopP > 0 {
		topP = req.TopP
	}
	stream := true
	chatReq := &olla.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": temperature,
			"top_p":       topP,
		},
	}

	respChan := make(chan *models.GenerateContentResponse)
	go func() {
		defer close(respChan)

		err := o.client.Chat(ctx, chatReq, func(resp olla.ChatResponse) error {
			if !send(ctx, respChan, fromOllamaResponse(resp)) {
				return ctx.Err()
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			send(ctx, respChan, &models.GenerateContentResponse{Err: fmt.Errorf("ollama chat: %w", err)})
		}
	}()

	return respChan, nil
}

// GenerateImage 不被 Ollama 支持。
func (o *Ollama) GenerateImage(context.Context, *models.ImageRequest) (*models.ImageResponse, error) {
	return nil, ErrImageUnsupported
}

// toOllamaMessages 把系统指令与对话内容转换为 Ollama 消息，图片作为 Images 附带。
func toOllamaMessages(req *models.GenerateContentRequest) []olla.Message {
	var messages []olla.Message
	if req.SystemInstruction != "" {
		messages = append(messages, olla.Message{Role: "system", Content: req.SystemInstruction})
	}
	for _, c := range req.Content {
		msg := olla.Message{Role: "user"}
		if c.Role == models.SpeakerModel {
			msg.Role = "assistant"
		}
		for _, p := range c.Parts {
			if p.InlineData != nil {
				if strings.HasPrefix(p.InlineData.MIMEType, "image/") {
					msg.Images = append(msg.Images, olla.ImageData(p.InlineData.Data))
				}
				continue
			}
			msg.Content += p.Text
		}
		if msg.Content == "" && len(msg.Images) == 0 {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// fromOllamaResponse 将 Ollama 的流式响应转换为内部增量。
func fromOllamaResponse(resp olla.ChatResponse) *models.GenerateContentResponse {
	c := models.Content{Role: models.SpeakerModel}
	if resp.Message.Thinking != "" {
		c.Parts = append(c.Parts, &models.Part{Text: resp.Message.Thinking, Thought: true})
	}
	c.Parts = append(c.Parts, &models.Part{Text: resp.Message.Content})
	return &models.GenerateContentResponse{
		Content:      []models.Content{c},
		CreateTime:   resp.CreatedAt,
		ModelVersion: resp.Model,
	}
}
