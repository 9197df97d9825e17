package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"Koro/backend/go/internal/models"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 是一个用于 OpenAI 兼容接口的生成器。
type OpenAI struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 要使用的模型名称。
}

// NewOpenAI 创建一个新的 OpenAI 客户端。baseURL 为空时使用官方地址。
func NewOpenAI(model, apiKey, baseURL string) (*OpenAI, error) {
	if model == "" {
		return nil, errors.New("openai model is required")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// GenerateContentStream 使用 Chat Completions 接口以流式方式生成内容。
// 采样参数使用服务端默认值，EnableSearch 被忽略。
func (o *OpenAI) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	openaiReq := o.toOpenAIRequest(req)
	if len(openaiReq.Messages) == 0 {
		return nil, errors.New("empty request content")
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion stream: %w", err)
	}

	respChan := make(chan *models.GenerateContentResponse)
	go func() {
		defer close(respChan)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					send(ctx, respChan, &models.GenerateContentResponse{Err: fmt.Errorf("openai stream: %w", err)})
				}
				return
			}
			delta := fromOpenAIStream(resp)
			if delta == nil {
				continue
			}
			if !send(ctx, respChan, delta) {
				return
			}
		}
	}()

	return respChan, nil
}

// GenerateImage 不被 Chat Completions 接口支持。
func (o *OpenAI) GenerateImage(context.Context, *models.ImageRequest) (*models.ImageResponse, error) {
	return nil, ErrImageUnsupported
}

// toOpenAIRequest 将内部请求转换为 OpenAI 格式。
func (o *OpenAI) toOpenAIRequest(req *models.GenerateContentRequest) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(req),
		Stream:   true,
	}
}

// toOpenAIMessages 把系统指令与对话内容转换为消息。
// 只含文本的单元使用 Content，带图片的单元改用 MultiContent 并以 data URL 内联图片。
func toOpenAIMessages(req *models.GenerateContentRequest) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	for _, c := range req.Content {
		role := openai.ChatMessageRoleUser
		if c.Role == models.SpeakerModel {
			role = openai.ChatMessageRoleAssistant
		}

		var text strings.Builder
		var parts []openai.ChatMessagePart
		for _, p := range c.Parts {
			if p.InlineData != nil {
				// 助手消息不能携带图片，其他类型的附件没有对应的输入格式
				if role == openai.ChatMessageRoleUser && strings.HasPrefix(p.InlineData.MIMEType, "image/") {
					parts = append(parts, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:" + p.InlineData.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.InlineData.Data),
						},
					})
				}
				continue
			}
			if p.Thought {
				continue
			}
			text.WriteString(p.Text)
		}

		switch {
		case len(parts) > 0:
			if text.Len() > 0 {
				parts = append([]openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: text.String()}}, parts...)
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: role, MultiContent: parts})
		case text.Len() > 0:
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: text.String()})
		}
	}
	return messages
}

// fromOpenAIStream 将流式响应转换为内部增量，没有文本的块返回 nil。
func fromOpenAIStream(resp openai.ChatCompletionStreamResponse) *models.GenerateContentResponse {
	var sb strings.Builder
	for _, choice := range resp.Choices {
		sb.WriteString(choice.Delta.Content)
	}
	if sb.Len() == 0 {
		return nil
	}
	delta := textResponse(sb.String())
	delta.ModelVersion = resp.Model
	return delta
}
