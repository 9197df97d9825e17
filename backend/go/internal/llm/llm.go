package llm

import (
	"context"
	"errors"
	"fmt"

	"Koro/backend/go/internal/config"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/pkg/logger"
)

var (
	// ErrImageUnsupported 表示当前提供方不能生成图像。
	ErrImageUnsupported = errors.New("image generation is not supported by this provider")
	// ErrSpeechUnsupported 表示当前提供方不能合成语音。
	ErrSpeechUnsupported = errors.New("speech synthesis is not supported by this provider")
)

// Generator 定义了所有远程生成服务客户端必须实现的通用接口。
//
// GenerateContentStream 返回的通道在流结束时关闭。流中途失败时，最后一个元素的 Err 非空。
// ctx 取消后实现必须停止发送并关闭通道。
type Generator interface {
	GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error)
	GenerateImage(ctx context.Context, req *models.ImageRequest) (*models.ImageResponse, error)
}

// SpeechSynthesizer 把文本合成为原始 PCM 音频（16 位单声道）。
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// NewClient 是一个工厂函数，根据配置创建生成客户端。
// 需要凭据的提供方在凭据缺失或为占位值时退化为本地回退生成器，强制本地模式同样如此。
func NewClient(ctx context.Context, cfg config.LLMConfig, log *logger.Logger) (Generator, error) {
	local := NewLocal(cfg.WordDelay())

	provider := cfg.Provider
	if cfg.ForceLocal {
		provider = "local"
	}

	var gen Generator
	switch provider {
	case "", "genai":
		if !cfg.CredentialConfigured() {
			log.Warn("no usable credential configured, using local fallback generator")
			return local, nil
		}
		g, err := NewGenAI(ctx, cfg)
		if err != nil {
			return nil, err
		}
		gen = g
	case "gemini":
		if !cfg.CredentialConfigured() {
			log.Warn("no usable credential configured, using local fallback generator")
			return local, nil
		}
		g, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, err
		}
		gen = g
	case "openai":
		if !(config.LLMConfig{APIKey: cfg.OpenAIKey()}).CredentialConfigured() {
			log.Warn("no usable OpenAI credential configured, using local fallback generator")
			return local, nil
		}
		g, err := NewOpenAI(cfg.OpenAI.Model, cfg.OpenAIKey(), cfg.OpenAI.BaseURL)
		if err != nil {
			return nil, err
		}
		gen = g
	case "ollama":
		g, err := NewOllama(cfg.Ollama.Model, cfg.Ollama.BaseURL, cfg.Temperature, cfg.TopP)
		if err != nil {
			return nil, err
		}
		gen = g
	case "local":
		return local, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if cfg.Breaker.Enabled {
		gen = WithCircuitBreaker(gen, cfg.Breaker)
	}
	return gen, nil
}

// send 在 ctx 取消前把响应写入通道，返回是否写入成功。
func send(ctx context.Context, ch chan<- *models.GenerateContentResponse, resp *models.GenerateContentResponse) bool {
	select {
	case ch <- resp:
		return true
	case <-ctx.Done():
		return false
	}
}

// textResponse 构造只含一段模型文本的增量。
func textResponse(text string) *models.GenerateContentResponse {
	return &models.GenerateContentResponse{
		Content: []models.Content{{
			Parts: []*models.Part{{Text: text}},
			Role:  models.SpeakerModel,
		}},
	}
}
