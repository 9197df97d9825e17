package llm

import (
	"context"
	"errors"
	"time"

	"Koro/backend/go/internal/config"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/pkg/circuitbreaker"
)

// breakerGenerator 用熔断器包装生成器。流的结果在通道关闭时才确定，因此使用两段式的 Allow。
type breakerGenerator struct {
	inner   Generator
	breaker circuitbreaker.CircuitBreaker
}

// WithCircuitBreaker 为生成器加上熔断保护。用户取消不计为失败。
func WithCircuitBreaker(inner Generator, cfg config.CircuitBreakerConfig) Generator {
	timeout := config.ParseDurationOr(cfg.Timeout, 30*time.Second)
	cb := circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout,
		circuitbreaker.WithIsSuccessful(func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrImageUnsupported) || errors.Is(err, ErrSpeechUnsupported)
		}))
	return &breakerGenerator{inner: inner, breaker: cb}
}

func (b *breakerGenerator) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	done, err := b.breaker.Allow()
	if err != nil {
		return nil, err
	}
	src, err := b.inner.GenerateContentStream(ctx, req)
	if err != nil {
		done(err)
		return nil, err
	}

	out := make(chan *models.GenerateContentResponse)
	go func() {
		defer close(out)
		var streamErr error
		defer func() {
			if streamErr == nil && ctx.Err() != nil {
				streamErr = ctx.Err()
			}
			done(streamErr)
		}()
		for resp := range src {
			if resp.Err != nil {
				streamErr = resp.Err
			}
			if !send(ctx, out, resp) {
				// 排空上游，让其 goroutine 退出
				for range src {
				}
				return
			}
		}
	}()
	return out, nil
}

func (b *breakerGenerator) GenerateImage(ctx context.Context, req *models.ImageRequest) (*models.ImageResponse, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.GenerateImage(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return res.(*models.ImageResponse), nil
}

// Synthesize 在被包装的生成器支持语音时透传。
func (b *breakerGenerator) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	synth, ok := b.inner.(SpeechSynthesizer)
	if !ok {
		return nil, ErrSpeechUnsupported
	}
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return synth.Synthesize(ctx, text, voice)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}
