// Package events 在每轮对话结束后向消息队列发布事件。
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"Koro/backend/go/internal/models"
	"Koro/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Publisher 发布对话事件。
type Publisher interface {
	PublishTurn(ctx context.Context, event models.TurnEvent) error
}

// MessageWriter 是 kafka.Writer 中被用到的部分。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher 把事件写入 Kafka 主题，以会话 ID 作为消息键。
type KafkaPublisher struct {
	writer MessageWriter
	logger *logger.Logger
}

// NewKafkaPublisher 创建 Kafka 发布者。
func NewKafkaPublisher(w MessageWriter, logger *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logger}
}

// PublishTurn 序列化并写入事件。失败只记录日志并返回错误，调用方无需处理。
func (p *KafkaPublisher) PublishTurn(ctx context.Context, event models.TurnEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化对话事件失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "user_id", Value: []byte(event.UserID)},
			{Key: "mode", Value: []byte(event.Mode)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithError(models.NewErrorInfo(err, "kafka_error")).
			WithPayload(map[string]interface{}{"session_id": event.SessionID, "turn_id": event.TurnID}).
			Warn("发布对话事件失败")
		return fmt.Errorf("写入 Kafka 失败: %w", err)
	}
	return nil
}

// NopPublisher 丢弃所有事件。
type NopPublisher struct{}

func (NopPublisher) PublishTurn(context.Context, models.TurnEvent) error { return nil }
