package kafka

import (
	"fmt"
	"log"
	"sync"
	"time"

	"Koro/backend/go/internal/config"

	"github.com/segmentio/kafka-go"
)

var (
	writer  *kafka.Writer
	once    sync.Once
	initErr error
)

// GetWriter 使用单例模式初始化对话事件主题的 Writer。
// 首次调用时会检查主题是否存在，不存在则创建。
func GetWriter(cfg *config.KafkaConfig) (*kafka.Writer, error) {
	once.Do(func() {
		if len(cfg.Brokers) == 0 {
			initErr = fmt.Errorf("未配置 Kafka brokers")
			return
		}
		if cfg.Topic == "" {
			initErr = fmt.Errorf("未配置 Kafka topic")
			return
		}

		if err := ensureTopic(cfg.Brokers[0], cfg.Topic); err != nil {
			initErr = err
			return
		}

		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{}, // 同一会话的事件落在同一分区，保持顺序
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
		}
		log.Println("成功初始化 Kafka writer")
	})
	return writer, initErr
}

// ensureTopic 通过管理连接创建缺失的主题。
func ensureTopic(broker, topic string) error {
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		return fmt.Errorf("kafka 初始化连接失败: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	for _, p := range partitions {
		if p.Topic == topic {
			return nil
		}
	}

	log.Printf("主题 '%s' 不存在，准备创建...", topic)
	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	return nil
}

// Close 关闭单例 Writer。
func Close() error {
	if writer != nil {
		return writer.Close()
	}
	return nil
}
