package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"Koro/backend/go/internal/config"
	"Koro/backend/go/internal/database/mongo"
	"Koro/backend/go/internal/database/redis"
)

// 持久化状态使用的键。
const (
	KeySessions      = "koro_v2_store"
	KeySynapses      = "koro_neural_synapses"
	KeyPreferences   = "koro_preferences"
	KeyForceLocal    = "koro_force_mock"
	KeyLocalOperator = "koro_local_operator"
)

// ErrUnsupportedBackend 表示配置了未知的存储后端。
var ErrUnsupportedBackend = errors.New("unsupported storage backend")

// Store 是一个简单的键值存储，对应浏览器中的 localStorage。
type Store interface {
	// Get 返回键对应的值，键不存在时 ok 为 false。
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// NewStore 根据配置创建存储后端。
func NewStore(ctx context.Context, cfg *config.AppConfig) (Store, error) {
	switch cfg.Storage.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Storage.Dir)
	case "redis":
		client, err := redis.GetClient(&cfg.Databases.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client), nil
	case "mongodb":
		coll, err := mongo.KVCollection(ctx, &cfg.Databases.MongoDB)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(coll), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, cfg.Storage.Backend)
	}
}

// LoadJSON 读取并解码 JSON 值。键不存在返回 false；内容损坏时返回解码错误，由调用方决定是否当作空值。
func LoadJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON 将值编码为 JSON 后写入。
func SaveJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
