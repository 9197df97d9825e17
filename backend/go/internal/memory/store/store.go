package store

import (
	"context"

	"Koro/backend/go/internal/models"
	"Koro/backend/go/internal/storage"
	"Koro/backend/go/pkg/logger"
)

// Store 定义了记忆事实的读写接口。
type Store interface {
	Load(ctx context.Context) []models.Synapse
	Save(ctx context.Context, synapses []models.Synapse) error
	Clear(ctx context.Context) error
}

// KVStore 把记忆列表作为一个 JSON 数组保存在键值存储中。
type KVStore struct {
	kv     storage.Store
	logger *logger.Logger
}

// NewKVStore 创建 KVStore。
func NewKVStore(kv storage.Store, logger *logger.Logger) *KVStore {
	return &KVStore{kv: kv, logger: logger}
}

// Load 读取记忆列表。读取失败或内容损坏时视为没有记忆。
func (s *KVStore) Load(ctx context.Context) []models.Synapse {
	var synapses []models.Synapse
	if _, err := storage.LoadJSON(ctx, s.kv, storage.KeySynapses, &synapses); err != nil {
		s.logger.WithError(models.NewErrorInfo(err, "storage_error")).Warn("discarding unreadable synapse list")
		return nil
	}
	return synapses
}

// Save 覆盖写入记忆列表。
func (s *KVStore) Save(ctx context.Context, synapses []models.Synapse) error {
	return storage.SaveJSON(ctx, s.kv, storage.KeySynapses, synapses)
}

// Clear 删除全部记忆。
func (s *KVStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, storage.KeySynapses)
}
