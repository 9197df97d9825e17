package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"Koro/backend/go/internal/memory/extractor"
	"Koro/backend/go/internal/memory/store"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MaxSynapses 是保留的记忆条数上限，超出时淘汰最早的记忆。
const MaxSynapses = 20

const contextHeader = "\n\nCRITICAL USER MEMORIES (SYNAPSES):\n"

// MemoryService 管理单个用户的记忆列表。
// 所有方法都不返回错误：存储故障只记录日志，调用方看到的是安全的默认值。
type MemoryService struct {
	mu        sync.Mutex
	extractor extractor.Extractor
	store     store.Store
	logger    *logger.Logger
	now       func() time.Time
}

// NewMemoryService 创建一个新的 MemoryService。
func NewMemoryService(ex extractor.Extractor, st store.Store, logger *logger.Logger) *MemoryService {
	return &MemoryService{
		extractor: ex,
		store:     st,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordFromText 扫描用户输入，把命中的片段作为新记忆写入，返回本次新增的记忆。
func (s *MemoryService) RecordFromText(ctx context.Context, text string) []models.Synapse {
	matches := s.extractor.Extract(text)
	if len(matches) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.store.Load(ctx)
	var added []models.Synapse
	for _, m := range matches {
		key := strings.ToLower(m.Fact)
		if lo.ContainsBy(current, func(syn models.Synapse) bool { return strings.ToLower(syn.Fact) == key }) {
			continue
		}
		syn := models.Synapse{
			ID:         uuid.NewString(),
			Fact:       m.Fact,
			Importance: m.Importance,
			Timestamp:  s.now().UnixMilli(),
		}
		current = append([]models.Synapse{syn}, current...)
		added = append(added, syn)
	}
	if len(added) == 0 {
		return nil
	}
	if len(current) > MaxSynapses {
		current = current[:MaxSynapses]
	}
	s.persist(ctx, current)
	return added
}

// List 返回当前全部记忆，最新的在前。
func (s *MemoryService) List(ctx context.Context) []models.Synapse {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.store.Load(ctx)
	if list == nil {
		return []models.Synapse{}
	}
	return list
}

// Remove 删除一条记忆，返回是否存在。
func (s *MemoryService) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.store.Load(ctx)
	filtered := lo.Reject(current, func(syn models.Synapse, _ int) bool { return syn.ID == id })
	if len(filtered) == len(current) {
		return false
	}
	s.persist(ctx, filtered)
	return true
}

// Clear 删除全部记忆。
func (s *MemoryService) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		s.logger.WithError(models.NewErrorInfo(err, "storage_error")).Error("failed to clear synapses")
	}
}

// Context 把记忆渲染为系统指令的附加段落，没有记忆时返回空串。
func (s *MemoryService) Context(ctx context.Context) string {
	list := s.List(ctx)
	if len(list) == 0 {
		return ""
	}
	lines := lo.Map(list, func(syn models.Synapse, _ int) string { return "- " + syn.Fact })
	return contextHeader + strings.Join(lines, "\n")
}

func (s *MemoryService) persist(ctx context.Context, synapses []models.Synapse) {
	if err := s.store.Save(ctx, synapses); err != nil {
		s.logger.WithError(models.NewErrorInfo(err, "storage_error")).Error("failed to persist synapses")
	}
}
