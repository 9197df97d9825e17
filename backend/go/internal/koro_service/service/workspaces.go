package service

import (
	"context"
	"sync"
	"time"

	"Koro/backend/go/internal/memory/extractor"
	memservice "Koro/backend/go/internal/memory/service"
	memstore "Koro/backend/go/internal/memory/store"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/internal/preferences"
	"Koro/backend/go/internal/session"
	"Koro/backend/go/internal/storage"
	"Koro/backend/go/pkg/logger"
	"Koro/backend/go/pkg/util"
)

// Workspace 聚合一个用户的全部本地状态，键都落在该用户的命名空间下。
type Workspace struct {
	UserID      string
	Sessions    *session.Repository
	Memory      *memservice.MemoryService
	Preferences *preferences.Repository
}

// Workspaces 按用户缓存 Workspace。空闲超过 ttl 或被容量挤出的工作区会被淘汰，
// 下次访问从存储重新加载。正在执行轮次的工作区被钉住，淘汰后仍由 Get 返回同一实例，
// 避免两个 Repository 快照互相覆盖。
type Workspaces struct {
	mu        sync.Mutex
	cache     *util.LRUCache[string, *Workspace]
	pinned    map[string]*pin
	kv        storage.Store
	extractor extractor.Extractor
	logger    *logger.Logger
}

type pin struct {
	ws   *Workspace
	refs int
}

// NewWorkspaces 创建工作区缓存。capacity 不大于 0 时使用 256，ttl 为空闲过期时间，0 表示不过期。
func NewWorkspaces(kv storage.Store, capacity int, ttl time.Duration, logger *logger.Logger) (*Workspaces, error) {
	if capacity <= 0 {
		capacity = 256
	}
	w := &Workspaces{
		pinned:    make(map[string]*pin),
		kv:        kv,
		extractor: extractor.NewPatternExtractor(),
		logger:    logger,
	}
	cache, err := util.NewWithConfig(util.CacheConfig[string, *Workspace]{
		Capacity: capacity,
		TTL:      ttl,
		Sliding:  true,
		OnEvict: func(userID string, _ *Workspace) {
			w.logger.WithUser(userID).Debug("工作区已淘汰")
		},
	})
	if err != nil {
		return nil, err
	}
	w.cache = cache
	return w, nil
}

// Get 返回用户的工作区，不存在时创建。
func (w *Workspaces) Get(userID string) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.get(userID)
}

// Acquire 返回用户的工作区并钉住它，直到调用返回的 release。release 可重复调用。
func (w *Workspaces) Acquire(userID string) (*Workspace, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ws := w.get(userID)
	p, ok := w.pinned[userID]
	if !ok {
		p = &pin{ws: ws}
		w.pinned[userID] = p
	}
	p.refs++

	var once sync.Once
	return ws, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			p.refs--
			if p.refs == 0 && w.pinned[userID] == p {
				delete(w.pinned, userID)
			}
		})
	}
}

// get 调用方持有 w.mu。
func (w *Workspaces) get(userID string) *Workspace {
	if p, ok := w.pinned[userID]; ok {
		if cached, ok := w.cache.Get(userID); !ok || cached != p.ws {
			w.cache.Put(userID, p.ws, 1)
		}
		return p.ws
	}
	if ws, ok := w.cache.Get(userID); ok {
		return ws
	}

	kv := storage.Namespaced(w.kv, "user:"+userID+":")
	log := w.logger.WithUser(userID)
	prefs := preferences.NewRepository(kv, log)
	ws := &Workspace{
		UserID:      userID,
		Preferences: prefs,
		Memory:      memservice.NewMemoryService(w.extractor, memstore.NewKVStore(kv, log), log),
		Sessions: session.NewRepository(kv, log, func(ctx context.Context) models.Language {
			return prefs.Load(ctx).Language
		}),
	}
	w.cache.Put(userID, ws, 1)
	return ws
}

// Evict 丢弃缓存的工作区，例如在用户登出后。被钉住的工作区在释放前仍然有效。
func (w *Workspaces) Evict(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cache.Remove(userID)
}

// Len 返回缓存中的工作区数量。
func (w *Workspaces) Len() int {
	return w.cache.Len()
}

// Pinned 返回正在使用中的工作区数量。
func (w *Workspaces) Pinned() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pinned)
}
