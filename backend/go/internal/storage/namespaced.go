package storage

import "context"

// namespaced 为所有键加上前缀，使不同用户的状态互不干扰。
type namespaced struct {
	prefix string
	inner  Store
}

// Namespaced 返回一个给键加前缀的 Store。
func Namespaced(inner Store, prefix string) Store {
	return &namespaced{prefix: prefix, inner: inner}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}
