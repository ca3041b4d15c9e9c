package chatstore

import "sync"

// Registry hands out one Store per Telegram chat.
type Registry struct {
	mu     sync.Mutex
	stores map[int64]*Store
}

func NewRegistry() *Registry {
	return &Registry{stores: make(map[int64]*Store)}
}

func (r *Registry) For(chatID int64) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[chatID]
	if !ok {
		st = New()
		r.stores[chatID] = st
	}
	return st
}

// Drop discards a chat's store, e.g. on logout or when a guest restarts.
func (r *Registry) Drop(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, chatID)
}
