package dispatch

import (
	"context"
	"sync"
)

// lanes serialize work per chat: the next message of a chat is sent only
// after the previous reply was integrated.
type lanes struct {
	mu sync.Mutex
	m  map[int64]*lane
}

type lane struct {
	sem  chan struct{}
	refs int
}

func newLanes() *lanes {
	return &lanes{m: make(map[int64]*lane)}
}

func (ls *lanes) acquire(ctx context.Context, key int64) (func(), error) {
	ls.mu.Lock()
	l, ok := ls.m[key]
	if !ok {
		l = &lane{sem: make(chan struct{}, 1)}
		ls.m[key] = l
	}
	l.refs++
	ls.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			ls.leave(key, l)
		}, nil
	case <-ctx.Done():
		ls.leave(key, l)
		return nil, ctx.Err()
	}
}

func (ls *lanes) leave(key int64, l *lane) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(ls.m, key)
	}
}

// busy reports whether a send is running or queued for key.
func (ls *lanes) busy(key int64) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	_, ok := ls.m[key]
	return ok
}
