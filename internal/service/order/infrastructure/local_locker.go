package infrastructure

import (
	"context"
	"sync"
)

// LocalOrderLocker 单进程内的按订单互斥锁，等待时响应 ctx 取消
type LocalOrderLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalOrderLocker() *LocalOrderLocker {
	return &LocalOrderLocker{slots: make(map[string]*slot)}
}

func (l *LocalOrderLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[orderID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[orderID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(orderID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(orderID, s)
		})
	}, nil
}

// unref 没有等待者时回收该订单的槽位
func (l *LocalOrderLocker) unref(orderID string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, orderID)
	}
}
