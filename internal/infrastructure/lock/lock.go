package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrLockFailed = errors.New("acquire lock failed")

// Locker serialises work on a key. Acquire blocks until the lock is held or
// ctx is done; the returned release func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key, owner string) (release func(), err error)
}

// AccountKey is the lock key guarding one child's points account.
func AccountKey(childID int64) string {
	return fmt.Sprintf("points:lock:account:%d", childID)
}

// LocalLocker is an in-process Locker. It is enough for a single server
// instance; multi-instance deployments use RedisLocker.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key, _ string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}, nil
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
