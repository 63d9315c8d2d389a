package engine

import (
	"sync"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/queue"
)

// itemLocks serializes mutations per item. Entries are dropped once no
// caller holds or waits for them.
type itemLocks struct {
	mu    sync.Mutex
	locks map[queue.ItemKey]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

func (l *itemLocks) lock(key queue.ItemKey) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[queue.ItemKey]*itemLock)
	}
	il, ok := l.locks[key]
	if !ok {
		il = &itemLock{}
		l.locks[key] = il
	}
	il.refs++
	l.mu.Unlock()

	il.mu.Lock()
	return func() {
		il.mu.Unlock()
		l.mu.Lock()
		il.refs--
		if il.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *itemLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
