package auth

import (
	"sync"
	"time"
)

// ExpiredEvent 会话失效广播。HadUser 为 false 时订阅方不应打扰匿名访客。
type ExpiredEvent struct {
	Message string
	HadUser bool
	At      time.Time
}

// ExpiredListener 会话失效回调。
type ExpiredListener func(ExpiredEvent)

// Broadcaster 进程内的会话失效广播。
type Broadcaster struct {
	mu        sync.RWMutex
	seq       int
	listeners []listenerEntry
}

type listenerEntry struct {
	id int
	fn ExpiredListener
}

// NewBroadcaster 创建广播器。
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe 注册回调，返回取消订阅函数（可重复调用）。
func (b *Broadcaster) Subscribe(fn ExpiredListener) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	id := b.seq
	b.listeners = append(b.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, l := range b.listeners {
			if l.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Publish 按注册顺序同步通知所有订阅方。
func (b *Broadcaster) Publish(ev ExpiredEvent) {
	b.mu.RLock()
	listeners := make([]listenerEntry, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		l.fn(ev)
	}
}

// Len 返回当前订阅数量。
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
