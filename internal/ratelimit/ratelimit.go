// Package ratelimit 提供按调用方地址计数的滑动窗口限流器。
//
// 状态只保存在当前进程内存中，多实例部署之间不共享，进程重启后清零。
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLimit 为窗口内允许的最大请求数。
	DefaultLimit = 10
	// DefaultWindow 为滑动窗口长度。
	DefaultWindow = 60 * time.Second
)

// Limiter 记录每个 key 在窗口内的请求时间戳。
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	hits   map[string][]time.Time
}

// New returns a limiter allowing limit requests per key in the trailing window.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// SetClock 替换时间源，仅用于测试。
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	l.now = now
}

// Allow records a request for key and reports whether it fits in the window.
// Rejected requests are not recorded.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(key, now)
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return false
	}
	l.hits[key] = append(recent, now)
	return true
}

// Remaining 返回 key 在当前窗口内剩余的请求额度。
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(key, l.now())
	if len(recent) == 0 {
		delete(l.hits, key)
	} else {
		l.hits[key] = recent
	}
	remaining := l.limit - len(recent)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset 清空所有计数。
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits = make(map[string][]time.Time)
}

// prune drops timestamps older than the window; callers hold mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	stamps := l.hits[key]
	cutoff := now.Add(-l.window)
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	kept := make([]time.Time, len(stamps)-idx)
	copy(kept, stamps[idx:])
	return kept
}
