package middleware

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int64
}

// localLimiter is the fixed-window counter used when Redis is not
// configured. Counts are per process.
type localLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{windows: make(map[string]*window)}
}

func (l *localLimiter) hit(key string, size time.Duration) int64 {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) > size {
		// drop stale windows so the map doesn't grow without bound
		if len(l.windows) > 10000 {
			for k, old := range l.windows {
				if now.Sub(old.start) > size {
					delete(l.windows, k)
				}
			}
		}
		l.windows[key] = &window{start: now, count: 1}
		return 1
	}
	w.count++
	return w.count
}
