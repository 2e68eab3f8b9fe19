package middleware

import (
	"sync"
	"time"
)

type windowCounter struct {
	start time.Time
	count int64
}

// localLimiter is the in-process fixed-window counter used when Redis is
// not configured.
type localLimiter struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
}

const localSweepThreshold = 10000

var local = &localLimiter{counters: make(map[string]*windowCounter)}

func (l *localLimiter) incr(key string, window time.Duration) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if len(l.counters) > localSweepThreshold {
		for k, wc := range l.counters {
			if now.Sub(wc.start) > window {
				delete(l.counters, k)
			}
		}
	}

	wc, ok := l.counters[key]
	if !ok || now.Sub(wc.start) > window {
		wc = &windowCounter{start: now}
		l.counters[key] = wc
	}
	wc.count++
	return wc.count
}
