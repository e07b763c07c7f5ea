package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter 累计计数 + 滑动窗口速率
type Counter struct {
	total int64 // 原子操作

	mu             sync.RWMutex
	current        *window
	previous       *window
	windowDuration time.Duration
	now            func() time.Time
}

// window 时间窗口
type window struct {
	count     int64
	startTime time.Time
}

// NewCounter 创建计数器，windowDuration 为 0 时使用 60 秒窗口
func NewCounter(windowDuration time.Duration) *Counter {
	return newCounter(windowDuration, time.Now)
}

func newCounter(windowDuration time.Duration, now func() time.Time) *Counter {
	if windowDuration <= 0 {
		windowDuration = 60 * time.Second
	}
	start := now()
	return &Counter{
		windowDuration: windowDuration,
		now:            now,
		current:        &window{startTime: start},
		previous:       &window{startTime: start.Add(-windowDuration)},
	}
}

// Increment 计数加一
func (c *Counter) Increment() {
	atomic.AddInt64(&c.total, 1)

	c.mu.Lock()
	c.rotateLocked(c.now())
	c.current.count++
	c.mu.Unlock()
}

// Total 累计次数
func (c *Counter) Total() int64 {
	return atomic.LoadInt64(&c.total)
}

// Rate 每秒次数，窗口刚开始时与上一窗口加权平均
func (c *Counter) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.rotateLocked(now)

	elapsed := now.Sub(c.current.startTime).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	windowSeconds := c.windowDuration.Seconds()
	currentRate := float64(c.current.count) / elapsed

	if elapsed < windowSeconds {
		prevWeight := (windowSeconds - elapsed) / windowSeconds
		prevRate := float64(c.previous.count) / windowSeconds
		return currentRate*(1-prevWeight) + prevRate*prevWeight
	}
	return currentRate
}

// rotateLocked 按需滚动窗口，超过两个窗口未使用时上一窗口清零
func (c *Counter) rotateLocked(now time.Time) {
	elapsed := now.Sub(c.current.startTime)
	if elapsed < c.windowDuration {
		return
	}

	if elapsed >= 2*c.windowDuration {
		c.previous = &window{startTime: now.Add(-c.windowDuration)}
	} else {
		c.previous = c.current
	}
	c.current = &window{startTime: now}
}
