package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// manualClock 手动推进的时钟
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func TestCounter_Increment(t *testing.T) {
	counter := NewCounter(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter.Increment()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), counter.Total())
}

func TestCounter_Rate(t *testing.T) {
	clock := newManualClock()
	counter := newCounter(10*time.Second, clock.Now)

	for i := 0; i < 100; i++ {
		counter.Increment()
	}
	clock.Advance(10 * time.Second)
	// 新窗口按 1 秒计，上一窗口 10/s 权重 0.9
	assert.InDelta(t, 9.0, counter.Rate(), 0.001)

	clock.Advance(5 * time.Second)
	// 上一窗口 10/s，权重 0.5；当前窗口 0
	assert.InDelta(t, 5.0, counter.Rate(), 0.001)

	clock.Advance(time.Minute)
	assert.InDelta(t, 0.0, counter.Rate(), 0.001, "长时间无请求后速率归零")
	assert.Equal(t, int64(100), counter.Total())
}

func TestCounter_DefaultWindow(t *testing.T) {
	counter := NewCounter(0)
	assert.Equal(t, 60*time.Second, counter.windowDuration)
}

func TestTokenStats_Snapshot(t *testing.T) {
	clock := newManualClock()
	s := newTokenStats(time.Minute, clock.Now)

	s.RecordIssued(true)
	s.RecordIssued(false)
	s.RecordValidation(true)
	s.RecordValidation(false)
	s.RecordValidation(false)
	s.RecordRequest()
	clock.Advance(90 * time.Second)

	snap := s.Snapshot()
	assert.Equal(t, int64(2), snap.TokensIssued)
	assert.Equal(t, int64(1), snap.DeliveryFailures)
	assert.Equal(t, int64(1), snap.ValidationsPassed)
	assert.Equal(t, int64(2), snap.ValidationsFailed)
	assert.Equal(t, int64(1), snap.Requests)
	assert.Equal(t, int64(90), snap.UptimeSeconds)
	assert.Greater(t, snap.IssueRate, 0.0)
}
