package smstoken

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/config"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/models"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/sms"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: baseTime}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// setupTestDB 创建测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.SMSToken{}, &models.SystemEvent{}))
	return db
}

// sentMessage 记录一次发送调用
type sentMessage struct {
	Recipient string
	Template  string
	Data      map[string]interface{}
	Related   []sms.RelatedObject
}

// recordingSender 记录发送内容，可注入失败
type recordingSender struct {
	mu       sync.Mutex
	messages []sentMessage
	err      error
	failed   bool
}

func (s *recordingSender) SendTemplate(_ context.Context, recipient, templateSlug string, data map[string]interface{}, related ...sms.RelatedObject) (*sms.DeliveryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, sentMessage{
		Recipient: recipient,
		Template:  templateSlug,
		Data:      data,
		Related:   related,
	})
	if s.err != nil {
		return nil, s.err
	}
	if s.failed {
		return &sms.DeliveryResult{Failed: true, Error: "gateway rejected"}, nil
	}
	return &sms.DeliveryResult{MessageID: "msg-1"}, nil
}

func (s *recordingSender) last() sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[len(s.messages)-1]
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// setupService 创建使用假时钟与记录通道的 Service
func setupService(t *testing.T, mutate func(*config.ValidatorConfig), opts ...Option) (*Service, *Repository, *fakeClock, *recordingSender) {
	t.Helper()

	clock := newFakeClock()
	repo := NewRepository(setupTestDB(t)).WithClock(clock.Now)
	sender := &recordingSender{}

	cfg := config.DefaultValidatorConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	svc, err := NewService(repo, sender, cfg, opts...)
	require.NoError(t, err)
	return svc, repo, clock, sender
}
