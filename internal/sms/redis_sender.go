package sms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisQueueSender 将短信推入 Redis 列表，由外部网关进程消费
type RedisQueueSender struct {
	client    *redis.Client
	queueKey  string
	templates *Templates
	logger    *zap.Logger
}

// NewRedisQueueSender 创建 RedisQueueSender
func NewRedisQueueSender(client *redis.Client, queueKey string, templates *Templates, logger *zap.Logger) *RedisQueueSender {
	return &RedisQueueSender{
		client:    client,
		queueKey:  queueKey,
		templates: templates,
		logger:    logger,
	}
}

// SendTemplate 渲染模板并 LPUSH 到队列
func (s *RedisQueueSender) SendTemplate(ctx context.Context, recipient, templateSlug string, data map[string]interface{}, related ...RelatedObject) (*DeliveryResult, error) {
	msg, err := buildMessage(s.templates, recipient, templateSlug, data, related)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode sms message: %w", err)
	}

	if err := s.client.LPush(ctx, s.queueKey, payload).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendingFailed, err)
	}

	s.logger.Debug("sms message queued",
		zap.String("message_id", msg.ID),
		zap.String("queue", s.queueKey))

	return &DeliveryResult{MessageID: msg.ID}, nil
}
