package sms

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/config"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/crypto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient 按配置创建 Redis 客户端，连接失败只记录告警
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return client
}

// NewSender 根据 sms.backend 选择发送通道
// 返回的 cleanup 用于释放通道持有的连接
func NewSender(cfg *config.Config, templates *Templates, logger *zap.Logger) (Sender, func(), error) {
	noop := func() {}

	switch strings.ToLower(cfg.SMS.Backend) {
	case "", "log":
		return NewLogSender(templates, logger), noop, nil
	case "http":
		if cfg.SMS.GatewayURL == "" {
			return nil, noop, fmt.Errorf("sms.gateway_url is required for http backend")
		}
		apiKey, err := crypto.ResolveSecret(cfg.SMS.GatewayAPIKey)
		if err != nil {
			return nil, noop, fmt.Errorf("resolve sms gateway api key: %w", err)
		}
		return NewHTTPSender(cfg.SMS.GatewayURL, apiKey, cfg.SMS.Timeout, templates, logger), noop, nil
	case "redis":
		client := NewRedisClient(cfg.Redis, logger)
		cleanup := func() { _ = client.Close() }
		return NewRedisQueueSender(client, cfg.SMS.QueueKey, templates, logger), cleanup, nil
	default:
		return nil, noop, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.SMS.Backend)
	}
}
