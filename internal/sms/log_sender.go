package sms

import (
	"context"

	"go.uber.org/zap"
)

// LogSender 将短信写入日志而不真正发送，用于开发和测试环境
type LogSender struct {
	templates *Templates
	logger    *zap.Logger
}

// NewLogSender 创建 LogSender
func NewLogSender(templates *Templates, logger *zap.Logger) *LogSender {
	return &LogSender{templates: templates, logger: logger}
}

// SendTemplate 渲染模板并记录日志
func (s *LogSender) SendTemplate(_ context.Context, recipient, templateSlug string, data map[string]interface{}, related ...RelatedObject) (*DeliveryResult, error) {
	msg, err := buildMessage(s.templates, recipient, templateSlug, data, related)
	if err != nil {
		return nil, err
	}

	s.logger.Info("sms message",
		zap.String("message_id", msg.ID),
		zap.String("recipient", msg.Recipient),
		zap.String("template", msg.Template),
		zap.String("body", msg.Body),
		zap.Any("related", msg.Related))

	return &DeliveryResult{MessageID: msg.ID}, nil
}
