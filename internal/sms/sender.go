package sms

import (
	"context"
	"errors"
)

var (
	// ErrSendingFailed 短信通道返回错误
	ErrSendingFailed = errors.New("sms sending failed")
	// ErrTemplateNotFound 模板不存在
	ErrTemplateNotFound = errors.New("sms template not found")
	// ErrUnknownBackend 未知的发送通道
	ErrUnknownBackend = errors.New("unknown sms backend")
)

// RelatedObject 与短信关联的业务实体，供发送通道记账使用
type RelatedObject struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// DeliveryResult 发送结果
type DeliveryResult struct {
	MessageID string `json:"message_id"`
	Failed    bool   `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// Sender 短信发送通道
type Sender interface {
	SendTemplate(ctx context.Context, recipient, templateSlug string, data map[string]interface{}, related ...RelatedObject) (*DeliveryResult, error)
}

// SenderFunc 函数适配器
type SenderFunc func(ctx context.Context, recipient, templateSlug string, data map[string]interface{}, related ...RelatedObject) (*DeliveryResult, error)

// SendTemplate 调用函数本身
func (f SenderFunc) SendTemplate(ctx context.Context, recipient, templateSlug string, data map[string]interface{}, related ...RelatedObject) (*DeliveryResult, error) {
	return f(ctx, recipient, templateSlug, data, related...)
}
