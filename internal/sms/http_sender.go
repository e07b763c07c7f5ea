package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPSender 通过 HTTP 短信网关发送
// 以 JSON 形式 POST OutboundMessage，2xx 视为成功
type HTTPSender struct {
	client    *http.Client
	url       string
	apiKey    string
	templates *Templates
	logger    *zap.Logger
}

// NewHTTPSender 创建 HTTPSender
func NewHTTPSender(url, apiKey string, timeout time.Duration, templates *Templates, logger *zap.Logger) *HTTPSender {
	if timeout == 0 {
		timeout = 5 * time.Second // 默认 5 秒超时
	}

	return &HTTPSender{
		client:    &http.Client{Timeout: timeout},
		url:       url,
		apiKey:    apiKey,
		templates: templates,
		logger:    logger,
	}
}

// SendTemplate 渲染模板并提交到网关
func (s *HTTPSender) SendTemplate(ctx context.Context, recipient, templateSlug string, data map[string]interface{}, related ...RelatedObject) (*DeliveryResult, error) {
	msg, err := buildMessage(s.templates, recipient, templateSlug, data, related)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode sms message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Siriusx-SMS-Validator/1.0")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendingFailed, err)
	}
	defer resp.Body.Close()

	result := &DeliveryResult{MessageID: msg.ID}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Failed = true
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		s.logger.Warn("sms gateway rejected message",
			zap.String("message_id", msg.ID),
			zap.Int("status_code", resp.StatusCode))
	}

	return result, nil
}
