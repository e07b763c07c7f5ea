package sms

import (
	"time"

	"github.com/google/uuid"
)

// OutboundMessage 渲染后待发送的短信
type OutboundMessage struct {
	ID        string          `json:"id"`
	Recipient string          `json:"recipient"`
	Template  string          `json:"template"`
	Body      string          `json:"body"`
	Related   []RelatedObject `json:"related,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// buildMessage 渲染模板并生成消息 ID
func buildMessage(templates *Templates, recipient, templateSlug string, data map[string]interface{}, related []RelatedObject) (*OutboundMessage, error) {
	body, err := templates.Render(templateSlug, data)
	if err != nil {
		return nil, err
	}

	return &OutboundMessage{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Template:  templateSlug,
		Body:      body,
		Related:   related,
		CreatedAt: time.Now().UTC(),
	}, nil
}
