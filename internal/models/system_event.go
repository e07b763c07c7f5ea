package models

import "time"

// SystemEvent 系统事件日志
// 用于记录 Token 签发、短信发送失败、定期清理等事件
type SystemEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"type:varchar(50);not null;index" json:"type"` // token_issued, delivery_failed, tokens_cleaned, etc.
	Message   string    `gorm:"type:text;not null" json:"message"`
	Level     string    `gorm:"type:varchar(20);not null;default:'info'" json:"level"` // info, warning, error
	Metadata  string    `gorm:"type:json" json:"metadata,omitempty"`                   // 额外的元数据（JSON 格式）
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (SystemEvent) TableName() string {
	return "system_events"
}

// EventType 事件类型常量
const (
	EventTypeTokenIssued    = "token_issued"    // Token 签发
	EventTypeDeliveryFailed = "delivery_failed" // 短信发送失败
	EventTypeTokensCleaned  = "tokens_cleaned"  // 过期 Token 清理
	EventTypeEventsCleaned  = "events_cleaned"  // 旧事件清理
)

// EventLevel 事件级别常量
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)
