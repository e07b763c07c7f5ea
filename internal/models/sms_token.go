package models

import "time"

// SMSToken 短信验证 Token
// 通过 SubjectType + SubjectID 绑定到任意业务实体，Slug 区分用途
type SMSToken struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         *string   `gorm:"column:token_key;type:varchar(40);uniqueIndex" json:"key"` // 创建后才分配，分配前为 NULL
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	PhoneNumber string    `gorm:"type:varchar(20);not null" json:"phone_number"`
	Slug        *string   `gorm:"type:varchar(50);index" json:"slug,omitempty"` // nil 表示默认用途
	SubjectType string    `gorm:"type:varchar(100);not null;index:idx_sms_tokens_subject" json:"subject_type"`
	SubjectID   string    `gorm:"type:varchar(100);not null;index:idx_sms_tokens_subject" json:"subject_id"`
}

// TableName 指定表名
func (SMSToken) TableName() string {
	return "sms_tokens"
}

// ExpiresAt 过期时间点，由创建时间和有效期推算，不落库
func (t *SMSToken) ExpiresAt(maxAge time.Duration) time.Time {
	return t.CreatedAt.Add(maxAge)
}

// IsExpired 到达过期时间点即视为过期
func (t *SMSToken) IsExpired(maxAge time.Duration, now time.Time) bool {
	return !now.Before(t.ExpiresAt(maxAge))
}

// KeyValue 返回 Key 字符串，未分配时为空串
func (t *SMSToken) KeyValue() string {
	if t.Key == nil {
		return ""
	}
	return *t.Key
}

// SlugValue 返回 Slug 字符串，默认用途为空串
func (t *SMSToken) SlugValue() string {
	if t.Slug == nil {
		return ""
	}
	return *t.Slug
}
