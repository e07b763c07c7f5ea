package smstoken

import (
	"strings"
	"time"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/models"
)

// IssueTokenRequest 签发 Token 请求
type IssueTokenRequest struct {
	PhoneNumber string                 `json:"phone_number" binding:"required,max=20"`
	SubjectType string                 `json:"subject_type" binding:"required,max=100"`
	SubjectID   string                 `json:"subject_id" binding:"required,max=100"`
	Slug        *string                `json:"slug" binding:"omitempty,max=50"`
	Template    string                 `json:"template"`
	Context     map[string]interface{} `json:"context"`
}

// ValidateTokenRequest 校验 Token 请求
type ValidateTokenRequest struct {
	SubjectType string  `json:"subject_type" binding:"required"`
	SubjectID   string  `json:"subject_id" binding:"required"`
	Key         string  `json:"key" binding:"required,max=40"`
	Slug        *string `json:"slug"`
}

// TokenDTO Token 数据传输对象，Key 与号码均脱敏
type TokenDTO struct {
	ID          uint      `json:"id"`
	KeyDisplay  string    `json:"key_display"`
	PhoneNumber string    `json:"phone_number"`
	Slug        *string   `json:"slug,omitempty"`
	SubjectType string    `json:"subject_type"`
	SubjectID   string    `json:"subject_id"`
	IsActive    bool      `json:"is_active"`
	Expired     bool      `json:"expired"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ToTokenDTO 将 Token 模型转换为 DTO
func ToTokenDTO(token *models.SMSToken, maxAge time.Duration, now time.Time) *TokenDTO {
	return &TokenDTO{
		ID:          token.ID,
		KeyDisplay:  MaskKey(token.KeyValue()),
		PhoneNumber: MaskPhoneNumber(token.PhoneNumber),
		Slug:        token.Slug,
		SubjectType: token.SubjectType,
		SubjectID:   token.SubjectID,
		IsActive:    token.IsActive,
		Expired:     token.IsExpired(maxAge, now),
		CreatedAt:   token.CreatedAt,
		ExpiresAt:   token.ExpiresAt(maxAge),
	}
}

// MaskKey 只保留长度信息
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	return strings.Repeat("*", len(key))
}

// MaskPhoneNumber 脱敏显示号码
// 格式: ****{最后3位}
func MaskPhoneNumber(phone string) string {
	if len(phone) <= 3 {
		return "****"
	}
	return "****" + phone[len(phone)-3:]
}
