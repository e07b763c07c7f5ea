package smstoken

import (
	"testing"
	"time"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/models"
	"github.com/stretchr/testify/assert"
)

// TestMaskPhoneNumber 测试号码脱敏
func TestMaskPhoneNumber(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"国际号码", "+420777000111", "****111"},
		{"短号码", "123", "****"},
		{"空号码", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskPhoneNumber(tt.phone))
		})
	}
}

// TestToTokenDTO 测试 DTO 转换
func TestToTokenDTO(t *testing.T) {
	key := "123456"
	token := &models.SMSToken{
		ID:          1,
		Key:         &key,
		CreatedAt:   baseTime,
		IsActive:    true,
		PhoneNumber: "+420777000111",
		Slug:        Slug("login"),
		SubjectType: "user",
		SubjectID:   "42",
	}

	dto := ToTokenDTO(token, time.Hour, baseTime.Add(time.Hour))
	assert.Equal(t, "******", dto.KeyDisplay)
	assert.Equal(t, "****111", dto.PhoneNumber)
	assert.Equal(t, "login", *dto.Slug)
	assert.True(t, dto.Expired)
	assert.Equal(t, baseTime.Add(time.Hour), dto.ExpiresAt)

	dto = ToTokenDTO(token, time.Hour, baseTime)
	assert.False(t, dto.Expired)

	assert.Empty(t, MaskKey(""))
}
