package smstoken

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSubject 缺少实体类型或 ID
var ErrInvalidSubject = errors.New("subject kind and id are required")

// EntityKind 业务实体类型标签，由宿主应用定义，例如 "user"、"order"
type EntityKind string

// Subject Token 所验证的业务实体引用
type Subject struct {
	Kind EntityKind
	ID   string
}

// NewSubject 由任意可打印的 ID 构造实体引用
func NewSubject(kind EntityKind, id any) Subject {
	return Subject{Kind: kind, ID: fmt.Sprint(id)}
}

// Validate 检查实体引用是否完整
func (s Subject) Validate() error {
	if strings.TrimSpace(string(s.Kind)) == "" || strings.TrimSpace(s.ID) == "" {
		return ErrInvalidSubject
	}
	return nil
}

func (s Subject) String() string {
	return string(s.Kind) + ":" + s.ID
}

// normalizeSlug 空字符串等同于默认用途
func normalizeSlug(slug *string) *string {
	if slug == nil || *slug == "" {
		return nil
	}
	s := *slug
	return &s
}

// Slug 便于调用方传入用途标签
func Slug(s string) *string {
	return normalizeSlug(&s)
}
