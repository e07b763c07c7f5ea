package sms

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
)

// TokenValidationTemplate 默认验证码模板
const TokenValidationTemplate = "token-validation"

// Templates 模板注册表，按模板 slug 索引
type Templates struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewTemplates 创建包含默认模板的注册表
func NewTemplates() *Templates {
	t := &Templates{templates: make(map[string]*template.Template)}
	t.MustRegister(TokenValidationTemplate, "Your verification code is {{.key}}")
	return t
}

// Register 注册模板
func (t *Templates) Register(slug, body string) error {
	tmpl, err := template.New(slug).Option("missingkey=zero").Parse(body)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", slug, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.templates[slug] = tmpl
	return nil
}

// MustRegister 注册模板，解析失败时 panic
func (t *Templates) MustRegister(slug, body string) {
	if err := t.Register(slug, body); err != nil {
		panic(err)
	}
}

// Render 渲染模板
func (t *Templates) Render(slug string, data map[string]interface{}) (string, error) {
	t.mu.RLock()
	tmpl, ok := t.templates[slug]
	t.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, slug)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", slug, err)
	}
	return buf.String(), nil
}
