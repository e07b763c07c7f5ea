package smstoken

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/config"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/models"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/sms"
	"go.uber.org/zap"
)

// MaxKeyGenerationAttempts 生成唯一 Key 的最大尝试次数
const MaxKeyGenerationAttempts = 1000

var (
	// ErrKeyGenerationExhausted 连续冲突次数用尽，说明字母表或长度相对签发量过小
	ErrKeyGenerationExhausted = errors.New("unable to generate a unique sms token key")
	// ErrInvalidGeneratedKey 生成器返回了空 Key 或超长 Key
	ErrInvalidGeneratedKey = errors.New("key generator returned an invalid key")
	// ErrMissingRecipient 缺少接收号码
	ErrMissingRecipient = errors.New("recipient phone number is required")
)

// EventRecorder 系统事件记录
type EventRecorder interface {
	LogInfo(eventType, message string, metadata map[string]interface{}) error
	LogWarning(eventType, message string, metadata map[string]interface{}) error
}

// StatsRecorder 签发与校验计数
type StatsRecorder interface {
	RecordIssued(delivered bool)
	RecordValidation(valid bool)
}

// IssueRequest 签发参数
type IssueRequest struct {
	Recipient    string
	Subject      Subject
	Slug         *string
	TemplateSlug string                 // 为空时使用默认模板
	Context      map[string]interface{} // 模板上下文，key 会被覆盖为本次验证码
	Generator    KeyGenerator           // 为空时使用配置长度的数字生成器
}

// Service Token 业务逻辑层
type Service struct {
	repo            Store
	sender          sms.Sender
	cfg             config.ValidatorConfig
	generator       KeyGenerator
	defaultTemplate string
	logger          *zap.Logger
	events          EventRecorder
	stats           StatsRecorder
}

// Option Service 可选依赖
type Option func(*Service)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventRecorder 设置事件记录
func WithEventRecorder(events EventRecorder) Option {
	return func(s *Service) { s.events = events }
}

// WithStats 设置计数器
func WithStats(stats StatsRecorder) Option {
	return func(s *Service) { s.stats = stats }
}

// WithKeyGenerator 替换默认 Key 生成器
func WithKeyGenerator(generator KeyGenerator) Option {
	return func(s *Service) {
		if generator != nil {
			s.generator = generator
		}
	}
}

// WithDefaultTemplate 设置默认短信模板
func WithDefaultTemplate(slug string) Option {
	return func(s *Service) {
		if slug != "" {
			s.defaultTemplate = slug
		}
	}
}

// NewService 创建 Service 实例
func NewService(repo Store, sender sms.Sender, cfg config.ValidatorConfig, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	generator, err := DigitGenerator(cfg.TokenLength)
	if err != nil {
		return nil, err
	}

	s := &Service{
		repo:            repo,
		sender:          sender,
		cfg:             cfg,
		generator:       generator,
		defaultTemplate: sms.TokenValidationTemplate,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config 返回 Token 配置
func (s *Service) Config() config.ValidatorConfig {
	return s.cfg
}

// Now 服务使用的当前时间
func (s *Service) Now() time.Time {
	return s.repo.Now()
}

// GenerateUniqueKey 生成当前未被占用的 Key
// 每次尝试都会重新查询存储，不缓存结果
func (s *Service) GenerateUniqueKey(ctx context.Context, generator KeyGenerator) (string, error) {
	return s.claimKey(ctx, generator, nil)
}

// claimKey 生成未被占用的 Key 并交给 claim 写入
// 查询与写入之间被并发签发抢占（ErrDuplicateKey）时按一次冲突计入重试
func (s *Service) claimKey(ctx context.Context, generator KeyGenerator, claim func(key string) error) (string, error) {
	if generator == nil {
		generator = s.generator
	}

	for attempt := 0; attempt < MaxKeyGenerationAttempts; attempt++ {
		key, err := generator()
		if err != nil {
			return "", fmt.Errorf("generate key: %w", err)
		}
		if key == "" || len(key) > config.MaxTokenLength {
			return "", ErrInvalidGeneratedKey
		}

		exists, err := s.repo.ExistsByKey(ctx, key)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}

		if claim != nil {
			if err := claim(key); err != nil {
				if errors.Is(err, ErrDuplicateKey) {
					continue
				}
				return "", err
			}
		}
		return key, nil
	}

	return "", ErrKeyGenerationExhausted
}

// Issue 签发 Token 并通过短信发送
// 顺序：创建记录 -> 分配 Key -> 发送 -> 停用该实体的其他 Token
// 发送失败只体现在 delivered=false，Token 仍然可用于校验
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*models.SMSToken, bool, error) {
	if err := req.Subject.Validate(); err != nil {
		return nil, false, err
	}
	if req.Recipient == "" {
		return nil, false, ErrMissingRecipient
	}

	token, err := s.repo.Create(ctx, req.Subject, req.Recipient, req.Slug)
	if err != nil {
		return nil, false, fmt.Errorf("create sms token: %w", err)
	}

	key, err := s.claimKey(ctx, req.Generator, func(key string) error {
		if err := s.repo.AssignKey(ctx, token.ID, key); err != nil {
			return fmt.Errorf("assign sms token key: %w", err)
		}
		return nil
	})
	if err != nil {
		// 未分配 Key 的记录不可见，直接删除
		if delErr := s.repo.Delete(ctx, token.ID); delErr != nil {
			s.logger.Warn("failed to remove keyless sms token", zap.Uint("token_id", token.ID), zap.Error(delErr))
		}
		if errors.Is(err, ErrKeyGenerationExhausted) {
			s.logger.Error("sms token key space exhausted",
				zap.String("subject", req.Subject.String()),
				zap.Int("attempts", MaxKeyGenerationAttempts))
		}
		return nil, false, err
	}

	token.Key = &key

	delivered := s.deliver(ctx, token, req)

	deactivated, err := s.repo.DeactivateAllActiveExcept(ctx, req.Subject, token.ID)
	if err != nil {
		return token, delivered, fmt.Errorf("deactivate previous sms tokens: %w", err)
	}

	s.logger.Info("sms token issued",
		zap.Uint("token_id", token.ID),
		zap.String("subject", req.Subject.String()),
		zap.String("slug", token.SlugValue()),
		zap.Bool("delivered", delivered),
		zap.Int64("deactivated", deactivated))

	if s.stats != nil {
		s.stats.RecordIssued(delivered)
	}
	s.recordEvent(models.EventTypeTokenIssued, "SMS token issued", map[string]interface{}{
		"token_id":     token.ID,
		"subject_type": token.SubjectType,
		"subject_id":   token.SubjectID,
		"slug":         token.SlugValue(),
		"delivered":    delivered,
		"deactivated":  deactivated,
	})

	return token, delivered, nil
}

// deliver 发送短信，通道错误统一转换为 false
func (s *Service) deliver(ctx context.Context, token *models.SMSToken, req IssueRequest) bool {
	templateSlug := req.TemplateSlug
	if templateSlug == "" {
		templateSlug = s.defaultTemplate
	}

	data := make(map[string]interface{}, len(req.Context)+1)
	for k, v := range req.Context {
		data[k] = v
	}
	data["key"] = token.KeyValue()

	result, err := s.sender.SendTemplate(ctx, req.Recipient, templateSlug, data, sms.RelatedObject{
		Type: string(req.Subject.Kind),
		ID:   req.Subject.ID,
	})

	var reason string
	switch {
	case err != nil:
		reason = err.Error()
	case result == nil:
		reason = "empty delivery result"
	case result.Failed:
		reason = result.Error
	default:
		return true
	}

	s.logger.Warn("sms token delivery failed",
		zap.Uint("token_id", token.ID),
		zap.String("subject", req.Subject.String()),
		zap.String("template", templateSlug),
		zap.String("reason", reason))
	s.recordEvent(models.EventTypeDeliveryFailed, "SMS token delivery failed", map[string]interface{}{
		"token_id": token.ID,
		"template": templateSlug,
		"reason":   reason,
	})
	return false
}

// Validate 校验实体在该用途下最近的有效 Token
// 不存在、已过期、不匹配都只返回 false，不区分原因
func (s *Service) Validate(ctx context.Context, subject Subject, key string, slug *string) (bool, error) {
	valid, err := s.validate(ctx, subject, key, slug)
	if err != nil {
		return false, err
	}
	if s.stats != nil {
		s.stats.RecordValidation(valid)
	}
	return valid, nil
}

func (s *Service) validate(ctx context.Context, subject Subject, key string, slug *string) (bool, error) {
	if key == "" {
		return false, nil
	}

	token, err := s.repo.FindLastActive(ctx, subject, slug)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return false, nil
		}
		return false, err
	}

	if token.IsExpired(s.cfg.MaxTokenAge(), s.repo.Now()) {
		return false, nil
	}

	if !s.matches(token, key) {
		return false, nil
	}

	if s.cfg.ConsumeOnSuccess {
		if err := s.repo.Deactivate(ctx, token.ID); err != nil {
			return false, fmt.Errorf("consume sms token: %w", err)
		}
	}
	return true, nil
}

func (s *Service) matches(token *models.SMSToken, key string) bool {
	if s.cfg.UniversalToken != "" && subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.UniversalToken)) == 1 {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(token.KeyValue())) == 1
}

// CountRecent 统计时间窗口内签发的 Token 数量，供调用方自行限流
func (s *Service) CountRecent(ctx context.Context, subject Subject, slug *string, maxAgeSeconds int) (int64, error) {
	return s.repo.CountRecent(ctx, subject, slug, secondsToDuration(maxAgeSeconds))
}

// CountTokens 统计实体的全部 Token 数量
func (s *Service) CountTokens(ctx context.Context, subject Subject) (int64, error) {
	return s.repo.Count(ctx, subject)
}

// ListTokens 列出实体的 Token
func (s *Service) ListTokens(ctx context.Context, subject Subject, limit int) ([]*models.SMSToken, error) {
	return s.repo.ListBySubject(ctx, subject, limit)
}

// Cleanup 删除超过保留期的 Token，由外部定时任务调用
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteOlderThan(ctx, s.cfg.RemoveTokenAfter())
	if err != nil {
		return 0, fmt.Errorf("remove old sms tokens: %w", err)
	}

	s.logger.Info(fmt.Sprintf("Removing %d SMS validation tokens", removed),
		zap.Int64("removed", removed),
		zap.Int("retention_seconds", s.cfg.RemoveTokenAfterSeconds))
	s.recordEvent(models.EventTypeTokensCleaned, "SMS tokens cleaned", map[string]interface{}{
		"removed":           removed,
		"retention_seconds": s.cfg.RemoveTokenAfterSeconds,
	})

	return removed, nil
}

// recordEvent 事件写入失败不影响主流程
func (s *Service) recordEvent(eventType, message string, metadata map[string]interface{}) {
	if s.events == nil {
		return
	}

	var err error
	if eventType == models.EventTypeDeliveryFailed {
		err = s.events.LogWarning(eventType, message, metadata)
	} else {
		err = s.events.LogInfo(eventType, message, metadata)
	}
	if err != nil {
		s.logger.Warn("failed to record system event", zap.String("type", eventType), zap.Error(err))
	}
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
