package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultLimit 未指定数量时返回的事件条数
const DefaultLimit = 50

// ErrInvalidRetentionDays 保留天数必须为正数
var ErrInvalidRetentionDays = errors.New("event retention days must be positive")

// Query 事件查询条件，空字段表示不过滤
type Query struct {
	Type  string
	Level string
	Limit int
}

// Service 系统事件服务
// 记录 Token 签发、短信发送失败、清理任务等事件，同时输出到结构化日志
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService 创建系统事件服务实例
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger, now: time.Now}
}

// record 持久化事件
func (s *Service) record(eventType, message, level string, metadata map[string]interface{}) error {
	var encoded string
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("序列化事件元数据失败: %w", err)
		}
		encoded = string(data)
	}

	event := &models.SystemEvent{
		Type:      eventType,
		Message:   message,
		Level:     level,
		Metadata:  encoded,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("保存系统事件失败: %w", err)
	}

	s.logger.Debug("system event recorded",
		zap.Uint("event_id", event.ID),
		zap.String("type", eventType),
		zap.String("level", level))
	return nil
}

// LogInfo 记录 info 级别事件
func (s *Service) LogInfo(eventType, message string, metadata map[string]interface{}) error {
	return s.record(eventType, message, models.EventLevelInfo, metadata)
}

// LogWarning 记录 warning 级别事件
func (s *Service) LogWarning(eventType, message string, metadata map[string]interface{}) error {
	return s.record(eventType, message, models.EventLevelWarning, metadata)
}

// LogError 记录 error 级别事件
func (s *Service) LogError(eventType, message string, metadata map[string]interface{}) error {
	return s.record(eventType, message, models.EventLevelError, metadata)
}

// List 按条件查询事件，最新的在前
func (s *Service) List(q Query) ([]models.SystemEvent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := s.db.Model(&models.SystemEvent{})
	if q.Type != "" {
		query = query.Where("type = ?", q.Type)
	}
	if q.Level != "" {
		query = query.Where("level = ?", q.Level)
	}

	var events []models.SystemEvent
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("查询系统事件失败: %w", err)
	}
	return events, nil
}

// GetRecentEvents 获取最近的事件
func (s *Service) GetRecentEvents(limit int) ([]models.SystemEvent, error) {
	return s.List(Query{Limit: limit})
}

// GetEventsByType 按类型获取事件
func (s *Service) GetEventsByType(eventType string, limit int) ([]models.SystemEvent, error) {
	return s.List(Query{Type: eventType, Limit: limit})
}

// CleanupOldEvents 删除 days 天之前的事件，并记录一条清理事件
func (s *Service) CleanupOldEvents(days int) (int64, error) {
	if days <= 0 {
		return 0, ErrInvalidRetentionDays
	}

	cutoff := s.now().UTC().AddDate(0, 0, -days)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SystemEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("清理系统事件失败: %w", result.Error)
	}

	s.logger.Info("old system events removed",
		zap.Int64("removed", result.RowsAffected),
		zap.Int("retention_days", days))

	if err := s.LogInfo(models.EventTypeEventsCleaned, "System events cleaned", map[string]interface{}{
		"removed":        result.RowsAffected,
		"retention_days": days,
	}); err != nil {
		return result.RowsAffected, err
	}
	return result.RowsAffected, nil
}

// DecodeMetadata 解析事件元数据，空值返回 nil
func DecodeMetadata(event models.SystemEvent) (map[string]interface{}, error) {
	if event.Metadata == "" {
		return nil, nil
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal([]byte(event.Metadata), &metadata); err != nil {
		return nil, fmt.Errorf("解析事件元数据失败: %w", err)
	}
	return metadata, nil
}
