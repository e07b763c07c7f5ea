package smstoken

import (
	"context"
	"errors"
	"time"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrTokenNotFound Token 不存在
	ErrTokenNotFound = errors.New("sms token not found")
	// ErrDuplicateKey Key 已被其他 Token 占用（唯一索引冲突）
	ErrDuplicateKey = errors.New("sms token key already assigned")
)

// Store Token 持久化操作，Service 只通过它访问存储
type Store interface {
	Now() time.Time
	Create(ctx context.Context, subject Subject, phoneNumber string, slug *string) (*models.SMSToken, error)
	AssignKey(ctx context.Context, id uint, key string) error
	FindLastActive(ctx context.Context, subject Subject, slug *string) (*models.SMSToken, error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
	DeactivateAllActiveExcept(ctx context.Context, subject Subject, keepID uint) (int64, error)
	Deactivate(ctx context.Context, id uint) error
	CountRecent(ctx context.Context, subject Subject, slug *string, maxAge time.Duration) (int64, error)
	Count(ctx context.Context, subject Subject) (int64, error)
	ListBySubject(ctx context.Context, subject Subject, limit int) ([]*models.SMSToken, error)
	DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// Clock 当前时间来源
type Clock func() time.Time

// Repository Token 数据访问层
// 只负责持久化，不与短信通道交互
// db 需开启 TranslateError，唯一索引冲突才能识别为 ErrDuplicateKey
type Repository struct {
	db  *gorm.DB
	now Clock
}

// NewRepository 创建 Repository 实例
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithClock 返回使用指定时钟的 Repository 副本
func (r *Repository) WithClock(clock Clock) *Repository {
	return &Repository{db: r.db, now: clock}
}

// Now 当前 UTC 时间
func (r *Repository) Now() time.Time {
	return r.now().UTC()
}

func subjectScope(subject Subject) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("subject_type = ? AND subject_id = ?", string(subject.Kind), subject.ID)
	}
}

func slugScope(slug *string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if slug = normalizeSlug(slug); slug == nil {
			return db.Where("slug IS NULL")
		}
		return db.Where("slug = ?", *slug)
	}
}

// Create 创建尚未分配 Key 的 Token
func (r *Repository) Create(ctx context.Context, subject Subject, phoneNumber string, slug *string) (*models.SMSToken, error) {
	token := &models.SMSToken{
		CreatedAt:   r.Now(),
		IsActive:    true,
		PhoneNumber: phoneNumber,
		Slug:        normalizeSlug(slug),
		SubjectType: string(subject.Kind),
		SubjectID:   subject.ID,
	}
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

// AssignKey 为 Token 写入 Key，Key 已被占用时返回 ErrDuplicateKey
func (r *Repository) AssignKey(ctx context.Context, id uint, key string) error {
	result := r.db.WithContext(ctx).Model(&models.SMSToken{}).
		Where("id = ?", id).
		Update("token_key", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// FindLastActive 查找实体在该用途下最近创建的有效 Token
// 尚未分配 Key 的 Token 不参与查找
func (r *Repository) FindLastActive(ctx context.Context, subject Subject, slug *string) (*models.SMSToken, error) {
	var token models.SMSToken
	err := r.db.WithContext(ctx).
		Scopes(subjectScope(subject), slugScope(slug)).
		Where("is_active = ? AND token_key IS NOT NULL", true).
		Order("created_at DESC").
		Order("id DESC").
		Take(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// FindByID 根据 ID 查找 Token
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.SMSToken, error) {
	var token models.SMSToken
	err := r.db.WithContext(ctx).First(&token, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// ExistsByKey 检查 Key 是否已被占用
func (r *Repository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SMSToken{}).
		Where("token_key = ?", key).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeactivateAllActiveExcept 停用实体除 keepID 外的全部有效 Token
// 不区分用途：新签发的 Token 会让该实体此前的所有 Token 失效
func (r *Repository) DeactivateAllActiveExcept(ctx context.Context, subject Subject, keepID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.SMSToken{}).
		Scopes(subjectScope(subject)).
		Where("is_active = ? AND id <> ?", true, keepID).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// Deactivate 停用单个 Token
func (r *Repository) Deactivate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.SMSToken{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// CountRecent 统计实体在该用途下 maxAge 时间窗口内创建的 Token 数量
func (r *Repository) CountRecent(ctx context.Context, subject Subject, slug *string, maxAge time.Duration) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SMSToken{}).
		Scopes(subjectScope(subject), slugScope(slug)).
		Where("created_at >= ?", r.Now().Add(-maxAge)).
		Count(&count).Error
	return count, err
}

// Count 统计实体的全部 Token 数量
func (r *Repository) Count(ctx context.Context, subject Subject) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SMSToken{}).
		Scopes(subjectScope(subject)).
		Count(&count).Error
	return count, err
}

// ListBySubject 按创建时间倒序列出实体的 Token
func (r *Repository) ListBySubject(ctx context.Context, subject Subject, limit int) ([]*models.SMSToken, error) {
	var tokens []*models.SMSToken
	query := r.db.WithContext(ctx).
		Scopes(subjectScope(subject)).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeleteOlderThan 删除创建时间早于 retention 之前的所有 Token，不论是否有效
func (r *Repository) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", r.Now().Add(-retention)).
		Delete(&models.SMSToken{})
	return result.RowsAffected, result.Error
}

// Delete 删除 Token
func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SMSToken{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}
