package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/smstoken"
	"github.com/gin-gonic/gin"
)

// DefaultListLimit 列表默认条数
const DefaultListLimit = 20

// TokenHandler 短信 Token HTTP 处理器
type TokenHandler struct {
	service *smstoken.Service
}

// NewTokenHandler 创建 TokenHandler 实例
func NewTokenHandler(service *smstoken.Service) *TokenHandler {
	return &TokenHandler{service: service}
}

// IssueTokenResponse 签发响应，不包含 Key
type IssueTokenResponse struct {
	Token     *smstoken.TokenDTO `json:"token"`
	Delivered bool               `json:"delivered"`
}

// ValidateTokenResponse 校验响应
type ValidateTokenResponse struct {
	Valid bool `json:"valid"`
}

// CountResponse 计数响应
type CountResponse struct {
	Count int64 `json:"count"`
}

// CleanupResponse 清理响应
type CleanupResponse struct {
	Removed int64 `json:"removed"`
}

// IssueToken 签发 Token 并发送短信
// @Summary 签发短信验证 Token
// @Tags sms-tokens
// @Accept json
// @Produce json
// @Param token body smstoken.IssueTokenRequest true "签发参数"
// @Success 201 {object} IssueTokenResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/sms-tokens [post]
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req smstoken.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	tok, delivered, err := h.service.Issue(c.Request.Context(), smstoken.IssueRequest{
		Recipient:    req.PhoneNumber,
		Subject:      smstoken.Subject{Kind: smstoken.EntityKind(req.SubjectType), ID: req.SubjectID},
		Slug:         req.Slug,
		TemplateSlug: req.Template,
		Context:      req.Context,
	})
	if err != nil {
		h.handleTokenError(c, err)
		return
	}

	cfg := h.service.Config()
	c.JSON(http.StatusCreated, IssueTokenResponse{
		Token:     smstoken.ToTokenDTO(tok, cfg.MaxTokenAge(), tok.CreatedAt),
		Delivered: delivered,
	})
}

// ValidateToken 校验 Token
// @Summary 校验短信验证 Token
// @Tags sms-tokens
// @Accept json
// @Produce json
// @Param token body smstoken.ValidateTokenRequest true "校验参数"
// @Success 200 {object} ValidateTokenResponse
// @Router /api/sms-tokens/validate [post]
func (h *TokenHandler) ValidateToken(c *gin.Context) {
	var req smstoken.ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	valid, err := h.service.Validate(c.Request.Context(),
		smstoken.Subject{Kind: smstoken.EntityKind(req.SubjectType), ID: req.SubjectID},
		req.Key, req.Slug)
	if err != nil {
		h.handleTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, ValidateTokenResponse{Valid: valid})
}

// ListTokens 列出实体的 Token（脱敏）
// @Summary 列出实体的短信 Token
// @Tags sms-tokens
// @Produce json
// @Param subject_type query string true "实体类型"
// @Param subject_id query string true "实体 ID"
// @Param limit query int false "条数"
// @Success 200 {array} smstoken.TokenDTO
// @Router /api/sms-tokens [get]
func (h *TokenHandler) ListTokens(c *gin.Context) {
	subject, ok := subjectFromQuery(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", DefaultListLimit)
	if !ok {
		return
	}

	tokens, err := h.service.ListTokens(c.Request.Context(), subject, limit)
	if err != nil {
		h.handleTokenError(c, err)
		return
	}

	cfg := h.service.Config()
	now := h.service.Now()
	dtos := make([]*smstoken.TokenDTO, len(tokens))
	for i, tok := range tokens {
		dtos[i] = smstoken.ToTokenDTO(tok, cfg.MaxTokenAge(), now)
	}
	c.JSON(http.StatusOK, dtos)
}

// CountTokens 统计实体的 Token 数量
// 带 max_age_seconds 时只统计时间窗口内签发的数量，供调用方限流
// @Summary 统计短信 Token
// @Tags sms-tokens
// @Produce json
// @Param subject_type query string true "实体类型"
// @Param subject_id query string true "实体 ID"
// @Param slug query string false "用途"
// @Param max_age_seconds query int false "时间窗口"
// @Success 200 {object} CountResponse
// @Router /api/sms-tokens/count [get]
func (h *TokenHandler) CountTokens(c *gin.Context) {
	subject, ok := subjectFromQuery(c)
	if !ok {
		return
	}

	var (
		count int64
		err   error
	)
	if _, windowed := c.GetQuery("max_age_seconds"); windowed {
		maxAge, ok := intQuery(c, "max_age_seconds", 0)
		if !ok {
			return
		}
		count, err = h.service.CountRecent(c.Request.Context(), subject, smstoken.Slug(c.Query("slug")), maxAge)
	} else {
		count, err = h.service.CountTokens(c.Request.Context(), subject)
	}
	if err != nil {
		h.handleTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, CountResponse{Count: count})
}

// CleanupTokens 删除超过保留期的 Token
// @Summary 清理过期短信 Token
// @Tags sms-tokens
// @Produce json
// @Success 200 {object} CleanupResponse
// @Router /api/sms-tokens/cleanup [post]
func (h *TokenHandler) CleanupTokens(c *gin.Context) {
	removed, err := h.service.Cleanup(c.Request.Context())
	if err != nil {
		h.handleTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, CleanupResponse{Removed: removed})
}

// subjectFromQuery 读取 subject_type / subject_id 查询参数
func subjectFromQuery(c *gin.Context) (smstoken.Subject, bool) {
	subject := smstoken.Subject{
		Kind: smstoken.EntityKind(c.Query("subject_type")),
		ID:   c.Query("subject_id"),
	}
	if err := subject.Validate(); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_SUBJECT", "subject_type and subject_id are required")
		return subject, false
	}
	return subject, true
}

// intQuery 读取非负整数查询参数
func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		errorResponse(c, http.StatusBadRequest, "INVALID_PARAMETER", "Invalid "+name)
		return 0, false
	}
	return n, true
}

// handleTokenError 处理 Token 相关错误
func (h *TokenHandler) handleTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, smstoken.ErrInvalidSubject):
		errorResponse(c, http.StatusBadRequest, "INVALID_SUBJECT", "subject_type and subject_id are required")
	case errors.Is(err, smstoken.ErrMissingRecipient):
		errorResponse(c, http.StatusBadRequest, "MISSING_RECIPIENT", "Recipient phone number is required")
	case errors.Is(err, smstoken.ErrTokenNotFound):
		errorResponse(c, http.StatusNotFound, "TOKEN_NOT_FOUND", "Token not found")
	case errors.Is(err, smstoken.ErrKeyGenerationExhausted):
		errorResponse(c, http.StatusServiceUnavailable, "KEY_SPACE_EXHAUSTED", "Unable to generate a unique token key")
	default:
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
