package handlers

import (
	"net/http"
	"time"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/events"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/models"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/stats"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// recentEventLimit 统计接口附带的最近事件条数
const recentEventLimit = 10

// StatsHandler 统计与事件处理器
type StatsHandler struct {
	db           *gorm.DB
	tokenStats   *stats.TokenStats
	eventService *events.Service
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(db *gorm.DB, tokenStats *stats.TokenStats, eventService *events.Service) *StatsHandler {
	return &StatsHandler{
		db:           db,
		tokenStats:   tokenStats,
		eventService: eventService,
	}
}

// SystemStats 系统统计信息响应
type SystemStats struct {
	Tokens       TokenCounts    `json:"tokens"`
	Runtime      stats.Snapshot `json:"runtime"`
	RecentEvents []Event        `json:"recent_events"`
}

// TokenCounts 存储中的 Token 数量
type TokenCounts struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// Event 事件日志
type Event struct {
	ID        uint                   `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Type      string                 `json:"type"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func toEvent(evt models.SystemEvent) Event {
	// 元数据损坏时仍返回事件本身
	metadata, _ := events.DecodeMetadata(evt)
	return Event{
		ID:        evt.ID,
		Timestamp: evt.CreatedAt.UTC().Format(time.RFC3339),
		Type:      evt.Type,
		Level:     evt.Level,
		Message:   evt.Message,
		Metadata:  metadata,
	}
}

// GetStats 获取系统统计信息
// @Summary 获取系统统计信息
// @Description 存储中的 Token 数量、进程内签发与校验计数、最近事件
// @Tags Stats
// @Produce json
// @Success 200 {object} SystemStats
// @Router /api/stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	var counts TokenCounts
	if err := h.db.Model(&models.SMSToken{}).Count(&counts.Total).Error; err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count tokens")
		return
	}
	if err := h.db.Model(&models.SMSToken{}).Where("is_active = ?", true).Count(&counts.Active).Error; err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count tokens")
		return
	}

	recent := make([]Event, 0, recentEventLimit)
	if data, err := h.eventService.GetRecentEvents(recentEventLimit); err == nil {
		for _, evt := range data {
			recent = append(recent, toEvent(evt))
		}
	}

	c.JSON(http.StatusOK, SystemStats{
		Tokens:       counts,
		Runtime:      h.tokenStats.Snapshot(),
		RecentEvents: recent,
	})
}

// ListEvents 查询系统事件
// @Summary 查询系统事件
// @Tags Stats
// @Produce json
// @Param type query string false "事件类型"
// @Param level query string false "事件级别"
// @Param limit query int false "条数"
// @Success 200 {array} Event
// @Router /api/events [get]
func (h *StatsHandler) ListEvents(c *gin.Context) {
	limit, ok := intQuery(c, "limit", events.DefaultLimit)
	if !ok {
		return
	}

	data, err := h.eventService.List(events.Query{
		Type:  c.Query("type"),
		Level: c.Query("level"),
		Limit: limit,
	})
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve events")
		return
	}

	result := make([]Event, 0, len(data))
	for _, evt := range data {
		result = append(result, toEvent(evt))
	}
	c.JSON(http.StatusOK, result)
}
