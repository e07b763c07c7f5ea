package stats

import "time"

// TokenStats 短信 Token 签发与校验统计
// 进程内计数，重启后清零
type TokenStats struct {
	issued            *Counter
	deliveryFailures  *Counter
	validationsPassed *Counter
	validationsFailed *Counter
	requests          *Counter
	startedAt         time.Time
	now               func() time.Time
}

// Snapshot 统计快照
type Snapshot struct {
	TokensIssued      int64   `json:"tokens_issued"`
	DeliveryFailures  int64   `json:"delivery_failures"`
	ValidationsPassed int64   `json:"validations_passed"`
	ValidationsFailed int64   `json:"validations_failed"`
	IssueRate         float64 `json:"issue_rate"`
	ValidationRate    float64 `json:"validation_rate"`
	Requests          int64   `json:"requests"`
	RequestRate       float64 `json:"request_rate"`
	UptimeSeconds     int64   `json:"uptime_seconds"`
}

// NewTokenStats 创建统计实例
func NewTokenStats(windowDuration time.Duration) *TokenStats {
	return newTokenStats(windowDuration, time.Now)
}

func newTokenStats(windowDuration time.Duration, now func() time.Time) *TokenStats {
	return &TokenStats{
		issued:            newCounter(windowDuration, now),
		deliveryFailures:  newCounter(windowDuration, now),
		validationsPassed: newCounter(windowDuration, now),
		validationsFailed: newCounter(windowDuration, now),
		requests:          newCounter(windowDuration, now),
		startedAt:         now(),
		now:               now,
	}
}

// RecordIssued 记录一次签发
func (s *TokenStats) RecordIssued(delivered bool) {
	s.issued.Increment()
	if !delivered {
		s.deliveryFailures.Increment()
	}
}

// RecordValidation 记录一次校验
func (s *TokenStats) RecordValidation(valid bool) {
	if valid {
		s.validationsPassed.Increment()
	} else {
		s.validationsFailed.Increment()
	}
}

// RecordRequest 记录一次 HTTP 请求
func (s *TokenStats) RecordRequest() {
	s.requests.Increment()
}

// Snapshot 获取当前统计
func (s *TokenStats) Snapshot() Snapshot {
	return Snapshot{
		TokensIssued:      s.issued.Total(),
		DeliveryFailures:  s.deliveryFailures.Total(),
		ValidationsPassed: s.validationsPassed.Total(),
		ValidationsFailed: s.validationsFailed.Total(),
		IssueRate:         s.issued.Rate(),
		ValidationRate:    s.validationsPassed.Rate() + s.validationsFailed.Rate(),
		Requests:          s.requests.Total(),
		RequestRate:       s.requests.Rate(),
		UptimeSeconds:     int64(s.now().Sub(s.startedAt).Seconds()),
	}
}
