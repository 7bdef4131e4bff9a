package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/Vovarama1992/studio-assistant/internal/knowledge"
)

var (
	ErrEmptyMessage = errors.New("assistant: message is empty")
	// ErrCanceledInFlight: вызов бэкенда начат и брошен, слот квоты израсходован
	ErrCanceledInFlight = errors.New("assistant: canceled during backend call")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn — одна реплика диалога
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Classification string

const (
	ClassOK           Classification = "ok"
	ClassRateLimited  Classification = "rate_limited"
	ClassNetworkError Classification = "network_error"
	ClassBackendError Classification = "backend_error"

	// ClassCanceled бывает только в DispatchEvent, не в Result
	ClassCanceled Classification = "canceled"
)

// Reason уточняет Classification
const (
	ReasonQuota       = "quota"
	ReasonRateLimited = "rate_limited"
	ReasonServerError = "server_error"
	ReasonAuth        = "auth"
	ReasonBadRequest  = "bad_request"
	ReasonTimeout     = "timeout"
	ReasonTransport   = "transport"
	ReasonCanceled    = "canceled"
)

type Project struct {
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
}

type Activity struct {
	Action string    `json:"action"`
	Tool   string    `json:"tool,omitempty"`
	At     time.Time `json:"at,omitempty"`
}

type Performance struct {
	TotalViews     int64   `json:"total_views"`
	EngagementRate float64 `json:"engagement_rate"`
	Followers      int64   `json:"followers"`
	GrowthRate     float64 `json:"growth_rate"`
	TopPlatform    string  `json:"top_platform,omitempty"`
}

// UserContext приходит от вызывающего и только читается
type UserContext struct {
	Projects       []Project         `json:"projects,omitempty"`
	CurrentTool    string            `json:"current_tool,omitempty"`
	RecentActivity []Activity        `json:"recent_activity,omitempty"`
	Performance    *Performance      `json:"performance,omitempty"`
	Goals          []string          `json:"goals,omitempty"`
	PlanTier       string            `json:"plan_tier,omitempty"`
	Preferences    map[string]string `json:"preferences,omitempty"`
}

type Request struct {
	SessionID string
	Message   string
	Context   *UserContext
}

type Result struct {
	Content        string         `json:"content"`
	Classification Classification `json:"classification"`
	Reason         string         `json:"reason,omitempty"`
	Message        string         `json:"message,omitempty"`
	StatusCode     int            `json:"status_code,omitempty"`
	RetryAfter     time.Duration  `json:"-"`
	DispatchedAt   time.Time      `json:"dispatched_at,omitempty"`
	PromptChars    int            `json:"-"`
}

type QuotaSnapshot struct {
	Used        int           `json:"used"`
	Limit       int           `json:"limit"`
	WindowStart time.Time     `json:"window_start"`
	ResetsIn    time.Duration `json:"-"`
	LastRequest time.Time     `json:"last_request,omitempty"`
}

// HistoryStore — хранение диалогов по сессиям
type HistoryStore interface {
	Turns(ctx context.Context, sessionID string) ([]Turn, error)
	Append(ctx context.Context, sessionID string, turns ...Turn) error
	Reset(ctx context.Context, sessionID string) error
}

// Pruner — опционально, для чистки старой истории
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type KnowledgeBase interface {
	Feature(tab string) (knowledge.Feature, bool)
	Search(query, tab string) (knowledge.Answer, bool)
}

// Recorder — учёт исходов dispatch
type Recorder interface {
	Record(ctx context.Context, ev DispatchEvent) error
}

type DispatchEvent struct {
	At             time.Time
	SessionID      string
	Classification Classification
	Reason         string
	Latency        time.Duration
	PromptChars    int
}

// Service — то, что зовёт HTTP слой
type Service interface {
	Chat(ctx context.Context, req Request) (Reply, error)
	History(ctx context.Context, sessionID string) ([]Turn, error)
	ResetHistory(ctx context.Context, sessionID string) error
	Quota() QuotaSnapshot
	Search(query, tab string) (knowledge.Answer, bool)
}

type Reply struct {
	Result
	SessionID string `json:"session_id"`
	Fallback  string `json:"fallback,omitempty"`
}
