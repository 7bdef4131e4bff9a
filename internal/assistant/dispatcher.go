package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Vovarama1992/studio-assistant/internal/ai"
	"github.com/Vovarama1992/studio-assistant/internal/knowledge"
)

const DefaultBackendTimeout = 30 * time.Second

// Dispatcher пропускает вызовы к бэкенду через квоту окна и интервал,
// собирает промпт, делает один вызов и классифицирует исход.
// Можно звать из разных горутин.
type Dispatcher struct {
	backend     ai.Completer
	history     HistoryStore
	kb          KnowledgeBase
	clock       Clock
	limits      Limits
	window      *RateWindow
	timeout     time.Duration
	promptTurns int
	log         *zap.Logger
}

type Option func(*Dispatcher)

func WithHistory(h HistoryStore) Option { return func(d *Dispatcher) { d.history = h } }

func WithKnowledge(kb KnowledgeBase) Option { return func(d *Dispatcher) { d.kb = kb } }

func WithClock(c Clock) Option { return func(d *Dispatcher) { d.clock = c } }

func WithLimits(l Limits) Option { return func(d *Dispatcher) { d.limits = l } }

// WithTimeout ограничивает каждый вызов бэкенда, 0 — без ограничения
func WithTimeout(t time.Duration) Option { return func(d *Dispatcher) { d.timeout = t } }

// WithPromptTurns — сколько последних реплик идёт в промпт, 0 — все
func WithPromptTurns(n int) Option { return func(d *Dispatcher) { d.promptTurns = n } }

func WithLogger(l *zap.Logger) Option { return func(d *Dispatcher) { d.log = l } }

func NewDispatcher(backend ai.Completer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		backend: backend,
		clock:   systemClock{},
		limits:  DefaultLimits(),
		timeout: DefaultBackendTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.history == nil {
		d.history = NewMemoryHistory()
	}
	d.window = NewRateWindow(d.limits, d.clock.Now())
	return d
}

// Dispatch отправляет одно сообщение в бэкенд. Ожидаемые сбои приходят
// классифицированным Result с nil ошибкой. Ошибка бывает только при пустом
// сообщении, отмене вызывающим или сбое хранилища истории.
// Отмена во время вызова бэкенда: ErrCanceledInFlight поверх ctx.Err()
// плюс время отправки и размер промпта в Result.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Result{}, ErrEmptyMessage
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	log := d.log.With(zap.String("session_id", req.SessionID))

	now := d.clock.Now()
	slot, ok, retryAfter := d.window.reserve(now)
	if !ok {
		log.Info("dispatch rejected: quota spent", zap.Duration("retry_after", retryAfter))
		return Result{
			Classification: ClassRateLimited,
			Reason:         ReasonQuota,
			Message:        "request quota reached for the current window",
			RetryAfter:     retryAfter,
		}, nil
	}

	if slot.wait > 0 {
		log.Debug("dispatch delayed for spacing", zap.Duration("wait", slot.wait))
		select {
		case <-ctx.Done():
			d.window.release(slot)
			return Result{}, ctx.Err()
		case <-d.clock.After(slot.wait):
		}
	}

	history, err := d.history.Turns(ctx, req.SessionID)
	if err != nil {
		d.window.release(slot)
		return Result{}, fmt.Errorf("load history: %w", err)
	}

	prompt := composePrompt(promptParts{
		feature: d.feature(req.Context),
		context: req.Context,
		history: lastTurns(history, d.promptTurns),
		message: req.Message,
	})

	callCtx, cancel := d.callContext(ctx)
	defer cancel()

	dispatchedAt := d.clock.Now()
	reply, err := d.backend.Complete(callCtx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			// вызывающий ушёл, попытка всё равно засчитана
			return Result{DispatchedAt: dispatchedAt, PromptChars: len(prompt)},
				fmt.Errorf("%w: %w", ErrCanceledInFlight, ctx.Err())
		}
		res := classify(err)
		res.DispatchedAt = dispatchedAt
		res.PromptChars = len(prompt)
		log.Warn("dispatch failed",
			zap.String("classification", string(res.Classification)),
			zap.String("reason", res.Reason),
			zap.Int("status", res.StatusCode),
			zap.Error(err),
		)
		return res, nil
	}

	completedAt := d.clock.Now()
	if err := d.history.Append(ctx, req.SessionID,
		Turn{Role: RoleUser, Content: req.Message, CreatedAt: dispatchedAt},
		Turn{Role: RoleAssistant, Content: reply, CreatedAt: completedAt},
	); err != nil {
		return Result{}, fmt.Errorf("append history: %w", err)
	}

	log.Debug("dispatch ok",
		zap.Int("prompt_chars", len(prompt)),
		zap.Duration("latency", completedAt.Sub(dispatchedAt)),
	)

	return Result{
		Content:        reply,
		Classification: ClassOK,
		DispatchedAt:   dispatchedAt,
		PromptChars:    len(prompt),
	}, nil
}

func (d *Dispatcher) Quota() QuotaSnapshot {
	return d.window.Snapshot(d.clock.Now())
}

func (d *Dispatcher) History() HistoryStore {
	return d.history
}

func (d *Dispatcher) feature(uc *UserContext) *knowledge.Feature {
	if d.kb == nil || uc == nil || uc.CurrentTool == "" {
		return nil
	}
	f, ok := d.kb.Feature(uc.CurrentTool)
	if !ok {
		return nil
	}
	return &f
}

func (d *Dispatcher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}
