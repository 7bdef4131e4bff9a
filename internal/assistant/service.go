package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Vovarama1992/studio-assistant/internal/knowledge"
)

// Подсказки для UI по классу ошибки
const (
	guidanceRateLimited = "You're sending messages a bit fast. Wait a moment and try again."
	guidanceNetwork     = "I can't reach the assistant service right now. Check your connection and try again."
	guidanceBusy        = "The assistant is busy right now. Try again in a moment."
	guidanceHiccup      = "The assistant service hit a hiccup. Please try again later."
)

type service struct {
	dispatcher *Dispatcher
	kb         KnowledgeBase
	recorder   Recorder
	log        *zap.Logger
}

// NewService — kb и recorder опциональны
func NewService(d *Dispatcher, kb KnowledgeBase, recorder Recorder, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		dispatcher: d,
		kb:         kb,
		recorder:   recorder,
		log:        log,
	}
}

func (s *service) Chat(ctx context.Context, req Request) (Reply, error) {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	started := s.dispatcher.clock.Now()
	res, err := s.dispatcher.Dispatch(ctx, req)
	if err != nil {
		if errors.Is(err, ErrCanceledInFlight) {
			// слот уже в квоте, в учёте он тоже должен быть
			s.record(context.WithoutCancel(ctx), req.SessionID, Result{
				Classification: ClassCanceled,
				Reason:         ReasonCanceled,
				PromptChars:    res.PromptChars,
			}, s.dispatcher.clock.Now().Sub(started))
		}
		return Reply{}, err
	}

	s.record(ctx, req.SessionID, res, s.dispatcher.clock.Now().Sub(started))

	reply := Reply{Result: res, SessionID: req.SessionID}
	if res.Classification != ClassOK {
		reply.Fallback = s.fallback(req, res)
	}
	return reply, nil
}

// fallback собирает подсказку и, если нашлось, готовый ответ из базы знаний
func (s *service) fallback(req Request, res Result) string {
	var guidance string
	switch res.Classification {
	case ClassRateLimited:
		// локальный отказ, ответ из базы не нужен
		return guidanceRateLimited
	case ClassNetworkError:
		guidance = guidanceNetwork
	default:
		guidance = guidanceHiccup
		if res.Reason == ReasonRateLimited {
			guidance = guidanceBusy
		}
	}

	if s.kb == nil {
		return guidance
	}
	tab := ""
	if req.Context != nil {
		tab = req.Context.CurrentTool
	}
	if a, ok := s.kb.Search(req.Message, tab); ok {
		return guidance + "\n\nMeanwhile, from the studio guide:\n" + a.Text
	}
	return guidance
}

func (s *service) record(ctx context.Context, sessionID string, res Result, latency time.Duration) {
	if s.recorder == nil {
		return
	}
	ev := DispatchEvent{
		At:             s.dispatcher.clock.Now(),
		SessionID:      sessionID,
		Classification: res.Classification,
		Reason:         res.Reason,
		Latency:        latency,
		PromptChars:    res.PromptChars,
	}
	if err := s.recorder.Record(ctx, ev); err != nil {
		s.log.Warn("usage record failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *service) History(ctx context.Context, sessionID string) ([]Turn, error) {
	return s.dispatcher.History().Turns(ctx, sessionID)
}

func (s *service) ResetHistory(ctx context.Context, sessionID string) error {
	return s.dispatcher.History().Reset(ctx, sessionID)
}

func (s *service) Quota() QuotaSnapshot {
	return s.dispatcher.Quota()
}

func (s *service) Search(query, tab string) (knowledge.Answer, bool) {
	if s.kb == nil || strings.TrimSpace(query) == "" {
		return knowledge.Answer{}, false
	}
	return s.kb.Search(query, tab)
}
