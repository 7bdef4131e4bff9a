package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/studio-assistant/internal/ai"
	"github.com/Vovarama1992/studio-assistant/internal/knowledge"
)

type memRecorder struct {
	mu     sync.Mutex
	events []DispatchEvent
	err    error
}

func (r *memRecorder) Record(_ context.Context, ev DispatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func defaultKB(t *testing.T) *knowledge.Base {
	t.Helper()
	kb, err := knowledge.Load("")
	require.NoError(t, err)
	return kb
}

func newTestService(t *testing.T, opts ...Option) (Service, *fakeBackend, *memRecorder) {
	t.Helper()
	kb := defaultKB(t)
	d, _, backend := newTestDispatcher(t, append([]Option{WithKnowledge(kb)}, opts...)...)
	rec := &memRecorder{}
	return NewService(d, kb, rec, nil), backend, rec
}

func TestServiceChatAssignsSessionID(t *testing.T) {
	svc, _, rec := newTestService(t)

	reply, err := svc.Chat(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)

	assert.Equal(t, ClassOK, reply.Classification)
	assert.Equal(t, "reply", reply.Content)
	assert.Empty(t, reply.Fallback)
	_, err = uuid.Parse(reply.SessionID)
	require.NoError(t, err)

	turns, err := svc.History(context.Background(), reply.SessionID)
	require.NoError(t, err)
	assert.Len(t, turns, 2)

	require.Len(t, rec.events, 1)
	assert.Equal(t, reply.SessionID, rec.events[0].SessionID)
	assert.Equal(t, ClassOK, rec.events[0].Classification)
	assert.Positive(t, rec.events[0].PromptChars)
}

func TestServiceChatKeepsSessionID(t *testing.T) {
	svc, _, _ := newTestService(t)

	reply, err := svc.Chat(context.Background(), Request{SessionID: "s-1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "s-1", reply.SessionID)
}

func TestServiceFallback(t *testing.T) {
	analytics := &UserContext{CurrentTool: "analytics"}

	tests := []struct {
		name      string
		limits    Limits
		err       error
		ctx       *UserContext
		wantClass Classification
		wantStart string
		wantKB    bool
	}{
		{
			name:      "local quota",
			limits:    Limits{Limit: 0, Window: DefaultLimits().Window},
			wantClass: ClassRateLimited,
			wantStart: guidanceRateLimited,
		},
		{
			name:      "transport with guide answer",
			err:       &ai.BackendError{Kind: ai.KindTransport, Message: "dial tcp"},
			ctx:       analytics,
			wantClass: ClassNetworkError,
			wantStart: guidanceNetwork,
			wantKB:    true,
		},
		{
			name:      "backend throttled",
			err:       &ai.BackendError{Kind: ai.KindRateLimited, StatusCode: 429},
			ctx:       analytics,
			wantClass: ClassBackendError,
			wantStart: guidanceBusy,
			wantKB:    true,
		},
		{
			name:      "server error",
			err:       &ai.BackendError{Kind: ai.KindServer, StatusCode: 500},
			wantClass: ClassBackendError,
			wantStart: guidanceHiccup,
			wantKB:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.limits.Window > 0 {
				opts = append(opts, WithLimits(tt.limits))
			}
			svc, backend, rec := newTestService(t, opts...)
			if tt.err != nil {
				backend.reply = func(context.Context, int, string) (string, error) { return "", tt.err }
			}

			reply, err := svc.Chat(context.Background(), Request{
				SessionID: "s",
				Message:   "my engagement is low",
				Context:   tt.ctx,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantClass, reply.Classification)
			assert.True(t, strings.HasPrefix(reply.Fallback, tt.wantStart), reply.Fallback)
			if tt.wantKB {
				assert.Contains(t, reply.Fallback, "from the studio guide")
				assert.Contains(t, reply.Fallback, "hook")
			} else {
				assert.NotContains(t, reply.Fallback, "studio guide")
			}

			require.Len(t, rec.events, 1)
			assert.Equal(t, tt.wantClass, rec.events[0].Classification)
		})
	}
}

func TestServiceRecorderFailureDoesNotFailChat(t *testing.T) {
	kb := defaultKB(t)
	d, _, _ := newTestDispatcher(t)
	svc := NewService(d, kb, &memRecorder{err: errors.New("disk full")}, nil)

	reply, err := svc.Chat(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, ClassOK, reply.Classification)
}

func TestServiceChatPropagatesEmptyMessage(t *testing.T) {
	svc, backend, rec := newTestService(t)

	_, err := svc.Chat(context.Background(), Request{Message: "  "})
	require.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, backend.callCount())
	assert.Empty(t, rec.events)
}

func TestServiceResetHistoryAndQuota(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Chat(ctx, Request{SessionID: "s", Message: "hi"})
	require.NoError(t, err)

	q := svc.Quota()
	assert.Equal(t, 1, q.Used)
	assert.Equal(t, 10, q.Limit)

	require.NoError(t, svc.ResetHistory(ctx, "s"))
	turns, err := svc.History(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestServiceSearch(t *testing.T) {
	svc, _, _ := newTestService(t)

	a, ok := svc.Search("which hashtags should I use", "trends")
	require.True(t, ok)
	assert.Contains(t, a.Text, "hashtags")

	_, ok = svc.Search("   ", "")
	assert.False(t, ok)

	withoutKB := NewService(NewDispatcher(newFakeBackend(newFakeClock())), nil, nil, nil)
	_, ok = withoutKB.Search("hashtags", "")
	assert.False(t, ok)
}

func TestServiceRecordsAttemptCanceledDuringBackendCall(t *testing.T) {
	svc, backend, rec := newTestService(t)

	started := make(chan struct{})
	backend.reply = func(ctx context.Context, _ int, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := svc.Chat(ctx, Request{SessionID: "s", Message: "hi"})
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, rec.events, 1)
	assert.Equal(t, ClassCanceled, rec.events[0].Classification)
	assert.Equal(t, ReasonCanceled, rec.events[0].Reason)
	assert.Equal(t, "s", rec.events[0].SessionID)
	assert.Positive(t, rec.events[0].PromptChars)
	assert.Equal(t, 1, svc.Quota().Used)
}

func TestServiceSkipsRecordWhenCanceledBeforeCall(t *testing.T) {
	kb := defaultKB(t)
	d, clock, backend := newTestDispatcher(t, WithKnowledge(kb))
	rec := &memRecorder{}
	svc := NewService(d, kb, rec, nil)

	_, err := svc.Chat(context.Background(), Request{SessionID: "s", Message: "first"})
	require.NoError(t, err)

	clock.hold = true
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = svc.Chat(ctx, Request{SessionID: "s", Message: "abandoned"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 1, backend.callCount())
	require.Len(t, rec.events, 1)
	assert.Equal(t, ClassOK, rec.events[0].Classification)
}
