package usage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/studio-assistant/internal/assistant"
)

func TestFileRecorderRecordAndLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "usage.jsonl")
	rec, err := NewFileRecorder(p)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, assistant.DispatchEvent{
		At:             time.Unix(10, 0),
		SessionID:      "s1",
		Classification: assistant.ClassOK,
		Latency:        1500 * time.Millisecond,
		PromptChars:    420,
	}))
	require.NoError(t, rec.Record(ctx, assistant.DispatchEvent{
		At:             time.Unix(20, 0),
		SessionID:      "s2",
		Classification: assistant.ClassBackendError,
		Reason:         assistant.ReasonRateLimited,
	}))

	// мусорная строка пропускается
	f, err := os.OpenFile(p, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	events, err := rec.Load()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "s1", events[0].SessionID)
	assert.Equal(t, int64(1500), events[0].LatencyMS)
	assert.Equal(t, 420, events[0].PromptChars)
	assert.Equal(t, "backend_error", events[1].Classification)
	assert.Equal(t, "rate_limited", events[1].Reason)
}

func TestSummarize(t *testing.T) {
	day := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: day.Add(-time.Minute), SessionID: "old", Classification: "ok", LatencyMS: 9999},
		{Timestamp: day.Add(time.Hour), SessionID: "a", Classification: "ok", LatencyMS: 100},
		{Timestamp: day.Add(2 * time.Hour), SessionID: "a", Classification: "ok", LatencyMS: 300},
		{Timestamp: day.Add(3 * time.Hour), SessionID: "b", Classification: "rate_limited", Reason: "quota"},
		{Timestamp: day.Add(4 * time.Hour), SessionID: "b", Classification: "network_error", Reason: "timeout"},
		{Timestamp: day.Add(24 * time.Hour), SessionID: "next", Classification: "ok"},
	}

	sum := Summarize(events, day.Add(15*time.Hour))
	assert.Equal(t, "2026-10-17", sum.Date)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.Sessions)
	assert.Equal(t, map[string]int{"ok": 2, "rate_limited": 1, "network_error": 1}, sum.ByClassification)
	assert.Equal(t, map[string]int{"quota": 1, "timeout": 1}, sum.ByReason)
	assert.Equal(t, int64(200), sum.AvgLatencyMS)
	assert.Equal(t,
		"assistant usage 2026-10-17: 4 dispatches, 2 sessions, avg ok latency 200ms, network_error=1, ok=2, rate_limited=1",
		sum.String())
}

func TestSummarizeCountsCanceledAttempts(t *testing.T) {
	p := filepath.Join(t.TempDir(), "usage.jsonl")
	rec, err := NewFileRecorder(p)
	require.NoError(t, err)

	at := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, assistant.DispatchEvent{At: at, SessionID: "a", Classification: assistant.ClassOK}))
	require.NoError(t, rec.Record(ctx, assistant.DispatchEvent{
		At:             at.Add(time.Minute),
		SessionID:      "a",
		Classification: assistant.ClassCanceled,
		Reason:         assistant.ReasonCanceled,
		PromptChars:    120,
	}))

	events, err := rec.Load()
	require.NoError(t, err)

	sum := Summarize(events, at)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, map[string]int{"ok": 1, "canceled": 1}, sum.ByClassification)
	assert.Equal(t, map[string]int{"canceled": 1}, sum.ByReason)
}
