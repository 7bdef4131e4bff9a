// Package usage — учёт исходов dispatch и дневные сводки.
package usage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Vovarama1992/studio-assistant/internal/assistant"
)

// Event — один исход dispatch, пишутся по порядку времени
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	SessionID      string    `json:"session_id"`
	Classification string    `json:"classification"`
	Reason         string    `json:"reason,omitempty"`
	LatencyMS      int64     `json:"latency_ms"`
	PromptChars    int       `json:"prompt_chars"`
}

// FileRecorder дописывает события в JSONL файл, можно звать из разных горутин
type FileRecorder struct {
	path string
	mu   sync.Mutex
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure usage dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("init usage file: %w", err)
	}
	_ = f.Close()
	return &FileRecorder{path: path}, nil
}

// Record — реализация assistant.Recorder
func (r *FileRecorder) Record(_ context.Context, ev assistant.DispatchEvent) error {
	return r.Append(Event{
		Timestamp:      ev.At.UTC(),
		SessionID:      ev.SessionID,
		Classification: string(ev.Classification),
		Reason:         ev.Reason,
		LatencyMS:      ev.Latency.Milliseconds(),
		PromptChars:    ev.PromptChars,
	})
}

func (r *FileRecorder) Append(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open append: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(ev); err != nil {
		return fmt.Errorf("encode append: %w", err)
	}
	return nil
}

// Load читает все события, битые строки пропускает
func (r *FileRecorder) Load() ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open read: %w", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var events []Event
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return events, nil
}

type DailySummary struct {
	Date             string         `json:"date"`
	Total            int            `json:"total"`
	Sessions         int            `json:"sessions"`
	ByClassification map[string]int `json:"by_classification"`
	ByReason         map[string]int `json:"by_reason"`
	AvgLatencyMS     int64          `json:"avg_latency_ms"`
}

// Summarize считает события за сутки day (в её часовом поясе)
func Summarize(events []Event, day time.Time) DailySummary {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	sum := DailySummary{
		Date:             start.Format("2006-01-02"),
		ByClassification: make(map[string]int),
		ByReason:         make(map[string]int),
	}

	sessions := make(map[string]struct{})
	var latencyTotal int64
	var okCount int64

	for _, ev := range events {
		if ev.Timestamp.Before(start) || !ev.Timestamp.Before(end) {
			continue
		}
		sum.Total++
		sessions[ev.SessionID] = struct{}{}
		sum.ByClassification[ev.Classification]++
		if ev.Reason != "" {
			sum.ByReason[ev.Reason]++
		}
		if ev.Classification == string(assistant.ClassOK) {
			latencyTotal += ev.LatencyMS
			okCount++
		}
	}

	sum.Sessions = len(sessions)
	if okCount > 0 {
		sum.AvgLatencyMS = latencyTotal / okCount
	}
	return sum
}

func (s DailySummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "assistant usage %s: %d dispatches, %d sessions, avg ok latency %dms",
		s.Date, s.Total, s.Sessions, s.AvgLatencyMS)

	keys := make([]string, 0, len(s.ByClassification))
	for k := range s.ByClassification {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ", %s=%d", k, s.ByClassification[k])
	}
	return b.String()
}
