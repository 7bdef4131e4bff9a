package assistant

import (
	"sync"
	"time"
)

type Limits struct {
	Limit   int
	Window  time.Duration
	Spacing time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		Limit:   10,
		Window:  60 * time.Second,
		Spacing: 2 * time.Second,
	}
}

// RateWindow — квота одного диспетчера. Проверка, резерв и счётчики
// меняются под mu до того, как вызывающий уснёт.
type RateWindow struct {
	mu     sync.Mutex
	limits Limits

	requestCount int
	windowStart  time.Time
	lastRequest  time.Time
}

func NewRateWindow(limits Limits, now time.Time) *RateWindow {
	return &RateWindow{limits: limits, windowStart: now}
}

type reservation struct {
	at          time.Time
	wait        time.Duration
	windowStart time.Time
}

// reserve занимает слот на now или позже. Квота исчерпана — false
// и время до сброса окна.
func (w *RateWindow) reserve(now time.Time) (reservation, bool, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.windowStart) > w.limits.Window {
		w.requestCount = 0
		w.windowStart = now
	}

	if w.requestCount >= w.limits.Limit {
		return reservation{}, false, w.resetsIn(now)
	}

	at := now
	if !w.lastRequest.IsZero() {
		if next := w.lastRequest.Add(w.limits.Spacing); next.After(at) {
			at = next
		}
	}

	w.requestCount++
	w.lastRequest = at

	return reservation{at: at, wait: at.Sub(now), windowStart: w.windowStart}, true, 0
}

// release возвращает слот, если вызова не было. lastRequest не трогаем:
// от него уже могли отсчитать следующие резервы.
func (w *RateWindow) release(r reservation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.windowStart.Equal(r.windowStart) && w.requestCount > 0 {
		w.requestCount--
	}
}

func (w *RateWindow) Snapshot(now time.Time) QuotaSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := QuotaSnapshot{
		Used:        w.requestCount,
		Limit:       w.limits.Limit,
		WindowStart: w.windowStart,
		ResetsIn:    w.resetsIn(now),
		LastRequest: w.lastRequest,
	}
	if now.Sub(w.windowStart) > w.limits.Window {
		snap.Used = 0
		snap.WindowStart = now
		snap.ResetsIn = w.limits.Window
	}
	return snap
}

func (w *RateWindow) resetsIn(now time.Time) time.Duration {
	d := w.windowStart.Add(w.limits.Window).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
