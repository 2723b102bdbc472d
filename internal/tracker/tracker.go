package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PageViewPayload is one page-view report.
type PageViewPayload struct {
	Page      string `json:"page"`
	Referrer  string `json:"referrer,omitempty"`
	SessionID string `json:"sessionId"`
}

// EventPayload is one custom-event report.
type EventPayload struct {
	Type      string                 `json:"type"`
	Page      string                 `json:"page"`
	SessionID string                 `json:"sessionId"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Transport delivers reports to an ingestion surface.
type Transport interface {
	RecordPageView(ctx context.Context, payload PageViewPayload) (viewID string, err error)
	UpdateDuration(ctx context.Context, viewID string, seconds int) error
	RecordEvent(ctx context.Context, payload EventPayload) error
}

// Tracker observes a page lifecycle and reports it best-effort. Transport
// failures are logged, never returned: losing a beacon must not affect the
// page being instrumented.
type Tracker struct {
	transport Transport
	fallback  Transport
	sessions  SessionStore
	logger    *slog.Logger
	clock     func() time.Time

	mu          sync.Mutex
	currentPage string
	viewID      string
	enteredAt   time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithFallback sets a secondary transport for duration patches. The patch is
// tried once on the primary, once on the fallback, then dropped.
func WithFallback(t Transport) Option {
	return func(tr *Tracker) { tr.fallback = t }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(tr *Tracker) { tr.clock = clock }
}

func New(transport Transport, sessions SessionStore, logger *slog.Logger, opts ...Option) *Tracker {
	tr := &Tracker{
		transport: transport,
		sessions:  sessions,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// EnterPage reports a page view and remembers the returned view id so
// LeavePage can patch the dwell time. A previously open page is closed
// first. Reports are sent once; there is no retry.
func (tr *Tracker) EnterPage(ctx context.Context, page, referrer string) {
	token := tr.sessions.GetOrCreate()
	if token == "" {
		tr.logger.Debug("Session storage unavailable, tracking disabled")
		return
	}

	tr.LeavePage(ctx)

	viewID, err := tr.transport.RecordPageView(ctx, PageViewPayload{
		Page:      page,
		Referrer:  referrer,
		SessionID: token,
	})
	if err != nil {
		tr.logger.Debug("Page view report failed", "page", page, "error", err)
		return
	}

	tr.mu.Lock()
	tr.currentPage = page
	tr.viewID = viewID
	tr.enteredAt = tr.clock()
	tr.mu.Unlock()
}

// LeavePage computes the elapsed dwell time of the open page and patches it
// best-effort: primary transport once, fallback once, then drop. A no-op
// when no page is open or the server ignored the view.
func (tr *Tracker) LeavePage(ctx context.Context) {
	tr.mu.Lock()
	viewID := tr.viewID
	enteredAt := tr.enteredAt
	page := tr.currentPage
	tr.currentPage = ""
	tr.viewID = ""
	tr.mu.Unlock()

	if viewID == "" {
		return
	}

	seconds := int(tr.clock().Sub(enteredAt).Seconds())
	if seconds < 0 {
		seconds = 0
	}

	if err := tr.transport.UpdateDuration(ctx, viewID, seconds); err == nil {
		return
	} else if tr.fallback == nil {
		tr.logger.Debug("Duration patch dropped", "page", page, "error", err)
		return
	}

	if err := tr.fallback.UpdateDuration(ctx, viewID, seconds); err != nil {
		tr.logger.Debug("Duration patch dropped after fallback", "page", page, "error", err)
	}
}

// TrackEvent reports a custom interaction on the current (or given) page.
// Sent once, best-effort.
func (tr *Tracker) TrackEvent(ctx context.Context, eventType, page string, data map[string]interface{}) {
	token := tr.sessions.GetOrCreate()
	if token == "" {
		tr.logger.Debug("Session storage unavailable, tracking disabled")
		return
	}

	if page == "" {
		tr.mu.Lock()
		page = tr.currentPage
		tr.mu.Unlock()
	}

	err := tr.transport.RecordEvent(ctx, EventPayload{
		Type:      eventType,
		Page:      page,
		SessionID: token,
		Data:      data,
	})
	if err != nil {
		tr.logger.Debug("Event report failed", "type", eventType, "error", err)
	}
}
