package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"betcha_portal/internal/adapters/observability"
	"betcha_portal/internal/domain"
)

// RenderFunc receives a ticket whenever the watcher decides the view is out
// of date. Messages arrive sorted ascending by dateTime.
type RenderFunc func(domain.Ticket)

// TicketWatcher polls one selected support ticket on a fixed interval and
// re-renders only when the message count changed, so an idle conversation
// never flickers.
//
// Lifecycle: Idle -> (Select) -> Polling -> (Select again, Stop, or context
// cancellation) -> Idle. At most one timer runs at a time; selecting a new
// ticket stops the previous loop. A poll response that resolves after the
// selection has moved on is discarded rather than overwriting the newer
// ticket's view.
type TicketWatcher struct {
	api      domain.BetchaClient
	interval time.Duration
	render   RenderFunc

	mu        sync.Mutex
	ticketID  string
	lastCount int
	cancel    context.CancelFunc
}

func NewTicketWatcher(api domain.BetchaClient, interval time.Duration, render RenderFunc) *TicketWatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &TicketWatcher{api: api, interval: interval, render: render}
}

// Select stops any running poll loop, fetches the ticket once, renders it,
// and starts polling it. The loop lives until ctx is canceled, Stop is
// called, or another Select replaces it.
func (w *TicketWatcher) Select(ctx context.Context, ticketID string) error {
	w.Stop()

	t, err := w.api.Ticket(ctx, ticketID)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.ticketID = ticketID
	w.lastCount = len(t.Messages)
	w.cancel = cancel
	w.mu.Unlock()

	w.render(t)
	go w.loop(loopCtx, ticketID)
	return nil
}

// Stop cancels the poll loop and clears the selection. Safe to call when
// already idle.
func (w *TicketWatcher) Stop() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.ticketID = ""
	w.mu.Unlock()
}

func (w *TicketWatcher) loop(ctx context.Context, ticketID string) {
	tk := time.NewTicker(w.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
		}

		w.mu.Lock()
		current := w.ticketID
		w.mu.Unlock()
		if current != ticketID {
			return // superseded between ticks
		}

		t, err := w.api.Ticket(ctx, ticketID)
		if err != nil {
			// Swallowed per tick; the next interval tries again.
			observability.ObservePoll("error")
			log.Warn().Str("ticket", ticketID).Err(err).Msg("ticket poll failed")
			continue
		}

		w.mu.Lock()
		if w.ticketID != ticketID {
			// The fetch was in flight while the selection changed; its
			// payload belongs to the old ticket and must not render.
			w.mu.Unlock()
			observability.ObservePoll("stale")
			return
		}
		if len(t.Messages) == w.lastCount {
			w.mu.Unlock()
			observability.ObservePoll("unchanged")
			continue
		}
		w.lastCount = len(t.Messages)
		w.mu.Unlock()

		observability.ObservePoll("changed")
		w.render(t)
	}
}
