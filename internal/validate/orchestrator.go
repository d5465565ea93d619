package validate

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/naseaoi/IceTV/internal/models"
)

// Orchestrator fans a search probe out to every enabled source and
// delivers events in completion order. One goroutine per source: the
// source count is the operator-configured list, so no worker pool caps
// the fan-out.
type Orchestrator struct {
	client       *http.Client
	userAgent    string
	probeTimeout time.Duration
	ceiling      time.Duration
}

// NewOrchestrator creates an Orchestrator. probeTimeout bounds each
// individual probe; ceiling bounds the whole run so the stream terminates
// even if a probe's own timeout mechanism fails.
func NewOrchestrator(userAgent string, probeTimeout, ceiling time.Duration) *Orchestrator {
	return &Orchestrator{
		// The per-probe context carries the timeout; the shared client
		// only needs sane transport defaults.
		client:       &http.Client{},
		userAgent:    userAgent,
		probeTimeout: probeTimeout,
		ceiling:      ceiling,
	}
}

// Run starts one validation run and returns its event channel. The
// channel delivers one start event, one terminal event per enabled
// source as soon as that probe settles, and a complete event once all
// have reported; it is closed without a complete event when the ceiling
// elapses or ctx is cancelled. Cancelling ctx (client disconnect) also
// abandons in-flight probes.
func (o *Orchestrator) Run(ctx context.Context, sources []models.Source, keyword string) <-chan Event {
	enabled := make([]models.Source, 0, len(sources))
	for _, s := range sources {
		if !s.Disabled {
			enabled = append(enabled, s)
		}
	}

	// Buffered so emission never blocks: the run always winds down even
	// if the consumer stops reading mid-stream.
	out := make(chan Event, len(enabled)+2)

	go func() {
		defer close(out)
		out <- Event{Type: EventStart, Total: len(enabled)}

		probeCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		settled := make(chan Event, len(enabled))
		var wg sync.WaitGroup
		for _, src := range enabled {
			wg.Add(1)
			go func(src models.Source) {
				defer wg.Done()
				settled <- o.probeEvent(probeCtx, src, keyword)
			}(src)
		}
		go func() {
			wg.Wait()
			close(settled)
		}()

		ceiling := time.NewTimer(o.ceiling)
		defer ceiling.Stop()

		for {
			select {
			case ev, ok := <-settled:
				if !ok {
					out <- Event{Type: EventComplete}
					return
				}
				out <- ev
			case <-ceiling.C:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (o *Orchestrator) probeEvent(ctx context.Context, src models.Source, keyword string) Event {
	outcome := probe(ctx, o.client, src, keyword, o.userAgent, o.probeTimeout)
	typ := EventSourceResult
	if outcome.Status == models.StatusInvalid {
		typ = EventSourceError
	}
	return Event{
		Type:    typ,
		Source:  src.Key,
		Status:  outcome.Status,
		Message: outcome.Message,
	}
}
