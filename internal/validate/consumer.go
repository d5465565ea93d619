package validate

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/naseaoi/IceTV/internal/models"
)

// ErrRunTimeout reports that the run's ceiling elapsed (client-side, or
// the server closed the stream without a complete event). Delivered
// results are preserved; unsettled sources are marked invalid.
var ErrRunTimeout = errors.New("validation run timed out")

// ErrStreamFailed reports a transport-level failure of the event stream.
// The run can be retried by starting a new one.
var ErrStreamFailed = errors.New("validation stream failed")

// Consumer opens the validation event stream and folds it into a
// per-source status map. At most one run is live per Consumer: starting a
// new run cancels the previous one and resets the map.
type Consumer struct {
	BaseURL string        // server root, e.g. "http://127.0.0.1:8080"
	Client  *http.Client  // defaults to http.DefaultClient
	Ceiling time.Duration // client-side guard, independent of the server ceiling
	Header  http.Header   // extra request headers (auth cookie)

	mu      sync.RWMutex
	gen     uint64 // run generation; writes from superseded runs are dropped
	results map[string]models.ValidationResult
	cancel  context.CancelFunc
}

// Results returns a snapshot of the current per-source statuses.
func (c *Consumer) Results() map[string]models.ValidationResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]models.ValidationResult, len(c.results))
	for k, v := range c.results {
		out[k] = v
	}
	return out
}

// Stop aborts the live run, if any, closing the underlying transport.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Run starts a validation run for keyword and blocks until it settles.
// The status map is reset and seeded to checking for every enabled
// source; events are applied by this goroutine alone as they arrive.
func (c *Consumer) Run(ctx context.Context, sources []models.Source, keyword string) error {
	if strings.TrimSpace(keyword) == "" {
		return fmt.Errorf("%w: keyword must not be empty", ErrStreamFailed)
	}
	c.Stop()

	if c.Ceiling > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Ceiling)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.results = make(map[string]models.ValidationResult, len(sources))
	for _, s := range sources {
		if s.Disabled {
			continue
		}
		c.results[s.Key] = models.ValidationResult{
			SourceKey: s.Key,
			Status:    models.StatusChecking,
		}
	}
	c.mu.Unlock()

	resp, err := c.open(ctx, gen, keyword)
	if err != nil {
		c.failUnsettled(gen, "stream could not be opened")
		return err
	}
	defer resp.Body.Close()

	return c.consume(ctx, gen, resp)
}

func (c *Consumer) open(ctx context.Context, gen uint64, keyword string) (*http.Response, error) {
	endpoint := strings.TrimRight(c.BaseURL, "/") +
		"/api/admin/source/validate?q=" + url.QueryEscape(strings.TrimSpace(keyword))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamFailed, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, c.classify(ctx, gen, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d", ErrStreamFailed, resp.StatusCode)
	}
	return resp, nil
}

// consume is the single-threaded reducer loop: it alone applies events to
// the status map until complete, stream closure, or cancellation.
func (c *Consumer) consume(ctx context.Context, gen uint64, resp *http.Response) error {
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(strings.TrimSpace(line[len("data:"):])), &ev); err != nil {
			c.failUnsettled(gen, "malformed event")
			return fmt.Errorf("%w: decode event: %v", ErrStreamFailed, err)
		}
		if done := c.apply(gen, ev); done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return c.classify(ctx, gen, err)
	}
	// Clean EOF without a complete event: the server hit its ceiling.
	c.failUnsettled(gen, "run timed out")
	return ErrRunTimeout
}

// apply folds one event into the map. Unknown source keys are inserted,
// covering sources added after the map was seeded. A cancelled run can
// still drain events it had buffered; its writes carry a stale generation
// and are dropped, so only the live run touches the map.
func (c *Consumer) apply(gen uint64, ev Event) (done bool) {
	switch ev.Type {
	case EventSourceResult, EventSourceError:
		c.mu.Lock()
		if gen == c.gen {
			c.results[ev.Source] = models.ValidationResult{
				SourceKey: ev.Source,
				Status:    ev.Status,
				Message:   ev.Message,
			}
		}
		c.mu.Unlock()
		return false
	case EventComplete:
		return true
	default:
		return false
	}
}

// classify maps a transport error to timeout versus connection failure so
// the caller can notify the user distinctly, and marks unsettled sources.
func (c *Consumer) classify(ctx context.Context, gen uint64, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.failUnsettled(gen, "run timed out")
		return ErrRunTimeout
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return context.Canceled
	}
	c.failUnsettled(gen, "connection error")
	return fmt.Errorf("%w: %v", ErrStreamFailed, err)
}

// failUnsettled marks every source still checking as invalid; results
// already delivered stay intact. No-op for a superseded run.
func (c *Consumer) failUnsettled(gen uint64, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	for key, r := range c.results {
		if r.Status == models.StatusChecking {
			r.Status = models.StatusInvalid
			r.Message = message
			c.results[key] = r
		}
	}
}
