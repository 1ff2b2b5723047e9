package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"ms-groups/internal/logger"
	"ms-groups/internal/models"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxFragmentBytes = 1 << 20

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Container receives fragments in arrival order.
type Container interface {
	Append(ctx context.Context, f models.Fragment) error
}

// Observer is called once per request outcome. Observers run one at a time,
// in arrival order, on their own goroutine so they never hold up appends.
type Observer func(models.DispatchResult)

type Option func(*Dispatcher)

func WithMode(mode models.DispatchMode) Option {
	return func(d *Dispatcher) { d.mode = mode }
}

// WithBaseURL resolves relative group_url and nsid targets.
func WithBaseURL(base *url.URL) Option {
	return func(d *Dispatcher) { d.baseURL = base }
}

// WithConcurrency caps in-flight requests per batch. 0 means no cap.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) { d.limit = n }
}

// WithRequestTimeout bounds each request. 0 leaves requests to the client.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

func WithMaxFragmentBytes(n int64) Option {
	return func(d *Dispatcher) { d.maxBytes = n }
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, o) }
}

func WithLogger(l *logger.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

type Dispatcher struct {
	client    Doer
	mode      models.DispatchMode
	baseURL   *url.URL
	limit     int
	timeout   time.Duration
	maxBytes  int64
	observers []Observer
	logger    *logger.Logger
}

func New(client Doer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:   client,
		mode:     models.ModeSharedURL,
		maxBytes: DefaultMaxFragmentBytes,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = &http.Client{Timeout: 10 * time.Second}
	}
	if d.maxBytes <= 0 {
		d.maxBytes = DefaultMaxFragmentBytes
	}
	return d
}

// Request is one dispatch call. Mode falls back to the dispatcher's mode and
// BatchID is generated when empty.
type Request struct {
	BatchID   string
	PageID    string
	Mode      models.DispatchMode
	Context   models.PageContext
	Container Container
}

// Summary counts request outcomes of a batch.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Batch tracks the requests of one Dispatch call.
type Batch struct {
	ID      string
	PageID  string
	Mode    models.DispatchMode
	Total   int
	results chan models.DispatchResult
	done    chan struct{}

	mu      sync.Mutex
	summary Summary
}

// Results yields one result per request in arrival order and is closed once
// every request has finished. It is buffered for the whole batch, so callers
// that only Wait never block the batch.
func (b *Batch) Results() <-chan models.DispatchResult {
	return b.results
}

// Wait blocks until every request has finished and every observer has seen
// its result.
func (b *Batch) Wait() Summary {
	<-b.done
	return b.Summary()
}

func (b *Batch) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summary
}

func (b *Batch) record(res models.DispatchResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if res.Succeeded() {
		b.summary.Succeeded++
	} else {
		b.summary.Failed++
	}
}

// Validate checks a request without sending anything.
func (d *Dispatcher) Validate(req Request) error {
	mode := req.Mode
	if mode == "" {
		mode = d.mode
	}
	switch mode {
	case models.ModeSharedURL:
		if strings.TrimSpace(req.Context.GroupURL) == "" {
			return ErrMissingGroupURL
		}
	case models.ModePerRecordURL:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if req.Context.CSRFToken == "" {
		return ErrMissingCSRFToken
	}
	return nil
}

// Dispatch submits one POST per group and returns without waiting for any
// response. Successful bodies are appended to req.Container as they arrive.
// The only error is a rejected page context; per-request failures are
// reported on the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Batch, error) {
	if err := d.Validate(req); err != nil {
		return nil, err
	}
	if req.Mode == "" {
		req.Mode = d.mode
	}
	if req.BatchID == "" {
		req.BatchID = uuid.NewString()
	}

	groups := req.Context.Groups
	b := &Batch{
		ID:      req.BatchID,
		PageID:  req.PageID,
		Mode:    req.Mode,
		Total:   len(groups),
		results: make(chan models.DispatchResult, len(groups)),
		done:    make(chan struct{}),
		summary: Summary{Total: len(groups)},
	}

	completions := make(chan completion, len(groups))
	observed := make(chan models.DispatchResult, len(groups))
	go d.loop(ctx, b, req.Container, completions, observed)
	go d.observe(b, observed)

	d.logger.LogDispatch(b.ID, fmt.Sprintf("submitting %d requests (mode=%s, page=%s)", len(groups), req.Mode, req.PageID))

	go func() {
		var g errgroup.Group
		if d.limit > 0 {
			g.SetLimit(d.limit)
		}
		for i, group := range groups {
			g.Go(func() error {
				completions <- d.send(ctx, req, i, group)
				return nil
			})
		}
		_ = g.Wait()
		close(completions)
	}()

	return b, nil
}

type completion struct {
	result models.DispatchResult
	body   string
}

// loop is the single consumer of completions. Appends to the container
// happen here only, so they never interleave and follow arrival order.
func (d *Dispatcher) loop(ctx context.Context, b *Batch, c Container, completions <-chan completion, observed chan<- models.DispatchResult) {
	defer close(observed)
	defer close(b.results)

	seq := 0
	for cm := range completions {
		res := cm.result
		if res.Succeeded() {
			err := ErrNoContainer
			if c != nil {
				err = c.Append(ctx, models.Fragment{
					BatchID:    b.ID,
					GroupKey:   res.GroupKey,
					Seq:        seq,
					HTML:       cm.body,
					ReceivedAt: res.CompletedAt,
				})
			}
			if err != nil {
				res.Status = models.StatusFailed
				res.Err = fmt.Errorf("append fragment: %w", err)
				res.Error = res.Err.Error()
			} else {
				seq++
			}
		}

		if res.Succeeded() {
			d.logger.Debug("DISPATCH", fmt.Sprintf("[%s] #%d %s appended (%s)", b.ID, res.Index, res.TargetURL, res.Duration))
		} else {
			d.logger.Warn("DISPATCH", fmt.Sprintf("[%s] #%d %s failed: %s", b.ID, res.Index, res.TargetURL, res.Error))
		}

		b.record(res)
		b.results <- res
		observed <- res
	}

	s := b.Summary()
	d.logger.LogDispatch(b.ID, fmt.Sprintf("finished: %d succeeded, %d failed of %d", s.Succeeded, s.Failed, s.Total))
}

// observe feeds results to the observers. Both channels are buffered for the
// whole batch, so a slow store or broker only delays Wait.
func (d *Dispatcher) observe(b *Batch, observed <-chan models.DispatchResult) {
	defer close(b.done)
	for res := range observed {
		for _, o := range d.observers {
			o(res)
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, req Request, idx int, g models.Group) completion {
	start := time.Now()
	res := models.DispatchResult{
		BatchID:  req.BatchID,
		PageID:   req.PageID,
		Index:    idx,
		GroupKey: g.Key(),
	}

	fail := func(err error) completion {
		res.Status = models.StatusFailed
		res.Err = err
		res.Error = err.Error()
		res.CompletedAt = time.Now()
		res.Duration = res.CompletedAt.Sub(start)
		return completion{result: res}
	}

	target, err := d.target(req.Mode, req.Context, g)
	if err != nil {
		return fail(err)
	}
	res.TargetURL = target

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(EncodeForm(req.Mode, g, req.Context)))
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	httpReq.Header.Set("Accept", "text/html, */*; q=0.01")
	httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("group service error: %w", err))
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			d.logger.Error("DISPATCH", fmt.Sprintf("Failed to close response body for %s: %v", target, err))
		}
	}(resp.Body)

	res.HTTPStatus = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, d.maxBytes))
		return fail(&StatusError{Code: resp.StatusCode, URL: target})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return fail(fmt.Errorf("failed to read response body: %w", err))
	}
	if int64(len(body)) > d.maxBytes {
		return fail(fmt.Errorf("%w (%d bytes)", ErrFragmentTooLarge, d.maxBytes))
	}

	res.Status = models.StatusSucceeded
	res.CompletedAt = time.Now()
	res.Duration = res.CompletedAt.Sub(start)
	return completion{result: res, body: string(body)}
}

func (d *Dispatcher) target(mode models.DispatchMode, pc models.PageContext, g models.Group) (string, error) {
	raw := pc.GroupURL
	if mode == models.ModePerRecordURL {
		raw = g.NSID
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingTarget
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid target %q: %w", raw, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if d.baseURL == nil {
		return "", fmt.Errorf("%w: %q", ErrUnresolvedTarget, raw)
	}
	return d.baseURL.ResolveReference(u).String(), nil
}

// AsStatusError returns the *StatusError in err's chain, if any.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
