// Package dispatcher runs submitted applications on a bounded worker pool.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/applyflow/applyflow-api/internal/core"
	"github.com/applyflow/applyflow-api/internal/data/cryptoutil"
	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
	"github.com/applyflow/applyflow-api/internal/observability/metrics"
	"github.com/applyflow/applyflow-api/internal/observability/statsd"
)

// Options configures the dispatcher.
type Options struct {
	Applications core.ApplicationRepository
	Users        core.UserRepository
	Runner       core.AutomationRunner
	CancelBus    core.CancelBus
	Encryptor    cryptoutil.Encryptor

	Workers    int
	QueueSize  int
	RunTimeout time.Duration

	// ResultSummaryExpr is an optional JMESPath expression applied to the raw
	// runner result before it is stored. Empty stores the raw result.
	ResultSummaryExpr string

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Dispatcher owns the pending-run queue and the worker pool that drains it.
//
// Capacity is reserved before the durable record is created: Reserve either
// claims a queue slot or reports queue-full, so accepted submissions are never
// silently dropped and the queue never grows without bound.
type Dispatcher struct {
	apps      core.ApplicationRepository
	users     core.UserRepository
	runner    core.AutomationRunner
	cancelBus core.CancelBus
	encryptor cryptoutil.Encryptor

	queue      chan string
	sem        chan struct{}
	workers    int
	runTimeout time.Duration

	summaryExpr jmespath.JMESPath

	logger  *slog.Logger
	metrics statsd.Sink

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// New creates a dispatcher. The summary expression is compiled eagerly so a
// bad RESULT_SUMMARY_EXPR fails startup instead of every run.
func New(opts Options) (*Dispatcher, error) {
	if opts.Applications == nil {
		return nil, errors.New("application repository is required")
	}
	if opts.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("automation runner is required")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	runTimeout := opts.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 15 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	encryptor := opts.Encryptor
	if encryptor == nil {
		encryptor = cryptoutil.NoopEncryptor{}
	}

	var expr jmespath.JMESPath
	if opts.ResultSummaryExpr != "" {
		compiled, err := jmespath.Compile(opts.ResultSummaryExpr)
		if err != nil {
			return nil, fmt.Errorf("compile result summary expression: %w", err)
		}
		expr = compiled
	}

	return &Dispatcher{
		apps:        opts.Applications,
		users:       opts.Users,
		runner:      opts.Runner,
		cancelBus:   opts.CancelBus,
		encryptor:   encryptor,
		queue:       make(chan string, queueSize),
		sem:         make(chan struct{}, queueSize),
		workers:     workers,
		runTimeout:  runTimeout,
		summaryExpr: expr,
		logger:      logger.With("component", "dispatcher"),
		metrics:     opts.Metrics,
	}, nil
}

// Reserve claims one queue slot ahead of record creation. It returns a commit
// function that enqueues the application and a release function for the path
// where creation fails. Exactly one of the two must be called.
func (d *Dispatcher) Reserve() (commit func(applicationID string), release func(), err error) {
	select {
	case d.sem <- struct{}{}:
	default:
		return nil, nil, apperrors.Conflict("application queue is full, try again later")
	}

	var once sync.Once
	commit = func(applicationID string) {
		once.Do(func() {
			// Cannot block: sem and queue share capacity.
			d.queue <- applicationID
		})
	}
	release = func() {
		once.Do(func() {
			<-d.sem
		})
	}
	return commit, release, nil
}

// QueueDepth reports the number of queued, not-yet-started runs.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// Run starts worker goroutines and processes queued applications until the
// context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "starting dispatcher",
		"workers", d.workers,
		"queue_size", cap(d.queue),
		"run_timeout", d.runTimeout,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	d.inflight = make(map[string]context.CancelFunc)
	d.mu.Unlock()

	var wg sync.WaitGroup

	if d.cancelBus != nil {
		signals, unsubscribe, err := d.cancelBus.SubscribeCancel(ctx)
		if err != nil {
			return fmt.Errorf("subscribe cancel bus: %w", err)
		}
		defer unsubscribe()

		wg.Add(1)
		go func() {
			defer wg.Done()
			d.cancelLoop(ctx, signals)
		}()
	}

	for range d.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.workerLoop(ctx)
		}()
	}

	wg.Wait()
	return ctx.Err()
}

func (d *Dispatcher) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-d.queue:
			<-d.sem
			d.processRun(ctx, id)
		}
	}
}

// cancelLoop interrupts in-flight runs when a cancellation signal arrives.
// Signals for unknown ids (finished runs, other instances' runs) are ignored.
func (d *Dispatcher) cancelLoop(ctx context.Context, signals <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-signals:
			if !ok {
				return
			}
			d.mu.Lock()
			cancelRun, found := d.inflight[id]
			d.mu.Unlock()
			if found {
				d.logger.InfoContext(ctx, "interrupting cancelled run", "application_id", id)
				cancelRun()
			}
		}
	}
}

func (d *Dispatcher) processRun(ctx context.Context, id string) {
	start := time.Now()
	emit := func(transition, result string, err error) {
		metrics.EmitApplicationLifecycle(d.metrics, metrics.ApplicationMetric{
			Transition: transition,
			Result:     result,
			Duration:   time.Since(start),
			Err:        err,
		})
	}

	app, err := d.apps.GetByID(ctx, id)
	if err != nil {
		d.logger.ErrorContext(ctx, "load application", "application_id", id, "error", err)
		emit("started", metrics.ResultError, err)
		return
	}

	started, err := d.apps.MarkStarted(ctx, id)
	if err != nil {
		d.logger.ErrorContext(ctx, "mark application started", "application_id", id, "error", err)
		emit("started", metrics.ResultError, err)
		return
	}
	if !started {
		// Cancelled (or reaped) before a worker got to it.
		d.logger.InfoContext(ctx, "skipping terminal application", "application_id", id)
		emit("started", metrics.ResultNoop, nil)
		return
	}

	input, err := d.buildRunInput(ctx, app)
	if err != nil {
		d.failRun(ctx, id, err.Error())
		emit("failed", metrics.ResultError, err)
		return
	}

	runCtx, cancelRun := context.WithTimeout(ctx, d.runTimeout)
	defer cancelRun()
	d.trackInflight(id, cancelRun)
	defer d.untrackInflight(id)

	result, runErr := d.runner.Run(runCtx, *input)
	if runErr != nil {
		applied := d.failRun(ctx, id, runMessage(runCtx, runErr, d.runTimeout))
		outcome := metrics.ResultError
		if !applied {
			// Terminal already, typically cancelled while running.
			outcome = metrics.ResultNoop
		}
		emit("failed", outcome, runErr)
		return
	}

	summary := d.summarize(ctx, id, result.Raw)
	applied, err := d.apps.Complete(ctx, id, summary)
	if err != nil {
		d.logger.ErrorContext(ctx, "complete application", "application_id", id, "error", err)
		emit("completed", metrics.ResultError, err)
		return
	}
	outcome := metrics.ResultSuccess
	if !applied {
		outcome = metrics.ResultNoop
	}
	emit("completed", outcome, nil)
}

// buildRunInput assembles the runner payload, decrypting stored credentials.
func (d *Dispatcher) buildRunInput(ctx context.Context, app *model.Application) (*core.RunInput, error) {
	user, err := d.users.GetByID(ctx, app.UserID)
	if err != nil {
		return nil, fmt.Errorf("load applicant: %w", err)
	}

	creds, err := d.decryptCredentials(user.Credentials)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials: %w", err)
	}

	return &core.RunInput{
		ApplicationID: app.ID,
		JobURL:        app.JobURL,
		Profile:       user.Profile,
		Email:         user.Email,
		Credentials:   creds,
	}, nil
}

func (d *Dispatcher) decryptCredentials(encrypted string) (map[string]string, error) {
	if encrypted == "" {
		return nil, nil
	}
	plain, err := d.encryptor.Decrypt(encrypted)
	if err != nil {
		return nil, err
	}
	var creds map[string]string
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, fmt.Errorf("decode credential map: %w", err)
	}
	return creds, nil
}

// summarize applies the configured JMESPath expression to the raw result.
// A failing expression falls back to the raw payload rather than losing it.
func (d *Dispatcher) summarize(ctx context.Context, id string, raw []byte) string {
	if d.summaryExpr == nil || len(raw) == 0 {
		return string(raw)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		d.logger.WarnContext(ctx, "runner result is not JSON, storing raw", "application_id", id)
		return string(raw)
	}

	extracted, err := d.summaryExpr.Search(doc)
	if err != nil || extracted == nil {
		d.logger.WarnContext(ctx, "result summary expression produced nothing, storing raw",
			"application_id", id, "error", err)
		return string(raw)
	}

	if s, ok := extracted.(string); ok {
		return s
	}
	encoded, err := json.Marshal(extracted)
	if err != nil {
		return string(raw)
	}
	return string(encoded)
}

func (d *Dispatcher) failRun(ctx context.Context, id, msg string) bool {
	applied, err := d.apps.Fail(ctx, id, msg)
	if err != nil {
		d.logger.ErrorContext(ctx, "fail application", "application_id", id, "error", err)
		return false
	}
	return applied
}

func (d *Dispatcher) trackInflight(id string, cancelRun context.CancelFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight != nil {
		d.inflight[id] = cancelRun
	}
}

func (d *Dispatcher) untrackInflight(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, id)
}

func runMessage(runCtx context.Context, runErr error, timeout time.Duration) string {
	switch {
	case errors.Is(runErr, context.DeadlineExceeded):
		return fmt.Sprintf("automation run timed out after %s", timeout)
	case errors.Is(runErr, context.Canceled) && runCtx.Err() != nil:
		return "automation run interrupted by cancellation"
	default:
		return runErr.Error()
	}
}
