package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apifetch/internal/config"
	"github.com/apifetch/internal/logging"
	"github.com/apifetch/internal/metrics"
	"github.com/apifetch/internal/selector"
	"github.com/apifetch/pkg/fetch"
	"golang.org/x/time/rate"
)

// Job represents a single endpoint fetch.
type Job struct {
	Endpoint config.Endpoint
	Selector *selector.Selector
}

// NewJob builds a Job, compiling the endpoint's select expression.
func NewJob(e config.Endpoint) (Job, error) {
	job := Job{Endpoint: e}
	if e.Select != "" {
		s, err := selector.Compile(e.Select)
		if err != nil {
			return Job{}, err
		}
		job.Selector = s
	}
	return job, nil
}

// Result is the outcome of a Job.
type Result struct {
	Job      Job
	Target   string
	Response *fetch.Response
	Selected any
	Err      error
	Duration time.Duration
	// Skipped is set when the job never ran because the run was stopped.
	Skipped bool
}

// Pool runs jobs on a fixed number of worker goroutines.
type Pool struct {
	cfg     config.Worker
	client  fetch.Client
	metrics *metrics.Metrics
	limiter *rate.Limiter
	active  int64
}

// NewPool creates a new worker pool.
func NewPool(cfg config.Worker, client fetch.Client, m *metrics.Metrics) *Pool {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Rate > 0 {
		burst := int(cfg.Rate / 10) // Burst of 10% of the rate
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}

	return &Pool{
		cfg:     cfg,
		client:  client,
		metrics: m,
		limiter: limiter,
	}
}

// ErrStopped marks jobs skipped because an earlier job failed.
var ErrStopped = errors.New("stopped after an earlier failure")

type task struct {
	index int
	job   Job
}

// Run executes all jobs and returns their results in input order.
// With StopOnError, the first failure stops dispatching: jobs that have
// not started come back with Skipped set, while fetches already in flight
// run to completion.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	log := logging.For("worker")

	results := make([]Result, len(jobs))
	tasks := make(chan task)

	stop := make(chan struct{})
	var stopOnce sync.Once

	workers := p.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				results[t.index] = p.process(ctx, stop, t.job)
				if results[t.index].Err != nil && !results[t.index].Skipped && p.cfg.StopOnError {
					stopOnce.Do(func() { close(stop) })
				}
			}
		}()
	}

	log.WithField("jobs", len(jobs)).WithField("workers", workers).Debug("started")

	for i, job := range jobs {
		if stopped(stop) {
			results[i] = Result{Job: job, Skipped: true, Err: ErrStopped}
			continue
		}
		select {
		case <-ctx.Done():
			results[i] = Result{Job: job, Skipped: true, Err: ctx.Err()}
		case <-stop:
			results[i] = Result{Job: job, Skipped: true, Err: ErrStopped}
		case tasks <- task{index: i, job: job}:
		}
	}
	close(tasks)
	wg.Wait()

	log.Debug("all jobs finished")
	return results
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

// process executes a single job unless the run has been stopped.
func (p *Pool) process(ctx context.Context, stop <-chan struct{}, job Job) Result {
	log := logging.For("worker").WithField("endpoint", job.Endpoint.Name)
	req := job.Endpoint.Request()
	result := Result{Job: job, Target: req.URL}
	if target, err := req.Target(); err == nil {
		result.Target = target
	}

	if stopped(stop) {
		result.Skipped = true
		result.Err = ErrStopped
		return result
	}

	// Wait for rate limiter
	if err := p.limiter.Wait(ctx); err != nil {
		result.Skipped = true
		result.Err = err
		return result
	}
	if stopped(stop) {
		result.Skipped = true
		result.Err = ErrStopped
		return result
	}

	atomic.AddInt64(&p.active, 1)
	p.metrics.IncInFlight()
	defer func() {
		atomic.AddInt64(&p.active, -1)
		p.metrics.DecInFlight()
	}()

	start := time.Now()
	resp, err := p.client.Fetch(ctx, req)
	result.Duration = time.Since(start)
	result.Response = resp
	result.Err = err

	if err == nil && job.Selector != nil {
		result.Selected, result.Err = job.Selector.Eval(resp.Payload)
	}

	p.metrics.RecordFetch(job.Endpoint.Name, resp, result.Err, result.Duration.Seconds())

	if result.Err != nil {
		log.WithError(result.Err).Warn("fetch failed")
		return result
	}
	log.WithField("duration", result.Duration).Info("fetched")
	return result
}

// Active returns the number of fetches currently in flight.
func (p *Pool) Active() int {
	return int(atomic.LoadInt64(&p.active))
}

// Close releases the underlying client.
func (p *Pool) Close() error {
	return p.client.Close()
}
