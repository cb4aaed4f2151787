// Package sendqueue provides a sharded outbound work queue that
// guarantees FIFO order per conversation while allowing parallelism
// across shards. Jobs that fail with a recoverable error are retried
// with exponential backoff; irrecoverable failures terminate
// immediately.
//
// Contract: callers must not invoke Submit concurrently for the same
// conversation. FIFO ordering relies on that external serialisation;
// the outbox enforces it with its per-conversation in-flight flag.
package sendqueue

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley-go/internal/errs"
)

type queuedJob struct {
	ctx context.Context
	job Job
}

// Executor runs Jobs on worker goroutines partitioned by a stable hash
// of the conversation id. FIFO ordering is preserved within a shard;
// jobs for different conversations may run in parallel.
type Executor struct {
	cfg    Config
	queues []chan queuedJob // len == cfg.Shards

	done   chan struct{} // closed in Stop
	closed uint32        // 0 running, 1 closed

	wg sync.WaitGroup
}

// NewExecutor constructs the executor and starts its shard workers.
func NewExecutor(cfg Config) *Executor {
	if cfg.Shards <= 0 {
		cfg.Shards = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 128
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 100 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 20 * time.Second
	}

	e := &Executor{
		cfg:    cfg,
		queues: make([]chan queuedJob, cfg.Shards),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		e.queues[i] = ch
		e.wg.Add(1)
		go e.runWorker(i, ch)
	}
	return e
}

// Submit enqueues job for the shard derived from the conversation key.
//
//   - Returns nil on success.
//   - Returns ErrExecutorClosed if the executor is stopped.
//   - Returns a *QueueFullError if the shard is still full after
//     EnqueueTimeout elapses.
//   - Returns ctx.Err() if the caller context is cancelled first.
func (e *Executor) Submit(ctx context.Context, key string, job Job) error {
	if atomic.LoadUint32(&e.closed) == 1 {
		return ErrExecutorClosed
	}
	select {
	case <-e.done:
		return ErrExecutorClosed
	default:
	}

	qj := queuedJob{ctx: ctx, job: job}
	shard := e.shardFor(key)
	ch := e.queues[shard]

	timer := time.NewTimer(e.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- qj:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil
	case <-e.done:
		return ErrExecutorClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{Shard: shard, Length: len(ch), Capacity: cap(ch)}
	}
}

// Barrier enqueues a no-op job on the shard for key and waits until it
// runs, ensuring all previously submitted jobs for that conversation
// have completed.
func (e *Executor) Barrier(ctx context.Context, key string) error {
	done := make(chan struct{})
	j := JobFunc(func(context.Context) error {
		close(done)
		return nil
	})
	if err := e.Submit(ctx, key, j); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Stop signals every worker to finish draining its queue, waits for
// them to terminate, and returns. Idempotent and safe for concurrent
// use.
func (e *Executor) Stop() {
	if !atomic.CompareAndSwapUint32(&e.closed, 0, 1) {
		return
	}
	log.Debug().Int("shards", e.cfg.Shards).Msg("sendqueue: stopping, draining shards")
	close(e.done)
	e.wg.Wait()
	log.Debug().Msg("sendqueue: stopped, all queues drained")
}

// Close lets Executor satisfy io.Closer.
func (e *Executor) Close() error {
	e.Stop()
	return nil
}

// ------------------------- internals -------------------------

func (e *Executor) runWorker(idx int, ch <-chan queuedJob) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("shard", idx).Msg("sendqueue: worker panic")
		}
	}()

	label := labelFor(idx)

	for {
		select {
		case qj := <-ch:
			if qj.job == nil {
				continue
			}
			// Honour caller context so a cancelled job doesn't stall
			// the shard.
			select {
			case <-qj.ctx.Done():
				e.finish(qj.job, qj.ctx.Err())
			default:
				e.runWithRetry(qj, label)
			}
			queueDepth.WithLabelValues(label).Set(float64(len(ch)))

		case <-e.done:
			// Drain remaining jobs, preserving FIFO, then exit.
			for {
				select {
				case qj := <-ch:
					if qj.job != nil {
						e.finish(qj.job, qj.job.Run(qj.ctx))
					}
				default:
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// runWithRetry executes one job with backoff until success, an
// irrecoverable classification, context cancellation, or attempt
// exhaustion, then reports the terminal outcome exactly once.
func (e *Executor) runWithRetry(qj queuedJob, label string) {
	attempts := 0
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = e.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = e.cfg.MaxInterval
	exp.Reset()

	for {
		start := time.Now()
		err := qj.job.Run(qj.ctx)
		runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

		if err == nil {
			e.finish(qj.job, nil)
			return
		}
		if errs.IsIrrecoverable(err) {
			e.finish(qj.job, err)
			return
		}
		if attempts >= e.cfg.MaxAttempts-1 {
			e.finish(qj.job, err)
			return
		}

		attempts++
		wait := exp.NextBackOff()
		select {
		case <-time.After(wait):
		case <-e.done:
			e.finish(qj.job, err)
			return
		case <-qj.ctx.Done():
			e.finish(qj.job, qj.ctx.Err())
			return
		}
	}
}

// finish routes the terminal outcome to the job's done callback (if
// any) and the configured error handler.
func (e *Executor) finish(job Job, err error) {
	if dj, ok := job.(*doneJob); ok && dj.done != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("sendqueue: done callback panic")
				}
			}()
			dj.done(err)
		}()
	}
	if err == nil || e.cfg.ErrorHandler == nil {
		return
	}
	func() {
		// Guard against panics in the user-supplied handler.
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("sendqueue: error handler panic")
			}
		}()
		e.cfg.ErrorHandler(err)
	}()
}

func (e *Executor) shardFor(key string) int {
	h := fnv.New32a() // fast and sufficient at our scale
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % e.cfg.Shards
}
