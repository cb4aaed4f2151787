package sendqueue

import "context"

// Job is a unit of outbound work executed by an Executor.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a closure to a Job.
type JobFunc func(ctx context.Context) error

// Run implements Job for JobFunc.
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// doneJob pairs a Job with a completion callback invoked exactly once
// after the retry loop concludes, with the final error (nil on success).
type doneJob struct {
	Job
	done func(error)
}

// WithDone wraps job so done observes the terminal outcome: nil after a
// successful run, or the last error once retries are exhausted or the
// failure is classified irrecoverable.
func WithDone(job Job, done func(error)) Job {
	return &doneJob{Job: job, done: done}
}

// RunTerminal executes the job once and reports the result through its
// done callback, the way a shard worker reports a terminal outcome.
// Meant for stub executors in tests and single-shot call sites.
func RunTerminal(ctx context.Context, job Job) error {
	err := job.Run(ctx)
	if dj, ok := job.(*doneJob); ok && dj.done != nil {
		dj.done(err)
	}
	return err
}
