package sendqueue

import (
	"errors"
	"fmt"
)

// ErrExecutorClosed is returned by Submit after Stop.
var ErrExecutorClosed = errors.New("sendqueue: executor closed")

// ErrQueueFull is the back-pressure sentinel; Submit wraps it in a
// *QueueFullError carrying shard diagnostics.
var ErrQueueFull = errors.New("sendqueue: queue full")

// QueueFullError reports which shard rejected the enqueue and how full
// it was at the time.
type QueueFullError struct {
	Shard    int
	Length   int
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("sendqueue: shard %d full (%d/%d)", e.Shard, e.Length, e.Capacity)
}

func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }
