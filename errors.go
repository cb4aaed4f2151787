package parley

import (
	"errors"

	"github.com/parleyhq/parley-go/internal/sendqueue"
	"github.com/parleyhq/parley-go/internal/types"
)

// ErrBackPressure is returned when the send queue is full.
var ErrBackPressure = sendqueue.ErrQueueFull

// IsBackPressure reports whether err is a back-pressure error.
func IsBackPressure(err error) bool { return errors.Is(err, ErrBackPressure) }

// ErrClosed is returned when an operation hits a closed client.
var ErrClosed = sendqueue.ErrExecutorClosed

// Re-export shared SDK error so callers compare against a single symbol.
var ErrNotFound = types.ErrNotFound
