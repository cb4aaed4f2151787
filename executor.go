package parley

import (
	"context"

	"github.com/parleyhq/parley-go/internal/sendqueue"
)

// executor abstracts the FIFO-per-conversation job runner used by the
// outbox and the AwaitSync fence.
type executor interface {
	Submit(context.Context, string, sendqueue.Job) error
	Stop()
}
