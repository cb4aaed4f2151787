// Package outbox drives the outgoing-activity state machine: a draft
// per conversation moves through submitting into succeeded or failed,
// and a failed draft retries from its submit-time snapshot. Submission
// runs on the send queue keyed by conversation id, and a
// per-conversation in-flight flag keeps submit and retry from
// overlapping on the same snapshot.
package outbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley-go/internal/sendqueue"
	"github.com/parleyhq/parley-go/internal/types"
)

// Service is the slice of the conversation API the outbox needs.
type Service interface {
	PostComment(ctx context.Context, req types.PostCommentRequest) (map[string]any, error)
	PostShare(ctx context.Context, req types.PostShareRequest) (map[string]any, error)
	UpdateTypingStatus(ctx context.Context, req types.TypingStatusRequest) error
}

// Executor enqueues submission jobs FIFO per conversation.
type Executor interface {
	Submit(ctx context.Context, key string, job sendqueue.Job) error
}

// Outbox holds the drafts. Safe for concurrent use.
type Outbox struct {
	mu       sync.Mutex
	svc      Service
	exec     Executor
	drafts   map[string]*Draft
	inFlight map[string]bool

	// OnConfirmed receives the server-confirmed activity payload after
	// a successful submit. Optional.
	OnConfirmed func(conversationID string, payload map[string]any)
}

func New(svc Service, exec Executor) *Outbox {
	return &Outbox{
		svc:      svc,
		exec:     exec,
		drafts:   make(map[string]*Draft),
		inFlight: make(map[string]bool),
	}
}

func (o *Outbox) draftLocked(conversationID string) *Draft {
	d, ok := o.drafts[conversationID]
	if !ok {
		d = &Draft{ConversationID: conversationID, State: StateDraft}
		o.drafts[conversationID] = d
	}
	return d
}

// Draft returns a copy of the conversation's draft. The copy carries
// its own Share and Meta, so later edits to the live draft never reach
// it. MakeShare-once identity is an internal property; handed-out
// copies never alias the live share activity.
func (o *Outbox) Draft(conversationID string) Draft {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.draftLocked(conversationID).snapshot()
}

// InFlight reports whether a submit or retry is outstanding.
func (o *Outbox) InFlight(conversationID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight[conversationID]
}

// SetText updates the draft text and flips the typing indicator:
// true on any non-empty change, false on transition to empty.
func (o *Outbox) SetText(ctx context.Context, conversationID, text string) {
	o.mu.Lock()
	d := o.draftLocked(conversationID)
	prev := d.Text
	d.Text = text
	o.mu.Unlock()

	if text != "" {
		o.SetUserTyping(ctx, conversationID, true)
	} else if prev != "" {
		o.SetUserTyping(ctx, conversationID, false)
	}
}

// AddFiles stages files on the draft. The share activity is created on
// the first add and reused afterwards.
func (o *Outbox) AddFiles(conversationID string, files ...types.FileItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	d := o.draftLocked(conversationID)
	if d.Share == nil {
		d.Share = o.makeShareLocked(conversationID)
	}
	d.Share.Add(files...)
}

// makeShareLocked constructs the draft's share activity. Called at most
// once per draft; AddFiles reuses the existing one.
func (o *Outbox) makeShareLocked(conversationID string) *ShareActivity {
	return &ShareActivity{ConversationID: conversationID}
}

// RemoveFile unstages the file with the given ClientTempID.
func (o *Outbox) RemoveFile(conversationID, clientTempID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	d := o.draftLocked(conversationID)
	if d.Share != nil {
		d.Share.Remove(clientTempID)
	}
}

// Submit snapshots the draft and enqueues the network call. An empty
// draft is a no-op that never reaches the network. Returns an error if
// a submit or retry is already outstanding for the conversation.
func (o *Outbox) Submit(ctx context.Context, conversationID string) error {
	o.mu.Lock()
	d := o.draftLocked(conversationID)
	if d.Empty() {
		o.mu.Unlock()
		return nil
	}
	if o.inFlight[conversationID] {
		o.mu.Unlock()
		return fmt.Errorf("outbox: submit already in flight for %s", conversationID)
	}

	if d.ClientTempID == "" {
		d.ClientTempID = uuid.NewString()
	}
	d.State = StateSubmitting
	d.Err = nil
	d.Meta = &Meta{
		ConversationID: conversationID,
		Share:          d.Share.clone(),
		Text:           d.Text,
	}
	meta := *d.Meta
	tempID := d.ClientTempID
	o.inFlight[conversationID] = true
	o.mu.Unlock()

	if text := meta.Text; text != "" {
		// The composer is about to clear; suppress the stale indicator.
		o.SetUserTyping(ctx, conversationID, false)
	}
	return o.enqueue(ctx, conversationID, meta, tempID)
}

// Retry re-invokes the network call from the preserved snapshot. Only a
// failed draft with no outstanding submission can retry; the verb is
// decided by the snapshot, not the current draft.
func (o *Outbox) Retry(ctx context.Context, conversationID string) error {
	o.mu.Lock()
	d := o.draftLocked(conversationID)
	if d.State != StateFailed {
		o.mu.Unlock()
		return fmt.Errorf("outbox: retry from state %s", d.State)
	}
	if o.inFlight[conversationID] {
		o.mu.Unlock()
		return fmt.Errorf("outbox: submit already in flight for %s", conversationID)
	}
	if d.Meta == nil {
		o.mu.Unlock()
		return fmt.Errorf("outbox: no snapshot to retry for %s", conversationID)
	}
	d.State = StateRetrying
	d.Err = nil
	meta := *d.Meta
	tempID := d.ClientTempID
	o.inFlight[conversationID] = true
	o.mu.Unlock()

	return o.enqueue(ctx, conversationID, meta, tempID)
}

func (o *Outbox) enqueue(ctx context.Context, conversationID string, meta Meta, tempID string) error {
	job := sendqueue.JobFunc(func(jobCtx context.Context) error {
		payload, err := o.send(jobCtx, meta, tempID)
		if err != nil {
			return err
		}
		o.complete(conversationID, payload, nil)
		return nil
	})
	wrapped := sendqueue.WithDone(job, func(err error) {
		if err != nil {
			o.complete(conversationID, nil, err)
		}
	})
	if err := o.exec.Submit(ctx, conversationID, wrapped); err != nil {
		o.complete(conversationID, nil, err)
		return err
	}
	return nil
}

// send performs the network call deciding the verb from the snapshot:
// share when files or a share activity are present, post otherwise.
func (o *Outbox) send(ctx context.Context, meta Meta, tempID string) (map[string]any, error) {
	if meta.Share != nil && len(meta.Share.Files) > 0 {
		files := append([]types.FileItem(nil), meta.Share.Files...)
		return o.svc.PostShare(ctx, types.PostShareRequest{
			ConversationID: meta.ConversationID,
			Content:        meta.Text,
			Files:          files,
			ClientTempID:   tempID,
		})
	}
	return o.svc.PostComment(ctx, types.PostCommentRequest{
		ConversationID: meta.ConversationID,
		Content:        meta.Text,
		ClientTempID:   tempID,
	})
}

// complete applies the terminal outcome: success clears the draft back
// to empty and hands the confirmed activity to OnConfirmed; failure
// keeps the snapshot for retry and records the error.
func (o *Outbox) complete(conversationID string, payload map[string]any, err error) {
	o.mu.Lock()
	d := o.draftLocked(conversationID)
	delete(o.inFlight, conversationID)

	if err != nil {
		d.State = StateFailed
		d.Err = err
		log.Warn().Err(err).
			Str("conversation", conversationID).
			Str("clientTempId", d.ClientTempID).
			Msg("outbox: submit failed")
		o.mu.Unlock()
		return
	}

	// Success: reset to an empty draft.
	o.drafts[conversationID] = &Draft{
		ConversationID: conversationID,
		State:          StateSucceeded,
	}
	cb := o.OnConfirmed
	o.mu.Unlock()

	if cb != nil && payload != nil {
		cb(conversationID, payload)
	}
}

// SetUserTyping flips the typing indicator. Fire-and-forget: errors are
// logged and dropped, and the last write wins.
func (o *Outbox) SetUserTyping(ctx context.Context, conversationID string, isTyping bool) {
	err := o.svc.UpdateTypingStatus(ctx, types.TypingStatusRequest{
		ConversationID: conversationID,
		Typing:         isTyping,
	})
	if err != nil {
		log.Debug().Err(err).
			Str("conversation", conversationID).
			Bool("typing", isTyping).
			Msg("outbox: typing indicator dropped")
	}
}
