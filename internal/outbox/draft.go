package outbox

import (
	"github.com/parleyhq/parley-go/internal/types"
)

// State is the lifecycle phase of a conversation's outgoing draft.
type State int

const (
	StateDraft State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
	StateRetrying
)

func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// ShareActivity stages files for a content share. It is created at most
// once per draft; later file adds append to the existing one.
type ShareActivity struct {
	ConversationID string
	Files          []types.FileItem // insertion order
}

// Add appends files, keeping ClientTempID uniqueness.
func (sa *ShareActivity) Add(files ...types.FileItem) {
	for _, f := range files {
		if sa.indexOf(f.ClientTempID) >= 0 {
			continue
		}
		sa.Files = append(sa.Files, f)
	}
}

// Remove drops the file with the given ClientTempID.
func (sa *ShareActivity) Remove(clientTempID string) {
	if i := sa.indexOf(clientTempID); i >= 0 {
		sa.Files = append(sa.Files[:i], sa.Files[i+1:]...)
	}
}

// clone returns an independent copy with its own Files storage.
func (sa *ShareActivity) clone() *ShareActivity {
	if sa == nil {
		return nil
	}
	return &ShareActivity{
		ConversationID: sa.ConversationID,
		Files:          append([]types.FileItem(nil), sa.Files...),
	}
}

func (sa *ShareActivity) indexOf(clientTempID string) int {
	for i, f := range sa.Files {
		if f.ClientTempID == clientTempID {
			return i
		}
	}
	return -1
}

// Meta is the submit-time snapshot a failed draft retries from.
type Meta struct {
	ConversationID string
	Share          *ShareActivity
	Text           string
}

// Draft is the per-conversation outgoing activity being composed.
type Draft struct {
	ConversationID string
	Text           string
	Share          *ShareActivity
	ClientTempID   string
	State          State
	Meta           *Meta
	Err            error
}

// snapshot returns a copy that shares no storage with the live draft:
// Share and Meta are deep-copied so later mutations never reach it.
func (d *Draft) snapshot() Draft {
	out := *d
	out.Share = d.Share.clone()
	if d.Meta != nil {
		out.Meta = &Meta{
			ConversationID: d.Meta.ConversationID,
			Share:          d.Meta.Share.clone(),
			Text:           d.Meta.Text,
		}
	}
	return out
}

// Empty reports whether submitting would be a no-op.
func (d *Draft) Empty() bool {
	return d.Text == "" && (d.Share == nil || len(d.Share.Files) == 0)
}
