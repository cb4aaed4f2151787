package parley

import (
	"github.com/parleyhq/parley-go/internal/outbox"
	"github.com/parleyhq/parley-go/internal/push"
	"github.com/parleyhq/parley-go/internal/types"
)

// Public type aliases so consumers can import only the parley package.

// Domain entities
type (
	Activity       = types.Activity
	ActivityObject = types.ActivityObject
	Actor          = types.Actor
	Call           = types.Call
	ErrorRecord    = types.ErrorRecord
	FileItem       = types.FileItem
	ParentRef      = types.ParentRef
	Participant    = types.Participant
	Space          = types.Space
	Team           = types.Team
)

// Requests
type (
	GetConversationOptions   = types.GetConversationOptions
	ListConversationsOptions = types.ListConversationsOptions
	ListRoomsOptions         = types.ListRoomsOptions
)

// Outgoing drafts
type (
	Draft      = outbox.Draft
	DraftState = outbox.State
)

const (
	DraftStateDraft      = outbox.StateDraft
	DraftStateSubmitting = outbox.StateSubmitting
	DraftStateSucceeded  = outbox.StateSucceeded
	DraftStateFailed     = outbox.StateFailed
	DraftStateRetrying   = outbox.StateRetrying
)

// Push events
type Event = push.Event

const (
	EventConversationActivity = push.EventConversationActivity
	EventCallAdded            = push.EventCallAdded
	EventCallRemoved          = push.EventCallRemoved
)
