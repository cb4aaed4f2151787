// Package push routes realtime events into the stores through the same
// normalization path REST responses take. It carries no socket of its
// own; any source able to deliver events can feed Dispatch.
package push

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley-go/internal/activitystore"
	"github.com/parleyhq/parley-go/internal/mediastore"
	"github.com/parleyhq/parley-go/internal/normalize"
	"github.com/parleyhq/parley-go/internal/spacestore"
	"github.com/parleyhq/parley-go/internal/types"
)

// Event names the dispatcher understands.
const (
	EventConversationActivity = "conversation.activity"
	EventCallAdded            = "locus.call.added"
	EventCallRemoved          = "locus.call.removed"
)

// Event is one realtime message: a name and its raw payload.
type Event struct {
	Name string
	Data map[string]any
}

// Dispatcher applies events to the stores. Safe for concurrent use to
// the extent the stores are.
type Dispatcher struct {
	selfID     string
	activities *activitystore.Store
	spaces     *spacestore.Store
	media      *mediastore.Store
}

func NewDispatcher(selfID string, activities *activitystore.Store, spaces *spacestore.Store, media *mediastore.Store) *Dispatcher {
	return &Dispatcher{
		selfID:     selfID,
		activities: activities,
		spaces:     spaces,
		media:      media,
	}
}

// Dispatch routes one event. Unknown event names are logged and
// dropped.
func (d *Dispatcher) Dispatch(ev Event) {
	switch ev.Name {
	case EventConversationActivity:
		d.handleActivity(ev)
	case EventCallAdded:
		d.handleCallAdded(ev)
	case EventCallRemoved:
		d.handleCallRemoved(ev)
	default:
		log.Debug().Str("event", ev.Name).Msg("push: dropping unknown event")
	}
}

func (d *Dispatcher) handleActivity(ev Event) {
	act, err := normalize.DecodeActivity(ev.Data)
	if err != nil {
		log.Warn().Err(err).Msg("push: dropping malformed activity event")
		return
	}

	conversationID := act.Target.ID
	if conversationID == "" {
		log.Warn().Str("activity", act.ID).Msg("push: activity event without target")
		return
	}

	isSelf := act.Actor.ID == d.selfID

	// Bookkeeping verbs patch the space only; they never enter the
	// visible activity collections.
	switch act.Verb {
	case types.VerbAcknowledge:
		if isSelf && !act.Published.IsZero() {
			d.spaces.UpdateSpaceRead(conversationID, act.Published)
		}
		return
	case types.VerbTag:
		d.spaces.AddSpaceTags(conversationID, act.Object.Tags)
		return
	case types.VerbUntag:
		d.spaces.RemoveSpaceTags(conversationID, act.Object.Tags)
		return
	}

	d.activities.AddActivities(conversationID, []types.Activity{act})
	d.spaces.UpdateSpaceWithActivity(act, isSelf, normalize.IsReadable(act))
}

func (d *Dispatcher) handleCallAdded(ev Event) {
	call, err := decodeCall(ev.Data)
	if err != nil {
		log.Warn().Err(err).Msg("push: dropping malformed call event")
		return
	}
	if err := d.media.StoreCall(call); err != nil {
		log.Warn().Err(err).Msg("push: store call")
	}
}

func (d *Dispatcher) handleCallRemoved(ev Event) {
	id, _ := ev.Data["id"].(string)
	if id == "" {
		log.Warn().Msg("push: call removed event without id")
		return
	}
	d.media.RemoveCall(id)
}

var errMissingCallID = errors.New("push: call event without id")

func decodeCall(raw map[string]any) (types.Call, error) {
	call := types.Call{}
	if id, ok := raw["id"].(string); ok {
		call.ID = id
	}
	if call.ID == "" {
		return types.Call{}, errMissingCallID
	}
	if v, ok := raw["locusUrl"].(string); ok {
		call.LocusURL = v
	}
	if v, ok := raw["destination"].(string); ok {
		call.Destination = v
	}
	if v, ok := raw["joined"].(bool); ok {
		call.Joined = v
	}
	return call, nil
}
