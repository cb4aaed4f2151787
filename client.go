// Package parley is a client-side synchronization core for
// conversation services: it fetches and normalizes spaces and
// activities into local stores, applies realtime push events through
// the same path, and drives outgoing messages through a
// per-conversation FIFO send queue with retry.
package parley

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/parleyhq/parley-go/internal/activitystore"
	"github.com/parleyhq/parley-go/internal/api"
	"github.com/parleyhq/parley-go/internal/errorstore"
	"github.com/parleyhq/parley-go/internal/errs"
	"github.com/parleyhq/parley-go/internal/mediastore"
	"github.com/parleyhq/parley-go/internal/normalize"
	"github.com/parleyhq/parley-go/internal/outbox"
	"github.com/parleyhq/parley-go/internal/push"
	"github.com/parleyhq/parley-go/internal/sendqueue"
	"github.com/parleyhq/parley-go/internal/spacestore"
	"github.com/parleyhq/parley-go/internal/types"
)

// loadErrorTitle is the user-facing banner headline for failed loads.
const loadErrorTitle = "Something's not right"

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	selfID  string

	exec       executor
	spaces     *spacestore.Store
	activities *activitystore.Store
	media      *mediastore.Store
	errors     *errorstore.Store
	outbox     *outbox.Outbox
	dispatcher *push.Dispatcher

	closedOnce uint32
}

// New constructs a Client against the given conversation service.
// Additional knobs are provided via functional options.
func New(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		panic("baseURL cannot be empty")
	}
	if token == "" {
		panic("token cannot be empty")
	}

	c := &Client{
		baseURL:    baseURL,
		token:      token,
		http:       &http.Client{Timeout: 30 * time.Second},
		spaces:     spacestore.New(),
		activities: activitystore.New(),
		media:      mediastore.New(),
		errors:     errorstore.New(),
	}

	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			panic(err)
		}
	}
	if c.exec == nil {
		c.exec = newDefaultExecutor()
	}

	c.wrapTransportWithToken()

	c.outbox = outbox.New(conversationService{c}, c.exec)
	c.outbox.OnConfirmed = c.storeConfirmedActivity
	c.dispatcher = push.NewDispatcher(c.selfID, c.activities, c.spaces, c.media)

	return c
}

// wrapTransportWithToken installs the bearer-token wrapper on top of
// whatever transport the options left in place.
func (c *Client) wrapTransportWithToken() {
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http.Transport = &tokenTransport{base: base, token: c.token}
}

type tokenTransport struct {
	base  http.RoundTripper
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(cloned)
}

// Close stops the send queue. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	if c.exec != nil {
		c.exec.Stop()
	}
	return nil
}

// AwaitSync blocks until every previously submitted outgoing job for
// the conversation has executed, by fencing a no-op through the queue.
func (c *Client) AwaitSync(ctx context.Context, conversationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	j := sendqueue.JobFunc(func(context.Context) error {
		close(done)
		return nil
	})
	if err := c.exec.Submit(ctx, conversationID, j); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func newDefaultExecutor() *sendqueue.Executor {
	cfg, err := sendqueue.LoadConfig()
	if err != nil {
		cfg = sendqueue.Config{}
	}
	return sendqueue.NewExecutor(cfg)
}

// --------------------------------------------------------------------
// Space operations
// --------------------------------------------------------------------

// FetchSpace loads one conversation with its activities and merges it
// into the stores. A failed fetch leaves the stored record untouched
// and raises an error banner instead.
func (c *Client) FetchSpace(ctx context.Context, conversationID string, opts GetConversationOptions) (Space, error) {
	c.spaces.StoreInitialSpace(conversationID)

	payload, err := api.GetConversation(ctx, c.http, c.baseURL, conversationID, opts)
	if err != nil {
		c.spaces.MarkFetched(conversationID)
		c.addLoadError("space-load", "Unable to load this space.", err)
		operationsTotal.WithLabelValues("fetch_space", outcomeFor(err)).Inc()
		return Space{}, err
	}

	sp, err := normalize.ConstructSpace(payload)
	if err != nil {
		c.spaces.MarkFetched(conversationID)
		c.addLoadError("space-load", "Unable to load this space.", err)
		operationsTotal.WithLabelValues("fetch_space", "error").Inc()
		return Space{}, err
	}

	c.spaces.StoreSpaces([]types.Space{sp})
	if acts := normalize.DecodeActivities(payload["activities"]); len(acts) > 0 {
		c.activities.AddActivities(sp.ID, acts)
	}
	operationsTotal.WithLabelValues("fetch_space", "ok").Inc()

	out, _ := c.spaces.Get(sp.ID)
	return out, nil
}

// FetchSpaces loads the recents view and merges every conversation in
// it, activities included.
func (c *Client) FetchSpaces(ctx context.Context, opts ListConversationsOptions) ([]Space, error) {
	payload, err := api.ListConversations(ctx, c.http, c.baseURL, opts)
	if err != nil {
		c.addLoadError("spaces-load", "Unable to load your spaces.", err)
		operationsTotal.WithLabelValues("fetch_spaces", outcomeFor(err)).Inc()
		return nil, err
	}

	raws := rawItems(payload["items"])
	spaces := normalize.ConstructSpaces(raws)
	c.spaces.StoreSpaces(spaces)
	for _, raw := range raws {
		if id, _ := raw["id"].(string); id != "" {
			if acts := normalize.DecodeActivities(raw["activities"]); len(acts) > 0 {
				c.activities.AddActivities(id, acts)
			}
		}
	}
	operationsTotal.WithLabelValues("fetch_spaces", "ok").Inc()
	return spaces, nil
}

// FetchRooms pages the externally-exposed rooms listing, which
// identifies rooms by hydra id, and merges the decoded spaces.
func (c *Client) FetchRooms(ctx context.Context, opts ListRoomsOptions) ([]Space, error) {
	payload, err := api.ListRooms(ctx, c.http, c.baseURL, opts)
	if err != nil {
		c.addLoadError("rooms-load", "Unable to load your spaces.", err)
		operationsTotal.WithLabelValues("fetch_rooms", outcomeFor(err)).Inc()
		return nil, err
	}

	var spaces []types.Space
	for _, raw := range rawItems(payload["items"]) {
		sp, err := normalize.ConstructSpaceFromRoom(raw)
		if err != nil {
			continue
		}
		spaces = append(spaces, sp)
	}
	c.spaces.StoreSpaces(spaces)
	operationsTotal.WithLabelValues("fetch_rooms", "ok").Inc()
	return spaces, nil
}

// CreateSpace creates a conversation with the given participants, each
// an email address or hydra person id. Validation runs before any
// network call; hydra ids are decoded to internal uuids for the wire.
func (c *Client) CreateSpace(ctx context.Context, displayName string, participants []string) (Space, error) {
	decoded := make([]string, 0, len(participants))
	for _, p := range participants {
		if err := types.ValidateParticipantTarget(p); err != nil {
			return Space{}, err
		}
		if types.IsHydraID(p) {
			id, err := types.DecodeHydraID(p)
			if err != nil {
				return Space{}, err
			}
			decoded = append(decoded, id)
			continue
		}
		decoded = append(decoded, p)
	}

	payload, err := api.CreateConversation(ctx, c.http, c.baseURL, types.CreateConversationRequest{
		Participants: decoded,
		DisplayName:  displayName,
	})
	if err != nil {
		c.addLoadError("space-create", "Unable to create the space.", err)
		operationsTotal.WithLabelValues("create_space", outcomeFor(err)).Inc()
		return Space{}, err
	}

	sp, err := normalize.ConstructSpace(payload)
	if err != nil {
		return Space{}, err
	}
	c.spaces.StoreSpaces([]types.Space{sp})
	operationsTotal.WithLabelValues("create_space", "ok").Inc()
	return sp, nil
}

// AddParticipantToSpace adds a participant by email address or hydra
// person id. Invalid targets fail synchronously; the participant is
// tracked as in-flight until the server confirms or rejects.
func (c *Client) AddParticipantToSpace(ctx context.Context, conversationID, target string) error {
	if err := types.ValidateParticipantTarget(target); err != nil {
		return err
	}

	req := types.AddParticipantRequest{ConversationID: conversationID}
	pending := types.Participant{}
	if types.IsEmail(target) {
		req.EmailAddress = target
		pending.EmailAddress = target
	} else {
		id, err := types.DecodeHydraID(target)
		if err != nil {
			return err
		}
		req.ID = id
		pending.ID = id
	}

	c.spaces.BeginAddParticipant(conversationID, pending)
	payload, err := api.AddParticipant(ctx, c.http, c.baseURL, req)
	if err != nil {
		c.spaces.FailAddParticipant(conversationID, pending)
		c.addLoadError("space-add-participant", "Unable to add the participant.", err)
		operationsTotal.WithLabelValues("add_participant", outcomeFor(err)).Inc()
		return err
	}

	confirmed, err := normalize.DecodeParticipant(payload)
	if err != nil || confirmed.ID == "" {
		confirmed = pending
	}
	if confirmed.EmailAddress == "" {
		confirmed.EmailAddress = pending.EmailAddress
	}
	c.spaces.ConfirmAddParticipant(conversationID, confirmed)
	operationsTotal.WithLabelValues("add_participant", "ok").Inc()
	return nil
}

// RemoveParticipantFromSpace removes a participant by email address or
// hydra person id. Invalid targets fail synchronously; the removal is
// tracked as in-flight until the server confirms or rejects.
func (c *Client) RemoveParticipantFromSpace(ctx context.Context, conversationID, target string) error {
	if err := types.ValidateParticipantTarget(target); err != nil {
		return err
	}

	pending := types.Participant{}
	if types.IsEmail(target) {
		pending.EmailAddress = target
		if sp, ok := c.spaces.Get(conversationID); ok {
			for _, p := range sp.Participants {
				if p.EmailAddress == target {
					pending.ID = p.ID
					break
				}
			}
		}
		if pending.ID == "" {
			return fmt.Errorf("no participant with address %q in %s", target, conversationID)
		}
	} else {
		id, err := types.DecodeHydraID(target)
		if err != nil {
			return err
		}
		pending.ID = id
	}

	c.spaces.BeginRemoveParticipant(conversationID, pending)
	if _, err := api.LeaveConversation(ctx, c.http, c.baseURL, conversationID, pending.ID); err != nil {
		c.spaces.FailRemoveParticipant(conversationID, pending)
		c.addLoadError("space-remove-participant", "Unable to remove the participant.", err)
		operationsTotal.WithLabelValues("remove_participant", outcomeFor(err)).Inc()
		return err
	}
	c.spaces.ConfirmRemoveParticipant(conversationID, pending)
	operationsTotal.WithLabelValues("remove_participant", "ok").Inc()
	return nil
}

// LeaveSpace removes the current user from the conversation and drops
// its local state.
func (c *Client) LeaveSpace(ctx context.Context, conversationID string) error {
	if err := types.ValidateIDPresent(c.selfID, "self id"); err != nil {
		return err
	}
	_, err := api.LeaveConversation(ctx, c.http, c.baseURL, conversationID, c.selfID)
	if err != nil {
		c.addLoadError("space-leave", "Unable to leave the space.", err)
		operationsTotal.WithLabelValues("leave_space", outcomeFor(err)).Inc()
		return err
	}
	c.spaces.Remove(conversationID)
	c.activities.RemoveConversation(conversationID)
	operationsTotal.WithLabelValues("leave_space", "ok").Inc()
	return nil
}

// --------------------------------------------------------------------
// Activity operations
// --------------------------------------------------------------------

// AcknowledgeActivity marks the activity read, advancing this user's
// read position to the activity's publish time.
func (c *Client) AcknowledgeActivity(ctx context.Context, conversationID, activityID string) error {
	_, err := api.AcknowledgeActivity(ctx, c.http, c.baseURL, types.AcknowledgeRequest{
		ConversationID: conversationID,
		ActivityID:     activityID,
	})
	if err != nil {
		operationsTotal.WithLabelValues("acknowledge", outcomeFor(err)).Inc()
		return err
	}
	c.activities.Acknowledge(conversationID, activityID)

	lastSeen := time.Now().UTC()
	if act, ok := c.activities.Get(conversationID, activityID); ok && !act.Published.IsZero() {
		lastSeen = act.Published
	}
	c.spaces.UpdateSpaceRead(conversationID, lastSeen)
	operationsTotal.WithLabelValues("acknowledge", "ok").Inc()
	return nil
}

// DeleteActivity removes the activity server-side, then tombstones it
// locally so it can never resurface.
func (c *Client) DeleteActivity(ctx context.Context, conversationID, activityID string) error {
	_, err := api.DeleteActivity(ctx, c.http, c.baseURL, conversationID, activityID)
	if err != nil {
		operationsTotal.WithLabelValues("delete_activity", outcomeFor(err)).Inc()
		return err
	}
	c.activities.AddActivities(conversationID, []types.Activity{{
		ID:     "local-delete-" + activityID,
		Verb:   types.VerbDelete,
		Object: types.ActivityObject{ID: activityID},
	}})
	operationsTotal.WithLabelValues("delete_activity", "ok").Inc()
	return nil
}

// --------------------------------------------------------------------
// Outgoing messages - delegated to the outbox
// --------------------------------------------------------------------

// SetMessageText updates the conversation's draft text and flips the
// typing indicator accordingly.
func (c *Client) SetMessageText(ctx context.Context, conversationID, text string) {
	c.outbox.SetText(ctx, conversationID, text)
}

// AddFiles stages files on the conversation's draft.
func (c *Client) AddFiles(conversationID string, files ...FileItem) {
	c.outbox.AddFiles(conversationID, files...)
}

// RemoveFile unstages a file from the conversation's draft.
func (c *Client) RemoveFile(conversationID, clientTempID string) {
	c.outbox.RemoveFile(conversationID, clientTempID)
}

// SendMessage submits the conversation's draft. An empty draft is a
// no-op.
func (c *Client) SendMessage(ctx context.Context, conversationID string) error {
	return c.outbox.Submit(ctx, conversationID)
}

// RetryMessage retries a failed draft from its preserved snapshot.
func (c *Client) RetryMessage(ctx context.Context, conversationID string) error {
	return c.outbox.Retry(ctx, conversationID)
}

// Draft returns a copy of the conversation's outgoing draft.
func (c *Client) Draft(conversationID string) Draft {
	return c.outbox.Draft(conversationID)
}

// SetUserTyping flips the typing indicator. Fire-and-forget.
func (c *Client) SetUserTyping(ctx context.Context, conversationID string, isTyping bool) {
	c.outbox.SetUserTyping(ctx, conversationID, isTyping)
}

// storeConfirmedActivity lands a server-confirmed outgoing activity the
// same way a push event would.
func (c *Client) storeConfirmedActivity(conversationID string, payload map[string]any) {
	act, err := normalize.DecodeActivity(payload)
	if err != nil {
		return
	}
	if act.Target.ID == "" {
		act.Target.ID = conversationID
	}
	c.activities.AddActivities(conversationID, []types.Activity{act})
	c.spaces.UpdateSpaceWithActivity(act, true, normalize.IsReadable(act))
}

// --------------------------------------------------------------------
// Push
// --------------------------------------------------------------------

// Dispatch feeds one realtime event into the stores. Any source able
// to deliver events can call it; the client carries no socket.
func (c *Client) Dispatch(ev Event) {
	c.dispatcher.Dispatch(ev)
}

// --------------------------------------------------------------------
// Snapshot accessors
// --------------------------------------------------------------------

// Space returns the stored space by id.
func (c *Client) Space(conversationID string) (Space, bool) {
	return c.spaces.Get(conversationID)
}

// Spaces returns every stored space in unspecified order.
func (c *Client) Spaces() []Space {
	return c.spaces.List()
}

// Timeline returns the conversation's flattened activity view in
// ascending publish order.
func (c *Client) Timeline(conversationID string) []Activity {
	return c.activities.Flatten(conversationID)
}

// Thread returns the replies of the given root activity.
func (c *Client) Thread(conversationID, rootID string) []Activity {
	return c.activities.Thread(conversationID, rootID)
}

// Errors returns the surfaced error banners in insertion order.
func (c *Client) Errors() []ErrorRecord {
	return c.errors.List()
}

// DismissError removes an error banner.
func (c *Client) DismissError(id string) {
	c.errors.Remove(id)
}

// ActiveIncomingCalls returns ringing calls not yet joined or
// dismissed.
func (c *Client) ActiveIncomingCalls() []Call {
	return c.media.ActiveIncoming()
}

// Call returns the call by id, failing fast on unknown ids.
func (c *Client) Call(id string) (Call, error) {
	return c.media.Get(id)
}

// DismissCall hides the call from active-incoming derivations.
func (c *Client) DismissCall(id string) error {
	return c.media.Dismiss(id)
}

// --------------------------------------------------------------------
// helpers
// --------------------------------------------------------------------

func (c *Client) addLoadError(id, subtitle string, err error) {
	c.errors.Add(types.ErrorRecord{
		ID:              id,
		DisplayTitle:    loadErrorTitle,
		DisplaySubtitle: subtitle,
		Temporary:       false,
		Code:            errs.ErrorCode(err),
	})
}

func outcomeFor(err error) string {
	if errs.IsIrrecoverable(err) {
		return "irrecoverable"
	}
	return "recoverable"
}

func rawItems(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// conversationService adapts the stateless api functions to the slice
// of the service the outbox needs.
type conversationService struct{ c *Client }

func (s conversationService) PostComment(ctx context.Context, req types.PostCommentRequest) (map[string]any, error) {
	return api.PostComment(ctx, s.c.http, s.c.baseURL, req)
}

func (s conversationService) PostShare(ctx context.Context, req types.PostShareRequest) (map[string]any, error) {
	return api.PostShare(ctx, s.c.http, s.c.baseURL, req)
}

func (s conversationService) UpdateTypingStatus(ctx context.Context, req types.TypingStatusRequest) error {
	return api.UpdateTypingStatus(ctx, s.c.http, s.c.baseURL, req)
}
