// Package activitystore holds the activities of every conversation:
// a main timeline plus per-parent reply threads, with tombstones so a
// delete that arrives ahead of its post can never be resurrected.
package activitystore

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley-go/internal/types"
)

type entry struct {
	activity types.Activity
	seq      uint64 // insertion order, tie-break for equal Published
	acked    bool
}

// conversation is the per-space activity state.
type conversation struct {
	byID       map[string]*entry
	main       []string            // non-reply activity ids, insertion order
	threads    map[string][]string // parent id -> reply ids, insertion order
	tombstones map[string]struct{}
	byTempID   map[string]string // clientTempId -> activity id
	nextSeq    uint64
}

func newConversation() *conversation {
	return &conversation{
		byID:       make(map[string]*entry),
		threads:    make(map[string][]string),
		tombstones: make(map[string]struct{}),
		byTempID:   make(map[string]string),
	}
}

// Store keeps activities per conversation id. Safe for concurrent use;
// every mutating call applies atomically.
type Store struct {
	mu    sync.RWMutex
	convs map[string]*conversation
}

func New() *Store {
	return &Store{convs: make(map[string]*conversation)}
}

// AddActivities merges a batch into the conversation's timeline and
// threads. Delete-verb activities tombstone their object id and remove
// any stored copy instead of being stored themselves. Content-update
// noise (objectType "content" with verb "update") is dropped; share
// updates are retained. Re-adding a known id overwrites in place and
// keeps its original position. An id arriving after its tombstone is
// discarded.
func (s *Store) AddActivities(conversationID string, activities []types.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.convs[conversationID]
	if c == nil {
		c = newConversation()
		s.convs[conversationID] = c
	}

	for _, act := range activities {
		if act.Verb == types.VerbDelete {
			c.deleteLocked(act.Object.ID)
			continue
		}
		if act.Object.ObjectType == types.ObjectTypeContent && act.Verb == types.VerbUpdate {
			continue
		}
		if _, dead := c.tombstones[act.ID]; dead {
			log.Debug().Str("activity", act.ID).Msg("activitystore: dropping tombstoned id")
			continue
		}
		c.upsertLocked(act)
	}
}

func (c *conversation) upsertLocked(act types.Activity) {
	// A server-confirmed activity replaces its optimistic twin with the
	// same clientTempId.
	if act.ClientTempID != "" {
		if oldID, ok := c.byTempID[act.ClientTempID]; ok && oldID != act.ID {
			c.removeLocked(oldID)
		}
		c.byTempID[act.ClientTempID] = act.ID
	}

	if e, ok := c.byID[act.ID]; ok {
		e.activity = act
		return
	}

	e := &entry{activity: act, seq: c.nextSeq}
	c.nextSeq++
	c.byID[act.ID] = e

	if act.IsReply() {
		parent := act.Parent.ID
		c.threads[parent] = append(c.threads[parent], act.ID)
	} else {
		c.main = append(c.main, act.ID)
	}
}

// deleteLocked removes id and records its tombstone.
func (c *conversation) deleteLocked(id string) {
	if id == "" {
		return
	}
	c.tombstones[id] = struct{}{}
	c.removeLocked(id)
	// A deleted thread root orphans its replies; they stay stored and
	// Flatten folds them into the main flow.
}

func (c *conversation) removeLocked(id string) {
	e, ok := c.byID[id]
	if !ok {
		return
	}
	delete(c.byID, id)
	if e.activity.ClientTempID != "" && c.byTempID[e.activity.ClientTempID] == id {
		delete(c.byTempID, e.activity.ClientTempID)
	}
	if e.activity.IsReply() {
		parent := e.activity.Parent.ID
		c.threads[parent] = removeID(c.threads[parent], id)
		if len(c.threads[parent]) == 0 {
			delete(c.threads, parent)
		}
	} else {
		c.main = removeID(c.main, id)
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Acknowledge marks the activity as read without touching its content.
func (s *Store) Acknowledge(conversationID, activityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.convs[conversationID]
	if c == nil {
		return
	}
	if e, ok := c.byID[activityID]; ok {
		e.acked = true
	}
}

// IsAcknowledged reports whether the activity has been marked read.
func (s *Store) IsAcknowledged(conversationID, activityID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.convs[conversationID]
	if c == nil {
		return false
	}
	e, ok := c.byID[activityID]
	return ok && e.acked
}

// Remove deletes an activity without recording a tombstone. Used when a
// space is dropped wholesale; for delete activities use AddActivities.
func (s *Store) Remove(conversationID, activityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.convs[conversationID]; c != nil {
		c.removeLocked(activityID)
	}
}

// RemoveConversation drops every activity of the conversation.
func (s *Store) RemoveConversation(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, conversationID)
}

// Get returns the stored activity by id.
func (s *Store) Get(conversationID, activityID string) (types.Activity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.convs[conversationID]
	if c == nil {
		return types.Activity{}, false
	}
	e, ok := c.byID[activityID]
	if !ok {
		return types.Activity{}, false
	}
	return e.activity, true
}

// IsTombstoned reports whether the id was deleted.
func (s *Store) IsTombstoned(conversationID, activityID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.convs[conversationID]
	if c == nil {
		return false
	}
	_, dead := c.tombstones[activityID]
	return dead
}

// Thread returns the replies of the given root in chronological order.
func (s *Store) Thread(conversationID, rootID string) []types.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.convs[conversationID]
	if c == nil {
		return nil
	}
	out := c.collect(c.threads[rootID])
	sortEntriesStable(out)
	return activitiesOf(out)
}

// Flatten merges the main timeline and every reply thread into one
// strictly ascending Published order. Equal timestamps keep insertion
// order. Replies whose root is still present sort with the whole set by
// Published, so a thread reads root first, replies after.
func (s *Store) Flatten(conversationID string) []types.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.convs[conversationID]
	if c == nil {
		return nil
	}

	all := make([]*entry, 0, len(c.byID))
	for _, e := range c.byID {
		all = append(all, e)
	}
	sortEntriesStable(all)
	return activitiesOf(all)
}

func (c *conversation) collect(ids []string) []*entry {
	out := make([]*entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := c.byID[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

func sortEntriesStable(es []*entry) {
	sort.Slice(es, func(i, j int) bool {
		a, b := es[i], es[j]
		if a.activity.Published.Equal(b.activity.Published) {
			return a.seq < b.seq
		}
		return a.activity.Published.Before(b.activity.Published)
	})
}

func activitiesOf(es []*entry) []types.Activity {
	out := make([]types.Activity, len(es))
	for i, e := range es {
		out[i] = e.activity
	}
	return out
}
