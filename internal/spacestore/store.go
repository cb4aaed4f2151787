// Package spacestore holds conversation/space records keyed by id and
// the transient participant add/remove bookkeeping that goes with them.
//
// StoreSpaces applies a field-level deep merge rather than a replace:
// a zero-valued incoming field preserves the prior value, except for
// booleans, which are always authoritative because normalization
// derives them on every payload. Participants replace only when the
// incoming set is non-empty; tags replace only when present.
package spacestore

import (
	"sync"
	"time"

	"github.com/parleyhq/parley-go/internal/types"
)

type inFlight struct {
	adding   []string // participant keys (id, else email)
	removing []string
}

// Store is the space collection. Safe for concurrent use; every
// mutating call applies atomically.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]types.Space
	inFlight map[string]*inFlight // conversation id -> pending participant ops
}

func New() *Store {
	return &Store{
		byID:     make(map[string]types.Space),
		inFlight: make(map[string]*inFlight),
	}
}

// StoreSpaces deep-merges each space into the collection by id.
// Spaces without an id are dropped.
func (s *Store) StoreSpaces(spaces []types.Space) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sp := range spaces {
		if sp.ID == "" {
			continue
		}
		prev, ok := s.byID[sp.ID]
		if !ok {
			sp.IsFetching = false
			s.byID[sp.ID] = sp
			continue
		}
		s.byID[sp.ID] = mergeSpace(prev, sp)
	}
}

func mergeSpace(prev, next types.Space) types.Space {
	out := prev

	if next.GlobalID != "" {
		out.GlobalID = next.GlobalID
	}
	if next.DisplayName != "" {
		out.DisplayName = next.DisplayName
	}
	if next.URL != "" {
		out.URL = next.URL
	}
	if next.ConversationWebURL != "" {
		out.ConversationWebURL = next.ConversationWebURL
	}
	if next.LocusURL != "" {
		out.LocusURL = next.LocusURL
	}
	if next.Type != "" {
		out.Type = next.Type
	}
	if next.LatestActivity != "" {
		out.LatestActivity = next.LatestActivity
	}
	if len(next.Participants) > 0 {
		out.Participants = next.Participants
	}
	if next.Tags != nil {
		out.Tags = next.Tags
	}
	if next.Team != nil {
		out.Team = next.Team
	}
	if !next.Published.IsZero() {
		out.Published = next.Published
	}
	if !next.LastSeenActivityDate.IsZero() {
		out.LastSeenActivityDate = next.LastSeenActivityDate
	}
	if !next.LastReadableActivityDate.IsZero() {
		out.LastReadableActivityDate = next.LastReadableActivityDate
	}
	if !next.LastRelevantActivityDate.IsZero() {
		out.LastRelevantActivityDate = next.LastRelevantActivityDate
	}

	// Booleans are derived on every normalized payload, so the
	// incoming value wins even when false.
	out.IsDecrypting = next.IsDecrypting
	out.IsLocked = next.IsLocked
	out.IsHidden = next.IsHidden
	out.IsFetching = false

	return out
}

// StoreInitialSpace marks the space as being fetched, inserting a
// placeholder record when the id is unknown. A failed fetch only has
// to call MarkFetched; the record's data is never touched.
func (s *Store) StoreInitialSpace(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.byID[id]
	if !ok {
		sp = types.Space{ID: id}
	}
	sp.IsFetching = true
	s.byID[id] = sp
}

// MarkFetched clears the fetching flag without merging any data.
func (s *Store) MarkFetched(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.byID[id]; ok {
		sp.IsFetching = false
		s.byID[id] = sp
	}
}

// UpdateSpaceWithActivity patches the space the activity targets:
// latest-activity pointer, the lock flag for lock/unlock verbs, and
// the read dates. Participants and tags are never touched here.
func (s *Store) UpdateSpaceWithActivity(act types.Activity, isSelf, isReadable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := act.Target.ID
	if id == "" {
		return
	}
	sp, ok := s.byID[id]
	if !ok {
		return
	}

	sp.LatestActivity = act.ID
	switch act.Verb {
	case types.VerbLock:
		sp.IsLocked = true
	case types.VerbUnlock:
		sp.IsLocked = false
	}
	if isSelf && !act.Published.IsZero() {
		sp.LastSeenActivityDate = act.Published
	}
	if isReadable && !act.Published.IsZero() {
		sp.LastReadableActivityDate = act.Published
		sp.LastRelevantActivityDate = act.Published
	}
	s.byID[id] = sp
}

// UpdateSpaceRead records the reader's position after an acknowledge.
func (s *Store) UpdateSpaceRead(id string, lastSeen time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.byID[id]
	if !ok {
		return
	}
	sp.LastSeenActivityDate = lastSeen
	s.byID[id] = sp
}

// AddSpaceTags unions tags into the space's tag set. No-op when the
// space is absent.
func (s *Store) AddSpaceTags(id string, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.byID[id]
	if !ok {
		return
	}
	for _, t := range tags {
		if !sp.HasTag(t) {
			sp.Tags = append(sp.Tags, t)
		}
	}
	sp.IsLocked = sp.HasTag(types.TagLocked)
	s.byID[id] = sp
}

// RemoveSpaceTags removes tags from the space's tag set. No-op when
// the space is absent.
func (s *Store) RemoveSpaceTags(id string, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.byID[id]
	if !ok {
		return
	}
	drop := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		drop[t] = struct{}{}
	}
	kept := make([]string, 0, len(sp.Tags))
	for _, t := range sp.Tags {
		if _, gone := drop[t]; !gone {
			kept = append(kept, t)
		}
	}
	sp.Tags = kept
	sp.IsLocked = sp.HasTag(types.TagLocked)
	s.byID[id] = sp
}

// Remove drops the space and its in-flight bookkeeping.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	delete(s.inFlight, id)
}

// Get returns a snapshot of the space by id. The snapshot does not
// share Tags or Participants storage with the store, so later
// mutations never reach it.
func (s *Store) Get(id string) (types.Space, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.byID[id]
	if !ok {
		return types.Space{}, false
	}
	return snapshotSpace(sp), true
}

// List returns snapshots of every stored space in unspecified order.
func (s *Store) List() []types.Space {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Space, 0, len(s.byID))
	for _, sp := range s.byID {
		out = append(out, snapshotSpace(sp))
	}
	return out
}

func snapshotSpace(sp types.Space) types.Space {
	if sp.Tags != nil {
		sp.Tags = append([]string(nil), sp.Tags...)
	}
	if sp.Participants != nil {
		sp.Participants = append([]types.Participant(nil), sp.Participants...)
	}
	return sp
}

// ------------------------- participants -------------------------

// participantKey identifies a pending participant: the id when known,
// the email otherwise.
func participantKey(p types.Participant) string {
	if p.ID != "" {
		return p.ID
	}
	return p.EmailAddress
}

// BeginAddParticipant records that a participant add is in flight.
func (s *Store) BeginAddParticipant(conversationID string, p types.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.inFlightLocked(conversationID)
	f.adding = append(f.adding, participantKey(p))
}

// ConfirmAddParticipant appends the confirmed participant to the space
// and clears exactly one matching in-flight marker.
func (s *Store) ConfirmAddParticipant(conversationID string, p types.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.inFlightLocked(conversationID)
	f.adding = removeFirst(f.adding, participantKey(p))
	if p.EmailAddress != "" {
		f.adding = removeFirst(f.adding, p.EmailAddress)
	}
	sp, ok := s.byID[conversationID]
	if !ok {
		return
	}
	for _, existing := range sp.Participants {
		if existing.ID == p.ID {
			return
		}
	}
	sp.Participants = append(sp.Participants, p)
	s.byID[conversationID] = sp
}

// FailAddParticipant clears the in-flight marker without mutating the
// participant list.
func (s *Store) FailAddParticipant(conversationID string, p types.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.inFlightLocked(conversationID)
	f.adding = removeFirst(f.adding, participantKey(p))
	if p.EmailAddress != "" {
		f.adding = removeFirst(f.adding, p.EmailAddress)
	}
}

// BeginRemoveParticipant records that a participant removal is in
// flight.
func (s *Store) BeginRemoveParticipant(conversationID string, p types.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.inFlightLocked(conversationID)
	f.removing = append(f.removing, participantKey(p))
}

// ConfirmRemoveParticipant drops the participant from the space and
// clears its in-flight marker.
func (s *Store) ConfirmRemoveParticipant(conversationID string, p types.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.inFlightLocked(conversationID)
	f.removing = removeFirst(f.removing, participantKey(p))
	sp, ok := s.byID[conversationID]
	if !ok {
		return
	}
	kept := make([]types.Participant, 0, len(sp.Participants))
	for _, existing := range sp.Participants {
		if existing.ID != p.ID {
			kept = append(kept, existing)
		}
	}
	sp.Participants = kept
	s.byID[conversationID] = sp
}

// FailRemoveParticipant clears the in-flight marker without mutating
// the participant list.
func (s *Store) FailRemoveParticipant(conversationID string, p types.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.inFlightLocked(conversationID)
	f.removing = removeFirst(f.removing, participantKey(p))
}

// InFlightParticipants returns the pending add and remove keys.
func (s *Store) InFlightParticipants(conversationID string) (adding, removing []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.inFlight[conversationID]
	if !ok {
		return nil, nil
	}
	adding = append([]string(nil), f.adding...)
	removing = append([]string(nil), f.removing...)
	return adding, removing
}

func (s *Store) inFlightLocked(conversationID string) *inFlight {
	f, ok := s.inFlight[conversationID]
	if !ok {
		f = &inFlight{}
		s.inFlight[conversationID] = f
	}
	return f
}

func removeFirst(keys []string, key string) []string {
	if key == "" {
		return keys
	}
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}
