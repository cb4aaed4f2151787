// Package mediastore tracks call/meeting records with secondary
// lookups by locus URL and by destination. The primary map and both
// indexes change under a single lock transition, so a reader can never
// observe one without the other.
package mediastore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/parleyhq/parley-go/internal/types"
)

// DestinationKey builds the composite destination lookup key. Both
// parts are required.
func DestinationKey(destinationType, destinationID string) (string, error) {
	if destinationType == "" || destinationID == "" {
		return "", fmt.Errorf("mediastore: destination key needs type and id, got type=%q id=%q", destinationType, destinationID)
	}
	return fmt.Sprintf("%s-%s", destinationType, destinationID), nil
}

// CallPatch is a partial call-state update; nil fields are left
// untouched.
type CallPatch struct {
	LocusURL       *string
	Destination    *string
	Joined         *bool
	HasLocalMedia  *bool
	HasRemoteVideo *bool
	HasRemoteAudio *bool
}

// Store is the call collection. Safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	byID          map[string]types.Call
	byLocusURL    map[string]string // locus url -> call id
	byDestination map[string]string // destination key -> call id
}

func New() *Store {
	return &Store{
		byID:          make(map[string]types.Call),
		byLocusURL:    make(map[string]string),
		byDestination: make(map[string]string),
	}
}

// StoreCall inserts or replaces the call and updates both indexes in
// the same transition.
func (s *Store) StoreCall(call types.Call) error {
	if call.ID == "" {
		return errors.New("mediastore: call id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Replacing a call may change its secondary identities; drop the
	// old index entries first.
	if prev, ok := s.byID[call.ID]; ok {
		s.dropIndexesLocked(prev)
	}
	s.byID[call.ID] = call
	if call.LocusURL != "" {
		s.byLocusURL[call.LocusURL] = call.ID
	}
	if call.Destination != "" {
		s.byDestination[call.Destination] = call.ID
	}
	return nil
}

// UpdateCallStatus merges the patch into the call without touching
// unrelated fields.
func (s *Store) UpdateCallStatus(id string, patch CallPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("mediastore: unknown call %q", id)
	}

	s.dropIndexesLocked(call)
	if patch.LocusURL != nil {
		call.LocusURL = *patch.LocusURL
	}
	if patch.Destination != nil {
		call.Destination = *patch.Destination
	}
	if patch.Joined != nil {
		call.Joined = *patch.Joined
	}
	if patch.HasLocalMedia != nil {
		call.HasLocalMedia = *patch.HasLocalMedia
	}
	if patch.HasRemoteVideo != nil {
		call.HasRemoteVideo = *patch.HasRemoteVideo
	}
	if patch.HasRemoteAudio != nil {
		call.HasRemoteAudio = *patch.HasRemoteAudio
	}
	s.byID[id] = call
	if call.LocusURL != "" {
		s.byLocusURL[call.LocusURL] = id
	}
	if call.Destination != "" {
		s.byDestination[call.Destination] = id
	}
	return nil
}

// RemoveCall deletes the call and scans both indexes for entries still
// pointing at it. Index cardinality is small, so the scan is fine.
func (s *Store) RemoveCall(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	for k, v := range s.byLocusURL {
		if v == id {
			delete(s.byLocusURL, k)
		}
	}
	for k, v := range s.byDestination {
		if v == id {
			delete(s.byDestination, k)
		}
	}
}

// Dismiss hides the call from active-incoming derivations while
// keeping it addressable by id.
func (s *Store) Dismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("mediastore: unknown call %q", id)
	}
	call.IsDismissed = true
	s.byID[id] = call
	return nil
}

// JoinMeeting marks the call as joined.
func (s *Store) JoinMeeting(id string) error {
	joined := true
	return s.UpdateCallStatus(id, CallPatch{Joined: &joined})
}

// LeaveMeeting marks the call as left and drops local media.
func (s *Store) LeaveMeeting(id string) error {
	f := false
	return s.UpdateCallStatus(id, CallPatch{Joined: &f, HasLocalMedia: &f})
}

// Get returns the call by id, failing fast on unknown ids.
func (s *Store) Get(id string) (types.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	call, ok := s.byID[id]
	if !ok {
		return types.Call{}, fmt.Errorf("mediastore: unknown call %q", id)
	}
	return call, nil
}

// GetByLocusURL resolves the call via the locus index.
func (s *Store) GetByLocusURL(locusURL string) (types.Call, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byLocusURL[locusURL]
	if !ok {
		return types.Call{}, false
	}
	call, ok := s.byID[id]
	return call, ok
}

// GetByDestination resolves the call via the destination index.
func (s *Store) GetByDestination(destinationType, destinationID string) (types.Call, bool, error) {
	key, err := DestinationKey(destinationType, destinationID)
	if err != nil {
		return types.Call{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byDestination[key]
	if !ok {
		return types.Call{}, false, nil
	}
	call, ok := s.byID[id]
	return call, ok, nil
}

// ActiveIncoming returns the not-yet-joined, not-dismissed calls.
func (s *Store) ActiveIncoming() []types.Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Call
	for _, call := range s.byID {
		if !call.Joined && !call.IsDismissed {
			out = append(out, call)
		}
	}
	return out
}

func (s *Store) dropIndexesLocked(call types.Call) {
	if call.LocusURL != "" && s.byLocusURL[call.LocusURL] == call.ID {
		delete(s.byLocusURL, call.LocusURL)
	}
	if call.Destination != "" && s.byDestination[call.Destination] == call.ID {
		delete(s.byDestination, call.Destination)
	}
}
