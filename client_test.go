package parley

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/parleyhq/parley-go/internal/sendqueue"
)

const selfID = "me-uuid"

func conversationPayload() map[string]any {
	return map[string]any{
		"id":          "conv-1",
		"displayName": "Project Parley",
		"url":         "https://conv.example.com/conversations/conv-1",
		"tags":        []any{"FAVORITE"},
		"participants": map[string]any{
			"items": []any{
				map[string]any{"id": selfID, "displayName": "Me"},
				map[string]any{"id": "u2", "displayName": "Ada Lovelace"},
			},
		},
		"activities": map[string]any{
			"items": []any{
				map[string]any{
					"id":        "act-1",
					"verb":      "post",
					"published": "2025-06-01T10:00:00Z",
					"actor":     map[string]any{"id": "u2", "displayName": "Ada Lovelace"},
					"object":    map[string]any{"objectType": "comment", "displayName": "hello"},
					"target":    map[string]any{"id": "conv-1"},
				},
			},
		},
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "test-token", WithSelfID(selfID))
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestFetchSpaceStoresEverything(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(conversationPayload())
	}))

	sp, err := c.FetchSpace(context.Background(), "conv-1", GetConversationOptions{ActivitiesLimit: 40})
	if err != nil {
		t.Fatalf("FetchSpace: %v", err)
	}
	if sp.DisplayName != "Project Parley" || len(sp.Participants) != 2 {
		t.Fatalf("space = %+v", sp)
	}
	if sp.IsFetching {
		t.Fatal("IsFetching still set after successful fetch")
	}

	timeline := c.Timeline("conv-1")
	if len(timeline) != 1 || timeline[0].ID != "act-1" {
		t.Fatalf("timeline = %+v", timeline)
	}
	if len(c.Errors()) != 0 {
		t.Fatalf("errors = %+v", c.Errors())
	}
}

func TestFetchSpaceFailureRaisesBanner(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	// Seed a record so the failure provably leaves it untouched.
	_, err := c.FetchSpace(context.Background(), "conv-1", GetConversationOptions{})
	if err == nil {
		t.Fatal("want error on 404")
	}

	banners := c.Errors()
	if len(banners) != 1 {
		t.Fatalf("errors = %+v", banners)
	}
	b := banners[0]
	if b.ID != "space-load" || b.DisplayTitle != "Something's not right" || b.Code != "not-found" || b.Temporary {
		t.Fatalf("banner = %+v", b)
	}

	sp, ok := c.Space("conv-1")
	if !ok {
		t.Fatal("placeholder missing")
	}
	if sp.IsFetching || sp.DisplayName != "" {
		t.Fatalf("failed fetch mutated record: %+v", sp)
	}

	c.DismissError("space-load")
	if len(c.Errors()) != 0 {
		t.Fatal("banner survived dismissal")
	}
}

func TestFetchSpacesMergesList(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []any{
				conversationPayload(),
				map[string]any{"id": "conv-2", "displayName": "Second"},
			},
		})
	}))

	spaces, err := c.FetchSpaces(context.Background(), ListConversationsOptions{ActivitiesLimit: 5, ParticipantsLimit: 8})
	if err != nil {
		t.Fatalf("FetchSpaces: %v", err)
	}
	if len(spaces) != 2 {
		t.Fatalf("spaces = %d", len(spaces))
	}
	if got := c.Timeline("conv-1"); len(got) != 1 {
		t.Fatalf("conv-1 timeline = %+v", got)
	}
	if _, ok := c.Space("conv-2"); !ok {
		t.Fatal("conv-2 missing")
	}
}

func TestSendMessageRoundTrip(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var posted map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversations/conv-1/activities":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			posted = body
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":           "act-99",
				"verb":         "post",
				"published":    "2025-06-01T12:00:00Z",
				"clientTempId": body["clientTempId"],
				"actor":        map[string]any{"id": selfID},
				"object":       body["object"],
				"target":       map[string]any{"id": "conv-1"},
			})
		case "/conversations/conv-1/typing":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	c.spaces.StoreSpaces([]Space{{ID: "conv-1"}})
	c.SetMessageText(context.Background(), "conv-1", "**bold** yo!")
	if err := c.SendMessage(context.Background(), "conv-1"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.AwaitSync(ctx, "conv-1"); err != nil {
		t.Fatalf("AwaitSync: %v", err)
	}

	mu.Lock()
	if posted["verb"] != "post" {
		t.Fatalf("posted = %v", posted)
	}
	mu.Unlock()

	timeline := c.Timeline("conv-1")
	if len(timeline) != 1 || timeline[0].ID != "act-99" {
		t.Fatalf("timeline = %+v", timeline)
	}
	sp, _ := c.Space("conv-1")
	if sp.LatestActivity != "act-99" {
		t.Fatalf("LatestActivity = %q", sp.LatestActivity)
	}
	if d := c.Draft("conv-1"); d.State != DraftStateSucceeded || d.Text != "" {
		t.Fatalf("draft = %+v", d)
	}
}

func TestAddParticipantValidatesBeforeNetwork(t *testing.T) {
	t.Parallel()

	var hits int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := c.AddParticipantToSpace(context.Background(), "conv-1", "not-an-email-or-id")
	if err == nil {
		t.Fatal("invalid target accepted")
	}
	if hits != 0 {
		t.Fatal("invalid target reached the network")
	}
}

func TestAddParticipantFlow(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           "u3",
			"emailAddress": "ada@example.com",
			"displayName":  "Ada",
		})
	}))

	c.spaces.StoreSpaces([]Space{{ID: "conv-1", Participants: []Participant{{ID: selfID}}}})
	if err := c.AddParticipantToSpace(context.Background(), "conv-1", "ada@example.com"); err != nil {
		t.Fatalf("AddParticipantToSpace: %v", err)
	}

	sp, _ := c.Space("conv-1")
	if len(sp.Participants) != 2 {
		t.Fatalf("participants = %+v", sp.Participants)
	}
	adding, _ := c.spaces.InFlightParticipants("conv-1")
	if len(adding) != 0 {
		t.Fatalf("in-flight not cleared: %v", adding)
	}
}

func TestRemoveParticipantFromSpace(t *testing.T) {
	t.Parallel()

	var gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	c.spaces.StoreSpaces([]Space{{ID: "conv-1", Participants: []Participant{
		{ID: selfID},
		{ID: "u2", EmailAddress: "ada@example.com"},
	}}})

	if err := c.RemoveParticipantFromSpace(context.Background(), "conv-1", "ada@example.com"); err != nil {
		t.Fatalf("RemoveParticipantFromSpace: %v", err)
	}
	if gotPath != "/conversations/conv-1/participants/u2" {
		t.Fatalf("path = %q", gotPath)
	}

	sp, _ := c.Space("conv-1")
	if len(sp.Participants) != 1 || sp.Participants[0].ID != selfID {
		t.Fatalf("participants = %+v", sp.Participants)
	}
	_, removing := c.spaces.InFlightParticipants("conv-1")
	if len(removing) != 0 {
		t.Fatalf("in-flight not cleared: %v", removing)
	}

	// A target that is neither an email nor a hydra id never reaches
	// the network.
	if err := c.RemoveParticipantFromSpace(context.Background(), "conv-1", "not a target"); err == nil {
		t.Fatal("invalid target accepted")
	}
	// An address with no matching participant fails synchronously too.
	if err := c.RemoveParticipantFromSpace(context.Background(), "conv-1", "ghost@example.com"); err == nil {
		t.Fatal("unknown address accepted")
	}
}

func TestLeaveSpaceRequiresSelfID(t *testing.T) {
	t.Parallel()

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "test-token") // no self id configured
	t.Cleanup(func() { _ = c.Close() })

	if err := c.LeaveSpace(context.Background(), "conv-1"); err == nil {
		t.Fatal("LeaveSpace without a self id succeeded")
	}
	if hits != 0 {
		t.Fatalf("request reached the server %d times", hits)
	}
}

func TestRemoveParticipantFailureKeepsRoster(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	c.spaces.StoreSpaces([]Space{{ID: "conv-1", Participants: []Participant{
		{ID: selfID},
		{ID: "u2", EmailAddress: "ada@example.com"},
	}}})

	if err := c.RemoveParticipantFromSpace(context.Background(), "conv-1", "ada@example.com"); err == nil {
		t.Fatal("forbidden removal reported success")
	}

	sp, _ := c.Space("conv-1")
	if len(sp.Participants) != 2 {
		t.Fatalf("failed removal mutated the roster: %+v", sp.Participants)
	}
	_, removing := c.spaces.InFlightParticipants("conv-1")
	if len(removing) != 0 {
		t.Fatalf("in-flight not cleared on failure: %v", removing)
	}

	found := false
	for _, rec := range c.Errors() {
		if rec.ID == "space-remove-participant" {
			found = true
		}
	}
	if !found {
		t.Fatal("no error banner for failed removal")
	}
}

func TestDispatchIntoStores(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	c.spaces.StoreSpaces([]Space{{ID: "conv-1"}})

	c.Dispatch(Event{
		Name: EventConversationActivity,
		Data: map[string]any{
			"id":        "act-push",
			"verb":      "post",
			"published": "2025-06-01T13:00:00Z",
			"actor":     map[string]any{"id": "u2"},
			"object":    map[string]any{"objectType": "comment", "displayName": "ping"},
			"target":    map[string]any{"id": "conv-1"},
		},
	})

	if got := c.Timeline("conv-1"); len(got) != 1 || got[0].ID != "act-push" {
		t.Fatalf("timeline = %+v", got)
	}
	sp, _ := c.Space("conv-1")
	if sp.LatestActivity != "act-push" {
		t.Fatalf("LatestActivity = %q", sp.LatestActivity)
	}
}

func TestCloseIdempotent(t *testing.T) {
	t.Parallel()

	c := New("http://localhost:0", "tok", WithSelfID(selfID))
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// stubExec counts submissions without running anything.
type stubExec struct {
	mu      sync.Mutex
	submits int
	stopped bool
}

func (s *stubExec) Submit(ctx context.Context, key string, job sendqueue.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++
	go func() { _ = sendqueue.RunTerminal(ctx, job) }()
	return nil
}

func (s *stubExec) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func TestWithExecutor(t *testing.T) {
	t.Parallel()

	exec := &stubExec{}
	c := New("http://localhost:0", "tok", WithSelfID(selfID), WithExecutor(exec))
	if err := c.AwaitSync(context.Background(), "conv-1"); err != nil {
		t.Fatalf("AwaitSync: %v", err)
	}
	_ = c.Close()

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.submits != 1 || !exec.stopped {
		t.Fatalf("submits=%d stopped=%v", exec.submits, exec.stopped)
	}
}
