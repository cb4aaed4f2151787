// Package api holds the stateless HTTP operations against the
// conversation service. Functions return raw payloads as
// map[string]any; normalization lives one layer up so push events and
// REST responses take the same path into the stores.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/parleyhq/parley-go/internal/errs"
	"github.com/parleyhq/parley-go/internal/types"
)

func doJSON(ctx context.Context, httpClient *http.Client, method, rawURL string, body any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewBuffer(b)
	} else {
		buf = &bytes.Buffer{}
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errs.NewNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.NewHTTPError(resp.StatusCode, fmt.Errorf("%s %s: status %d", method, rawURL, resp.StatusCode))
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConversation fetches one conversation with its activities and
// participants.
func GetConversation(ctx context.Context, httpClient *http.Client, baseURL, conversationID string, opts types.GetConversationOptions) (map[string]any, error) {
	if err := types.ValidateIDPresent(conversationID, "conversationId"); err != nil {
		return nil, err
	}
	q := url.Values{}
	if opts.ActivitiesLimit > 0 {
		q.Set("activitiesLimit", strconv.Itoa(opts.ActivitiesLimit))
	}
	if opts.ParticipantsLimit > 0 {
		q.Set("participantsLimit", strconv.Itoa(opts.ParticipantsLimit))
	}
	if opts.ParticipantAckFilter != "" {
		q.Set("participantAckFilter", opts.ParticipantAckFilter)
	}
	if opts.IncludeParticipants {
		q.Set("includeParticipants", "true")
	}
	if opts.LatestActivity {
		q.Set("latestActivity", "true")
	}
	u := fmt.Sprintf("%s/conversations/%s", baseURL, url.PathEscape(conversationID))
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return doJSON(ctx, httpClient, http.MethodGet, u, nil)
}

// ListConversations fetches the recents view.
func ListConversations(ctx context.Context, httpClient *http.Client, baseURL string, opts types.ListConversationsOptions) (map[string]any, error) {
	q := url.Values{}
	q.Set("personRefresh", strconv.FormatBool(opts.PersonRefresh))
	q.Set("participantsLimit", strconv.Itoa(opts.ParticipantsLimit))
	q.Set("activitiesLimit", strconv.Itoa(opts.ActivitiesLimit))
	if opts.ComputeTitleIfEmpty {
		q.Set("computeTitleIfEmpty", "true")
	}
	if opts.Summary {
		q.Set("summary", "true")
	}
	u := fmt.Sprintf("%s/conversations?%s", baseURL, q.Encode())
	return doJSON(ctx, httpClient, http.MethodGet, u, nil)
}

// ListRooms pages through the externally-exposed rooms listing, which
// identifies rooms by hydra id.
func ListRooms(ctx context.Context, httpClient *http.Client, baseURL string, opts types.ListRoomsOptions) (map[string]any, error) {
	q := url.Values{}
	if opts.Max > 0 {
		q.Set("max", strconv.Itoa(opts.Max))
	}
	if opts.SortBy != "" {
		q.Set("sortBy", opts.SortBy)
	}
	u := fmt.Sprintf("%s/rooms", baseURL)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return doJSON(ctx, httpClient, http.MethodGet, u, nil)
}

// CreateConversation creates a space with the given participants.
func CreateConversation(ctx context.Context, httpClient *http.Client, baseURL string, req types.CreateConversationRequest) (map[string]any, error) {
	if len(req.Participants) == 0 {
		return nil, fmt.Errorf("createConversation: at least one participant required")
	}
	u := fmt.Sprintf("%s/conversations", baseURL)
	return doJSON(ctx, httpClient, http.MethodPost, u, req)
}

// PostComment creates a plain comment activity. The returned payload
// is the server-confirmed activity carrying the clientTempId.
func PostComment(ctx context.Context, httpClient *http.Client, baseURL string, req types.PostCommentRequest) (map[string]any, error) {
	if err := types.ValidateIDPresent(req.ConversationID, "conversationId"); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/conversations/%s/activities", baseURL, url.PathEscape(req.ConversationID))
	body := map[string]any{
		"verb":         types.VerbPost,
		"object":       map[string]any{"objectType": "comment", "displayName": req.Content},
		"clientTempId": req.ClientTempID,
	}
	return doJSON(ctx, httpClient, http.MethodPost, u, body)
}

// PostShare creates a content share activity with its staged files.
func PostShare(ctx context.Context, httpClient *http.Client, baseURL string, req types.PostShareRequest) (map[string]any, error) {
	if err := types.ValidateIDPresent(req.ConversationID, "conversationId"); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/conversations/%s/activities", baseURL, url.PathEscape(req.ConversationID))
	items := make([]map[string]any, len(req.Files))
	for i, f := range req.Files {
		items[i] = map[string]any{
			"clientTempId": f.ClientTempID,
			"displayName":  f.DisplayName,
			"mimeType":     f.MimeType,
			"fileSize":     f.FileSize,
			"objectType":   f.ObjectType,
			"url":          f.URL,
		}
	}
	body := map[string]any{
		"verb": types.VerbShare,
		"object": map[string]any{
			"objectType":  types.ObjectTypeContent,
			"displayName": req.Content,
			"files":       map[string]any{"items": items},
		},
		"clientTempId": req.ClientTempID,
	}
	return doJSON(ctx, httpClient, http.MethodPost, u, body)
}

// AddParticipant adds one participant by id or email.
func AddParticipant(ctx context.Context, httpClient *http.Client, baseURL string, req types.AddParticipantRequest) (map[string]any, error) {
	if err := types.ValidateIDPresent(req.ConversationID, "conversationId"); err != nil {
		return nil, err
	}
	if req.ID == "" && req.EmailAddress == "" {
		return nil, fmt.Errorf("addParticipant: id or emailAddress required")
	}
	u := fmt.Sprintf("%s/conversations/%s/participants", baseURL, url.PathEscape(req.ConversationID))
	return doJSON(ctx, httpClient, http.MethodPost, u, req)
}

// LeaveConversation removes the calling user (or the given participant)
// from the conversation.
func LeaveConversation(ctx context.Context, httpClient *http.Client, baseURL, conversationID, participantID string) (map[string]any, error) {
	if err := types.ValidateIDPresent(conversationID, "conversationId"); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(participantID, "participantId"); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/conversations/%s/participants/%s", baseURL, url.PathEscape(conversationID), url.PathEscape(participantID))
	return doJSON(ctx, httpClient, http.MethodDelete, u, nil)
}

// DeleteActivity removes an activity from the conversation.
func DeleteActivity(ctx context.Context, httpClient *http.Client, baseURL, conversationID, activityID string) (map[string]any, error) {
	if err := types.ValidateIDPresent(conversationID, "conversationId"); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(activityID, "activityId"); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/conversations/%s/activities/%s", baseURL, url.PathEscape(conversationID), url.PathEscape(activityID))
	return doJSON(ctx, httpClient, http.MethodDelete, u, nil)
}

// AcknowledgeActivity marks the activity seen by this user.
func AcknowledgeActivity(ctx context.Context, httpClient *http.Client, baseURL string, req types.AcknowledgeRequest) (map[string]any, error) {
	if err := types.ValidateIDPresent(req.ConversationID, "conversationId"); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(req.ActivityID, "activityId"); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/conversations/%s/activities/%s/acknowledge", baseURL, url.PathEscape(req.ConversationID), url.PathEscape(req.ActivityID))
	return doJSON(ctx, httpClient, http.MethodPost, u, map[string]any{"verb": types.VerbAcknowledge})
}

// UpdateTypingStatus flips the typing indicator. Fire-and-forget at the
// call site; the last write wins.
func UpdateTypingStatus(ctx context.Context, httpClient *http.Client, baseURL string, req types.TypingStatusRequest) error {
	if err := types.ValidateIDPresent(req.ConversationID, "conversationId"); err != nil {
		return err
	}
	u := fmt.Sprintf("%s/conversations/%s/typing", baseURL, url.PathEscape(req.ConversationID))
	_, err := doJSON(ctx, httpClient, http.MethodPost, u, map[string]any{"typing": req.Typing})
	return err
}
