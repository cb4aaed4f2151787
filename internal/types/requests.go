package types

// ------------------------------
// Request Types
// ------------------------------

// GetConversationOptions holds query parameters for a single
// conversation fetch.
type GetConversationOptions struct {
	ActivitiesLimit      int    `json:"activitiesLimit,omitempty"`
	ParticipantsLimit    int    `json:"participantsLimit,omitempty"`
	ParticipantAckFilter string `json:"participantAckFilter,omitempty"`
	IncludeParticipants  bool   `json:"includeParticipants,omitempty"`
	GlobalID             bool   `json:"globalId,omitempty"`
	LatestActivity       bool   `json:"latestActivity,omitempty"`
}

// ListConversationsOptions holds query parameters for a conversation
// list fetch (the recents view).
type ListConversationsOptions struct {
	PersonRefresh       bool `json:"personRefresh"`
	ParticipantsLimit   int  `json:"participantsLimit"`
	ActivitiesLimit     int  `json:"activitiesLimit"`
	ComputeTitleIfEmpty bool `json:"computeTitleIfEmpty,omitempty"`
	GlobalID            bool `json:"globalId,omitempty"`
	Paginate            bool `json:"paginate,omitempty"`
	Summary             bool `json:"summary,omitempty"`
	DeferDecrypt        bool `json:"deferDecrypt,omitempty"`
}

// ListRoomsOptions holds query parameters for the externally-exposed
// rooms listing, which returns hydra-identified rooms.
type ListRoomsOptions struct {
	Max    int    `json:"max,omitempty"`
	SortBy string `json:"sortBy,omitempty"`
}

// PostCommentRequest creates a plain comment activity.
type PostCommentRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	ClientTempID   string `json:"clientTempId,omitempty"`
}

// PostShareRequest creates a content share activity with staged files.
type PostShareRequest struct {
	ConversationID string     `json:"conversationId"`
	Content        string     `json:"content,omitempty"`
	Files          []FileItem `json:"files"`
	ClientTempID   string     `json:"clientTempId,omitempty"`
}

// CreateConversationRequest creates a space with the given participants.
// Participants are email addresses or decoded hydra person ids.
type CreateConversationRequest struct {
	Participants []string `json:"participants"`
	DisplayName  string   `json:"displayName,omitempty"`
}

// AddParticipantRequest adds one participant by id or email.
type AddParticipantRequest struct {
	ConversationID string `json:"conversationId"`
	ID             string `json:"id,omitempty"`
	EmailAddress   string `json:"emailAddress,omitempty"`
}

// AcknowledgeRequest marks an activity seen by this user.
type AcknowledgeRequest struct {
	ConversationID string `json:"conversationId"`
	ActivityID     string `json:"activityId"`
}

// TypingStatusRequest flips the typing indicator for a conversation.
type TypingStatusRequest struct {
	ConversationID string `json:"conversationId"`
	Typing         bool   `json:"typing"`
}
