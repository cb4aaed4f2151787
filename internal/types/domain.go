package types

import "time"

// ------------------------------
// Core Domain Entities
// ------------------------------

// Activity verbs understood by the stores.
const (
	VerbPost        = "post"
	VerbShare       = "share"
	VerbUpdate      = "update"
	VerbDelete      = "delete"
	VerbAcknowledge = "acknowledge"
	VerbAdd         = "add"
	VerbLeave       = "leave"
	VerbCreate      = "create"
	VerbLock        = "lock"
	VerbUnlock      = "unlock"
	VerbTag         = "tag"
	VerbUntag       = "untag"
)

// Object types carried by activity payloads.
const (
	ObjectTypeComment      = "comment"
	ObjectTypeContent      = "content"
	ObjectTypeConversation = "conversation"
	ObjectTypeActivity     = "activity"
	ObjectTypePerson       = "person"
)

// Space tags. The notification tags come in on/off pairs; a space carries
// at most one tag of each pair.
const (
	TagLocked                  = "LOCKED"
	TagModerator               = "MODERATOR"
	TagMuted                   = "MUTED"
	TagFavorite                = "FAVORITE"
	TagMessageNotificationsOn  = "MESSAGE_NOTIFICATIONS_ON"
	TagMessageNotificationsOff = "MESSAGE_NOTIFICATIONS_OFF"
	TagMentionNotificationsOn  = "MENTION_NOTIFICATIONS_ON"
	TagMentionNotificationsOff = "MENTION_NOTIFICATIONS_OFF"
)

// Space types.
const (
	SpaceTypeOneOnOne = "direct"
	SpaceTypeGroup    = "group"
)

// Actor identifies the person that produced an activity.
type Actor struct {
	ID           string `json:"id" mapstructure:"id"`
	ObjectType   string `json:"objectType" mapstructure:"objectType"`
	DisplayName  string `json:"displayName,omitempty" mapstructure:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty" mapstructure:"emailAddress"`
	OrgID        string `json:"orgId,omitempty" mapstructure:"orgId"`
}

// ActivityObject is the payload of an activity: the comment text, the
// shared content, or a reference to another entity the verb acts on.
type ActivityObject struct {
	ID          string     `json:"id,omitempty" mapstructure:"id"`
	ObjectType  string     `json:"objectType" mapstructure:"objectType"`
	DisplayName string     `json:"displayName,omitempty" mapstructure:"displayName"`
	Content     string     `json:"content,omitempty" mapstructure:"content"`
	Files       []FileItem `json:"files,omitempty" mapstructure:"files"`
	Mentions    []string   `json:"mentions,omitempty" mapstructure:"mentions"`
	Tags        []string   `json:"tags,omitempty" mapstructure:"tags"`
}

// Target references the conversation an activity belongs to.
type Target struct {
	ID         string `json:"id" mapstructure:"id"`
	ObjectType string `json:"objectType" mapstructure:"objectType"`
	URL        string `json:"url,omitempty" mapstructure:"url"`
}

// ParentRef links a reply activity to the thread root it belongs to.
type ParentRef struct {
	ID   string `json:"id" mapstructure:"id"`
	Type string `json:"type,omitempty" mapstructure:"type"`
}

// Activity is a single timeline event in a conversation. ID is unique
// within a conversation. ClientTempID correlates a locally created
// optimistic activity with its server-confirmed counterpart: the two
// share the ClientTempID but carry different IDs.
type Activity struct {
	ID           string         `json:"id" mapstructure:"id"`
	URL          string         `json:"url,omitempty" mapstructure:"url"`
	Published    time.Time      `json:"published" mapstructure:"published"`
	Verb         string         `json:"verb" mapstructure:"verb"`
	Actor        Actor          `json:"actor" mapstructure:"actor"`
	Object       ActivityObject `json:"object" mapstructure:"object"`
	Target       Target         `json:"target" mapstructure:"target"`
	Parent       *ParentRef     `json:"parent,omitempty" mapstructure:"parent"`
	ClientTempID string         `json:"clientTempId,omitempty" mapstructure:"clientTempId"`
}

// IsReply reports whether the activity belongs to a reply thread.
func (a Activity) IsReply() bool { return a.Parent != nil && a.Parent.ID != "" }

// RoomProperties carries per-participant conversation state.
type RoomProperties struct {
	IsModerator          bool      `json:"isModerator" mapstructure:"isModerator"`
	LastSeenActivityUUID string    `json:"lastSeenActivityUUID,omitempty" mapstructure:"lastSeenActivityUUID"`
	LastAckDate          time.Time `json:"lastAckDate,omitempty" mapstructure:"lastAckDate"`
}

// Participant is a member of a space.
type Participant struct {
	ID             string         `json:"id" mapstructure:"id"`
	DisplayName    string         `json:"displayName,omitempty" mapstructure:"displayName"`
	EmailAddress   string         `json:"emailAddress,omitempty" mapstructure:"emailAddress"`
	OrgID          string         `json:"orgId,omitempty" mapstructure:"orgId"`
	Type           string         `json:"type,omitempty" mapstructure:"type"`
	RoomProperties RoomProperties `json:"roomProperties" mapstructure:"roomProperties"`
}

// Team groups spaces under one roof.
type Team struct {
	ID          string `json:"id" mapstructure:"id"`
	DisplayName string `json:"displayName,omitempty" mapstructure:"displayName"`
}

// Space is a conversation entity: the participants, the moderation and
// notification tags, and the read markers the unread derivation uses.
type Space struct {
	ID                       string        `json:"id"`
	GlobalID                 string        `json:"globalId,omitempty"`
	DisplayName              string        `json:"displayName,omitempty"`
	URL                      string        `json:"url,omitempty"`
	ConversationWebURL       string        `json:"conversationWebUrl,omitempty"`
	LocusURL                 string        `json:"locusUrl,omitempty"`
	Type                     string        `json:"type,omitempty"`
	LatestActivity           string        `json:"latestActivity,omitempty"`
	Participants             []Participant `json:"participants,omitempty"`
	Tags                     []string      `json:"tags,omitempty"`
	Team                     *Team         `json:"team,omitempty"`
	Published                time.Time     `json:"published,omitempty"`
	LastSeenActivityDate     time.Time     `json:"lastSeenActivityDate,omitempty"`
	LastReadableActivityDate time.Time     `json:"lastReadableActivityDate,omitempty"`
	LastRelevantActivityDate time.Time     `json:"lastRelevantActivityDate,omitempty"`
	IsDecrypting             bool          `json:"isDecrypting"`
	IsLocked                 bool          `json:"isLocked"`
	IsHidden                 bool          `json:"isHidden"`
	IsFetching               bool          `json:"isFetching"`
}

// HasTag reports whether the space carries the given tag.
func (s Space) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsUnread reports whether the space has readable activity the user has
// not seen yet: the last-seen marker is absent or strictly before the
// last readable activity.
func (s Space) IsUnread() bool {
	if s.LastSeenActivityDate.IsZero() {
		return true
	}
	return s.LastSeenActivityDate.Before(s.LastReadableActivityDate)
}

// Call is a live call or meeting. LocusURL and Destination are optional
// secondary identities; the media store keeps its lookup indexes
// consistent with the primary id on every insert and remove.
type Call struct {
	ID             string `json:"id"`
	LocusURL       string `json:"locusUrl,omitempty"`
	Destination    string `json:"destination,omitempty"`
	Joined         bool   `json:"joined"`
	HasLocalMedia  bool   `json:"hasLocalMedia"`
	HasRemoteVideo bool   `json:"hasRemoteVideo"`
	HasRemoteAudio bool   `json:"hasRemoteAudio"`
	IsDismissed    bool   `json:"isDismissed"`
}

// FileItem is a staged or shared file attachment. ClientTempID is
// assigned locally and survives into the confirmed share activity.
type FileItem struct {
	ClientTempID   string `json:"clientTempId" mapstructure:"clientTempId"`
	DisplayName    string `json:"displayName,omitempty" mapstructure:"displayName"`
	MimeType       string `json:"mimeType,omitempty" mapstructure:"mimeType"`
	URL            string `json:"url,omitempty" mapstructure:"url"`
	ObjectType     string `json:"objectType,omitempty" mapstructure:"objectType"`
	FileSize       int64  `json:"fileSize" mapstructure:"fileSize"`
	FileSizePretty string `json:"fileSizePretty,omitempty" mapstructure:"fileSizePretty"`
}

// ErrorRecord is what the core hands to the error-reporting collaborator.
// The core never renders these.
type ErrorRecord struct {
	ID              string `json:"id"`
	DisplayTitle    string `json:"displayTitle"`
	DisplaySubtitle string `json:"displaySubtitle"`
	Temporary       bool   `json:"temporary"`
	Code            string `json:"code,omitempty"`
}
