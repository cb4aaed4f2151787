package normalize

import (
	"fmt"
	"time"

	"github.com/parleyhq/parley-go/internal/types"
)

// spacePayload is the subset of a raw conversation payload that maps
// directly onto a Space. Participants and activities are enveloped and
// handled separately.
type spacePayload struct {
	ID                       string      `mapstructure:"id"`
	GlobalID                 string      `mapstructure:"globalId"`
	DisplayName              string      `mapstructure:"displayName"`
	URL                      string      `mapstructure:"url"`
	ConversationWebURL       string      `mapstructure:"conversationWebUrl"`
	LocusURL                 string      `mapstructure:"locusUrl"`
	Type                     string      `mapstructure:"type"`
	Tags                     []string    `mapstructure:"tags"`
	Team                     *types.Team `mapstructure:"team"`
	Published                time.Time   `mapstructure:"published"`
	LastSeenActivityDate     time.Time   `mapstructure:"lastSeenActivityDate"`
	LastReadableActivityDate time.Time   `mapstructure:"lastReadableActivityDate"`
	LastRelevantActivityDate time.Time   `mapstructure:"lastRelevantActivityDate"`
	IsDecrypting             bool        `mapstructure:"isDecrypting"`
	IsHidden                 bool        `mapstructure:"isHidden"`
}

// ConstructSpace converts a raw conversation payload into a canonical
// Space record. IsLocked is derived from the LOCKED tag; one-on-one
// spaces without a title take their display identity from the non-self
// participant via DisplayIdentity.
func ConstructSpace(raw map[string]interface{}) (types.Space, error) {
	var p spacePayload
	if err := decode(raw, &p); err != nil {
		return types.Space{}, fmt.Errorf("construct space: %w", err)
	}
	if p.ID == "" {
		return types.Space{}, fmt.Errorf("construct space: payload has no id")
	}
	sp := types.Space{
		ID:                       p.ID,
		GlobalID:                 p.GlobalID,
		DisplayName:              p.DisplayName,
		URL:                      p.URL,
		ConversationWebURL:       p.ConversationWebURL,
		LocusURL:                 p.LocusURL,
		Type:                     p.Type,
		Tags:                     p.Tags,
		Team:                     p.Team,
		Published:                p.Published,
		LastSeenActivityDate:     p.LastSeenActivityDate,
		LastReadableActivityDate: p.LastReadableActivityDate,
		LastRelevantActivityDate: p.LastRelevantActivityDate,
		IsDecrypting:             p.IsDecrypting,
		IsHidden:                 p.IsHidden,
	}
	sp.IsLocked = sp.HasTag(types.TagLocked)
	for _, item := range items(raw["participants"]) {
		part, err := DecodeParticipant(item)
		if err != nil {
			return types.Space{}, err
		}
		sp.Participants = append(sp.Participants, part)
	}
	return sp, nil
}

// ConstructSpaces converts a batch, dropping payloads without an id.
func ConstructSpaces(raws []map[string]interface{}) []types.Space {
	out := make([]types.Space, 0, len(raws))
	for _, raw := range raws {
		sp, err := ConstructSpace(raw)
		if err != nil {
			continue
		}
		out = append(out, sp)
	}
	return out
}

// roomPayload is the externally-exposed room shape with hydra ids.
type roomPayload struct {
	ID           string    `mapstructure:"id"`
	Title        string    `mapstructure:"title"`
	Type         string    `mapstructure:"type"`
	Created      time.Time `mapstructure:"created"`
	LastActivity time.Time `mapstructure:"lastActivity"`
	IsLocked     bool      `mapstructure:"isLocked"`
	TeamID       string    `mapstructure:"teamId"`
}

// ConstructSpaceFromRoom converts a hydra room into a Space. The room id
// is a hydra id; the decoded internal UUID becomes the space id and the
// hydra id is retained as the global id.
func ConstructSpaceFromRoom(raw map[string]interface{}) (types.Space, error) {
	var p roomPayload
	if err := decode(raw, &p); err != nil {
		return types.Space{}, fmt.Errorf("construct space from room: %w", err)
	}
	if p.ID == "" {
		return types.Space{}, fmt.Errorf("construct space from room: payload has no id")
	}
	id := p.ID
	if decoded, err := types.DecodeHydraID(p.ID); err == nil {
		id = decoded
	}
	sp := types.Space{
		ID:                       id,
		GlobalID:                 p.ID,
		DisplayName:              p.Title,
		Type:                     p.Type,
		Published:                p.Created,
		LastReadableActivityDate: p.LastActivity,
		IsLocked:                 p.IsLocked,
	}
	if p.TeamID != "" {
		sp.Team = &types.Team{ID: p.TeamID}
	}
	return sp, nil
}

// DecodeParticipant converts one raw participant payload.
func DecodeParticipant(raw interface{}) (types.Participant, error) {
	var p types.Participant
	if err := decode(raw, &p); err != nil {
		return types.Participant{}, fmt.Errorf("decode participant: %w", err)
	}
	return p, nil
}

// DisplayIdentity resolves the display identity of a space. One-on-one
// spaces are titled after the non-self participant; everything else
// falls back to the stored display name or "Untitled".
func DisplayIdentity(sp types.Space, selfID string) string {
	if sp.Type == types.SpaceTypeOneOnOne {
		for _, p := range sp.Participants {
			if p.ID != selfID && p.DisplayName != "" {
				return p.DisplayName
			}
		}
	}
	if sp.DisplayName != "" {
		return sp.DisplayName
	}
	return "Untitled"
}
