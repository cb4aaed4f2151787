package parley

import (
	"sort"
	"time"

	"github.com/parleyhq/parley-go/internal/normalize"
	"github.com/parleyhq/parley-go/internal/types"
)

// Recent is a space decorated for the recents list.
type Recent struct {
	Space
	Name                   string
	IsUnread               bool
	IsMuted                bool
	MessageNotificationsOn bool
	MentionNotificationsOn bool
}

// lastActivityTime picks the timestamp the recents ordering keys on.
func lastActivityTime(sp Space) time.Time {
	t := sp.LastReadableActivityDate
	if sp.LastRelevantActivityDate.After(t) {
		t = sp.LastRelevantActivityDate
	}
	if t.IsZero() {
		t = sp.Published
	}
	return t
}

// RecentSpaces derives the recents list: spaces decorated with their
// display name, unread state and notification flags, sorted by most
// recent activity first. Hidden spaces are excluded.
func (c *Client) RecentSpaces() []Recent {
	spaces := c.spaces.List()
	out := make([]Recent, 0, len(spaces))
	for _, sp := range spaces {
		if sp.IsHidden {
			continue
		}
		out = append(out, Recent{
			Space:                  sp,
			Name:                   normalize.DisplayIdentity(sp, c.selfID),
			IsUnread:               sp.IsUnread(),
			IsMuted:                sp.HasTag(types.TagMuted),
			MessageNotificationsOn: sp.HasTag(types.TagMessageNotificationsOn),
			MentionNotificationsOn: sp.HasTag(types.TagMentionNotificationsOn),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lastActivityTime(out[i].Space).After(lastActivityTime(out[j].Space))
	})
	return out
}

// ReadReceipts returns the participants who have seen the given
// activity: whoever's last-seen marker names it, or whose ack date is
// at or after its publish time. The author and the current user are
// excluded.
func (c *Client) ReadReceipts(conversationID, activityID string) []Participant {
	act, ok := c.activities.Get(conversationID, activityID)
	if !ok {
		return nil
	}
	sp, ok := c.spaces.Get(conversationID)
	if !ok {
		return nil
	}

	var out []Participant
	for _, p := range sp.Participants {
		if p.ID == c.selfID || p.ID == act.Actor.ID {
			continue
		}
		seen := p.RoomProperties.LastSeenActivityUUID == activityID
		if !seen && !act.Published.IsZero() && !p.RoomProperties.LastAckDate.IsZero() {
			seen = !p.RoomProperties.LastAckDate.Before(act.Published)
		}
		if seen {
			out = append(out, p)
		}
	}
	return out
}
