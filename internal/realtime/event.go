// Package realtime fans status events out to live subscribers.
package realtime

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventReady          = "ready"
	EventVideoStatus    = "video.status"
	EventVideoDeleted   = "video.deleted"
	EventVideoReplaced  = "video.replaced"
	EventInviteAccepted = "team.invite_accepted"
)

// Event is one notification. TeamID and UserID scope it; either may be nil.
type Event struct {
	Type    string         `json:"type"`
	TeamID  *uuid.UUID     `json:"teamId,omitempty"`
	UserID  *uuid.UUID     `json:"userId,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// Filter selects events for a subscriber. A dimension only filters when
// both the subscriber and the event carry a value for it.
type Filter struct {
	TeamID *uuid.UUID
	UserID *uuid.UUID
}

func (f Filter) Matches(e Event) bool {
	if f.TeamID != nil && e.TeamID != nil && *f.TeamID != *e.TeamID {
		return false
	}
	if f.UserID != nil && e.UserID != nil && *f.UserID != *e.UserID {
		return false
	}
	return true
}

// Publisher is implemented by the local Bus and by the Redis relay.
type Publisher interface {
	Publish(e Event)
}

// VideoEvent addresses an event about a video to its team, or to the
// uploader alone when the video is personal. The payload always carries
// the video id.
func VideoEvent(eventType string, videoID, uploaderID uuid.UUID, teamID *uuid.UUID, payload map[string]any) Event {
	p := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		p[k] = v
	}
	p["id"] = videoID

	e := Event{Type: eventType, Payload: p}
	if teamID != nil {
		id := *teamID
		e.TeamID = &id
	} else {
		id := uploaderID
		e.UserID = &id
	}
	return e
}
