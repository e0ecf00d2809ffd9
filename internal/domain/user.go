package domain

import "time"

// User represents a climber known to the system
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// ClimbEventType identifies what happened to a climb
type ClimbEventType string

const (
	ClimbEventCreated ClimbEventType = "created"
	ClimbEventUpdated ClimbEventType = "updated"
	ClimbEventDeleted ClimbEventType = "deleted"
)

// ClimbEvent is published whenever a climb write changes leaderboard inputs
type ClimbEvent struct {
	Type       ClimbEventType `json:"type"`
	ClimbID    string         `json:"climb_id"`
	UserID     string         `json:"user_id"`
	Points     int            `json:"points"`
	Date       time.Time      `json:"date"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewClimbEvent builds an event for c.
func NewClimbEvent(t ClimbEventType, c Climb) ClimbEvent {
	return ClimbEvent{
		Type:       t,
		ClimbID:    c.ID,
		UserID:     c.UserID,
		Points:     c.Points,
		Date:       c.Date,
		OccurredAt: time.Now().UTC(),
	}
}
