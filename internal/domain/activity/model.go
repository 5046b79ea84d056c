package activity

import "time"

// EventType identifies the kind of audit event.
type EventType string

const (
	TypeProjectCreated        EventType = "project-created"
	TypeProjectUpdated        EventType = "project-updated"
	TypeStatusSet             EventType = "status-set"
	TypeStatusSynced          EventType = "status-synced"
	TypeRated                 EventType = "rated"
	TypeWorkClaimed           EventType = "work-claimed"
	TypeWorkReleased          EventType = "work-released"
	TypeLeadershipClaimed     EventType = "leadership-claimed"
	TypeLeadershipTransferred EventType = "leadership-transferred"
	TypeGoalSet               EventType = "goal-set"
	TypeGoalCompleted         EventType = "goal-completed"
	TypeDeliverableAdded      EventType = "deliverable-added"
	TypeMentioned             EventType = "mentioned"
	TypeMentionsRescanned     EventType = "mentions-rescanned"
	TypeContributorAdded      EventType = "contributor-added"
	TypeWebsiteClaimed        EventType = "website-claimed"
	TypeWebsiteCleared        EventType = "website-cleared"
	TypeAutoArchived          EventType = "auto-archived"
	TypeUnarchived            EventType = "unarchived"
)

// Actor is the account that caused an event. Automated events have no actor.
type Actor struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Event is one append-only entry in the audit stream.
type Event struct {
	ID           int64          `json:"id"`
	Type         EventType      `json:"type"`
	Actor        *Actor         `json:"actor,omitempty"`
	ProjectID    string         `json:"project_id"`
	ProjectTitle string         `json:"project_title,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
