// Package audit records who did what with the radio: stations played and
// stopped, catalogue edits and settings changes. Entries are written to the
// audit_log table and shown as an activity feed.
//
// Recording never blocks the action being recorded. Failures are logged
// and otherwise ignored.
package audit

import "time"

// Action strings follow the pattern "resource.verb".
const (
	ActionPlaybackStarted = "playback.started"
	ActionPlaybackFailed  = "playback.failed"
	ActionPlaybackStopped = "playback.stopped"

	ActionStationCreated = "station.created"
	ActionStationUpdated = "station.updated"
	ActionStationDeleted = "station.deleted"
	ActionArtworkUpdated = "station.artwork_updated"

	ActionSettingsUpdated = "settings.updated"
)

// Entry is a single recorded action.
type Entry struct {
	ID          int64          `json:"id"`
	UserID      string         `json:"user_id,omitempty"`
	Action      string         `json:"action"`
	StationID   string         `json:"station_id,omitempty"`
	StationName string         `json:"station_name,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`

	// UserName is joined from users at query time.
	UserName string `json:"user_name,omitempty"`
}

// Page is one page of the activity feed.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
}
