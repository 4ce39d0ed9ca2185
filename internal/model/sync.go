package model

import (
	"encoding/json"
	"time"
)

// SyncStatus represents the state of a sync run.
type SyncStatus string

const (
	SyncStatusRunning  SyncStatus = "running"
	SyncStatusComplete SyncStatus = "complete"
	SyncStatusFailed   SyncStatus = "failed"
)

// TeamFailure records a team whose conversations could not be fetched.
type TeamFailure struct {
	TeamID   int64           `json:"team_id"`
	TeamName string          `json:"team_name,omitempty"`
	Status   int             `json:"status"`
	Body     json.RawMessage `json:"body,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// SyncSummary is the outcome of one qualify-and-sync run. Errors holds one
// entry per failed conversation, prefixed with the conversation id.
type SyncSummary struct {
	Processed    int           `json:"processed"`
	CreatedOpps  int           `json:"created_opps"`
	Errors       []string      `json:"errors"`
	TeamFailures []TeamFailure `json:"team_failures,omitempty"`
}

// SyncRun is a persisted sync run.
type SyncRun struct {
	ID         string       `json:"id"`
	Status     SyncStatus   `json:"status"`
	Teams      []string     `json:"teams"`
	Summary    *SyncSummary `json:"summary,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}
