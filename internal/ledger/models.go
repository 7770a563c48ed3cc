// Package ledger records the history of skill invocations.
package ledger

import "time"

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Invocation is one processed webhook delivery.
type Invocation struct {
	RequestID string `json:"request_id"`
	Skill     string `json:"skill"`
	SkillID   string `json:"skill_id"`
	FileID    string `json:"file_id"`
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
	Status    string `json:"status"`
	// InvocationStatus is the last status written to the platform.
	InvocationStatus string    `json:"invocation_status,omitempty"`
	ErrorCode        string    `json:"error_code,omitempty"`
	Error            string    `json:"error,omitempty"`
	CardCount        int       `json:"card_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Outcome is the final state of an invocation.
type Outcome struct {
	Status           string
	InvocationStatus string
	ErrorCode        string
	Error            string
	CardCount        int
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Skill  string
	Status string
	FileID string
	Limit  int
}

// Summary counts invocations by status.
type Summary map[string]int
