package api

import (
	"time"

	"github.com/skillskit/skills-server/internal/ledger"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	UptimeS int64             `json:"uptime_s"`
	Skills  []string          `json:"skills"`
	Checks  map[string]string `json:"checks,omitempty"`
}

type InvocationResponse struct {
	RequestID        string `json:"request_id"`
	Skill            string `json:"skill"`
	SkillID          string `json:"skill_id"`
	FileID           string `json:"file_id"`
	FileName         string `json:"file_name"`
	FileSize         int64  `json:"file_size"`
	Status           string `json:"status"`
	InvocationStatus string `json:"invocation_status,omitempty"`
	ErrorCode        string `json:"error_code,omitempty"`
	Error            string `json:"error,omitempty"`
	CardCount        int    `json:"card_count"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type InvocationsResponse struct {
	Invocations []InvocationResponse `json:"invocations"`
	Summary     ledger.Summary       `json:"summary"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func InvocationToResponse(inv *ledger.Invocation) InvocationResponse {
	return InvocationResponse{
		RequestID:        inv.RequestID,
		Skill:            inv.Skill,
		SkillID:          inv.SkillID,
		FileID:           inv.FileID,
		FileName:         inv.FileName,
		FileSize:         inv.FileSize,
		Status:           inv.Status,
		InvocationStatus: inv.InvocationStatus,
		ErrorCode:        inv.ErrorCode,
		Error:            inv.Error,
		CardCount:        inv.CardCount,
		CreatedAt:        inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        inv.UpdatedAt.Format(time.RFC3339),
	}
}
