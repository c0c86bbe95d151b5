// Package session persists conversation sessions and run outcomes, and tracks
// in-flight runs so they can be cancelled over the API.
package session

import (
	"time"

	"github.com/conclave-ai/conclave/pkg/models"
)

// Session is one persisted conversation thread for a tenant user.
type Session struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	UserID           string    `json:"user_id"`
	Status           string    `json:"status"`
	DetectedLanguage string    `json:"detected_language"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Message is one persisted conversation turn.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RunResult is the persisted outcome of one workflow run within a session.
type RunResult struct {
	ID               int64                     `json:"id"`
	SessionID        string                    `json:"session_id"`
	FinalResponse    string                    `json:"final_response"`
	ProcessingStatus models.ProcessingStatus   `json:"processing_status"`
	DetectedLanguage string                    `json:"detected_language"`
	FinalSources     []models.NormalizedSource `json:"final_sources,omitempty"`
	Metadata         models.FinalMetadata      `json:"metadata"`
	CreatedAt        time.Time                 `json:"created_at"`
}
