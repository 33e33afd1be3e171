package failures

import "time"

// Phase of the analysis run that failed
type Phase string

const (
	PhaseGenerate Phase = "generate"
	PhaseParse    Phase = "parse"
	PhasePersist  Phase = "persist"
)

// Failure represents a persisted analysis failure entry
type Failure struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	Model       string    `json:"model,omitempty"`
	Phase       Phase     `json:"phase"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
