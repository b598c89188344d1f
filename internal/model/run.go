package model

import "time"

// RunStatus is the outcome of one collection run.
type RunStatus string

const (
	RunSuccess RunStatus = "sucesso"
	RunPartial RunStatus = "parcial"
	RunError   RunStatus = "erro"
)

// CollectionRun is the audit record of one pipeline execution against one
// source (logs_coleta). Immutable once recorded.
type CollectionRun struct {
	ID        string
	SourceID  string
	Status    RunStatus
	New       int
	Duplicate int
	Updated   int
	Elapsed   time.Duration
	Error     string // first/fatal error message, empty on success
	Metadata  RunMetadata
	StartedAt time.Time
}

// RunMetadata is stored as JSON alongside the run counters.
type RunMetadata struct {
	Errors    []string `json:"erros,omitempty"`
	Collected int      `json:"coletadas"`
	Source    string   `json:"fonte_nome,omitempty"`
}
