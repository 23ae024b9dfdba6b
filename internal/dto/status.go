package dto

// ModelStatus describes one adapter.
type ModelStatus struct {
	Available bool     `json:"available"`
	Source    string   `json:"source,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// StatusResponse reports whether processing can run.
type StatusResponse struct {
	Ready          bool        `json:"ready"`
	Backend        string      `json:"backend"`
	Detection      ModelStatus `json:"detection"`
	Classification ModelStatus `json:"classification"`
	Threshold      float64     `json:"threshold"`
	LoadedModels   []string    `json:"loadedModels"`
	HistoryEnabled bool        `json:"historyEnabled"`
}

// RunEvent is pushed to a session's websocket clients while a run progresses.
type RunEvent struct {
	Type    string `json:"type"` // processing, done, failed
	RunID   string `json:"runId,omitempty"`
	Message string `json:"message,omitempty"`
	Label   string `json:"label,omitempty"`
	Objects int    `json:"objects"`
}

// Run event types.
const (
	EventProcessing = "processing"
	EventDone       = "done"
	EventFailed     = "failed"
)
