package pipeline

// ProgressEvent represents a progress update during a verification run
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called synchronously for every stage transition
type ProgressCallback func(event ProgressEvent)
