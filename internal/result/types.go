package result

import "time"

// Record is the stored outcome of one invocation.
type Record struct {
	ID          int64     `json:"id"`
	Round       int       `json:"round"`
	Worker      int       `json:"worker"`
	Contract    string    `json:"contract"`
	Method      string    `json:"method"`
	ReadOnly    bool      `json:"readonly"`
	Succeeded   bool      `json:"succeeded"`
	Verified    bool      `json:"verified"`
	Polls       int       `json:"polls"`
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
