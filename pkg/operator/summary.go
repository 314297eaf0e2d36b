package operator

import "time"

// Summary describes a finished Execute call.
type Summary struct {
	Operator  string        `json:"operator"`
	RequestID string        `json:"request_id"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Result    Result        `json:"result,omitempty"`
	Triggers  []Trigger     `json:"triggers,omitempty"`
}
