package analytics

import "time"

// QuestionEvent describes one answered or failed question.
type QuestionEvent struct {
	Question           string    `json:"question"`
	Keywords           []string  `json:"keywords"`
	Strategy           string    `json:"strategy"`
	Mode               string    `json:"mode"`
	Provider           string    `json:"provider,omitempty"`
	Model              string    `json:"model,omitempty"`
	RetrievalFallback  bool      `json:"retrieval_fallback"`
	GenerationFallback bool      `json:"generation_fallback"`
	Cached             bool      `json:"cached"`
	Failed             bool      `json:"failed"`
	Error              string    `json:"error,omitempty"`
	LatencyMs          int64     `json:"latency_ms"`
	Timestamp          time.Time `json:"timestamp"`
	RequestID          string    `json:"request_id,omitempty"`
}
