package session

import "time"

// FinishReason records why a session ended.
type FinishReason string

const (
	ReasonManual      FinishReason = "manual"
	ReasonTimeout     FinishReason = "timeout"
	ReasonUserStop    FinishReason = "user_stop_keyword"
	ReasonTermination FinishReason = "termination_signal"
	ReasonForced      FinishReason = "forced"
)

// Turn represents a single exchange: one user message and the assistant reply.
type Turn struct {
	Timestamp time.Time              `json:"timestamp"`
	UserText  string                 `json:"user_text"`
	ReplyText string                 `json:"reply_text"`
	ReplyMeta map[string]interface{} `json:"reply_meta,omitempty"`

	// Attrs carries profile attributes extracted from UserText. They are
	// merged into the session profile when the turn is appended.
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Snapshot is the immutable copy of a session produced by Finish. It is the
// unit handed to the archiver; the live registry entry is gone by the time a
// Snapshot exists.
type Snapshot struct {
	DialogID  string            `json:"dialog_id"`
	UserID    int64             `json:"user_id"`
	StartedAt time.Time         `json:"start_time"`
	EndedAt   time.Time         `json:"end_time"`
	Reason    FinishReason      `json:"finish_reason"`
	Turns     []Turn            `json:"messages"`
	Profile   map[string]string `json:"profile,omitempty"`
}

// View is a read-only summary of an open session.
type View struct {
	UserID         int64
	StartedAt      time.Time
	LastActivityAt time.Time
	TurnCount      int
}
