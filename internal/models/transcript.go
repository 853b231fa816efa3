package models

// TranscriptEntry is one (speaker, message) pair of the chat transcript
// shown in the left panel and persisted with a session.
type TranscriptEntry struct {
	Speaker   string `json:"speaker"` // "you" | "automodel"
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt,omitempty"`
}
