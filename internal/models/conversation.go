package models

import "time"

// Conversation is one question/answer exchange supplied by the chat layer.
// It is read-only input to fact extraction and never mutated here.
type Conversation struct {
	Question  string
	Answer    string
	CreatedAt time.Time
}
