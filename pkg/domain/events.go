package domain

import "time"

// ChangeType identifies the kind of write that produced a ChangeEvent
type ChangeType string

const (
	ChangeInsert  ChangeType = "insert"
	ChangeUpdate  ChangeType = "update"
	ChangeReplace ChangeType = "replace"
	ChangeDelete  ChangeType = "delete"
)

// ChangeEvent is published to subscribers after every successful write.
// Document is nil for deletes.
type ChangeEvent struct {
	Type       ChangeType `json:"type"`
	Collection string     `json:"collection"`
	DocumentID string     `json:"document_id"`
	Document   Document   `json:"document,omitempty"`
	LSN        int64      `json:"lsn"`
	Timestamp  time.Time  `json:"timestamp"`
}
