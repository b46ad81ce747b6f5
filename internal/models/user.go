package models

import "time"

// User mirrors the externally owned user record. This subsystem only reads
// it to resolve existence and the legacy email lookup key.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}
