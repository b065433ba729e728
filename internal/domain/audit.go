package domain

import "time"

// AuditEntry is an append-only record of an accepted transition.
type AuditEntry struct {
	EntryID     string
	ManifestID  string
	Action      Action
	ActorName   string
	Observation string
	CreatedAt   time.Time
}
