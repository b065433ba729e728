package ports

import (
	"context"
	"manifest-service/internal/domain"
	"time"
)

// StatusUpdate is a conditional write of a manifest's primary status.
// The write applies only while the stored status still matches one of From.
type StatusUpdate struct {
	ManifestID string
	From       []domain.Status
	To         domain.Status
	Operator   string
	At         time.Time
}

// Port: typed reads and keyed writes against the manifest registry.
type ManifestStore interface {
	// Return the manifest with the given id, or domain.ErrNoRows.
	GetManifest(ctx context.Context, manifestID string) (*domain.Manifest, error)
	// Return manifests matching the filter, ordered by id.
	ListManifests(ctx context.Context, filter domain.ManifestFilter) ([]*domain.Manifest, error)
	// Apply a compare-and-set status update. Returns domain.ErrNoRows when
	// the stored status no longer matches.
	UpdateStatus(ctx context.Context, u StatusUpdate) error
	// Write the denormalized secondary action mirror.
	UpdateSecondaryAction(ctx context.Context, manifestID string, action domain.Action) error
}

// Port: append-only audit log.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry domain.AuditEntry) error
}

// Port: staff and carrier-agent rosters.
type RosterStore interface {
	// Distinct sorted staff names.
	ListOperatorNames(ctx context.Context) ([]string, error)
	// Distinct sorted carrier-agent names.
	ListAgentNames(ctx context.Context) ([]string, error)
	// Password hash for an exact agent name, or domain.ErrNoRows.
	AgentPasswordHash(ctx context.Context, agentName string) (string, error)
	// Register a staff member.
	AddOperator(ctx context.Context, name string) error
}

// RecordStore is everything the services need from the backend.
type RecordStore interface {
	ManifestStore
	AuditLog
	RosterStore
	Ping(ctx context.Context) error
}
