package ports

import "context"

// Tables emitting live change notifications.
const (
	TableManifests   = "manifests"
	TableStaffRoster = "staff_roster"
	TableAgentRoster = "agent_roster"
)

// ChangeEvent signals that something changed in a table.
// ManifestID is informative only; consumers reload rather than patch.
type ChangeEvent struct {
	Table      string `json:"table"`
	ManifestID string `json:"manifest_id,omitempty"`
}

// Contract for the store's live-update channel.
type ChangeFeed interface {
	// Subscribe delivers events until ctx is cancelled, then closes the channel.
	Subscribe(ctx context.Context) (<-chan ChangeEvent, error)
	Publish(ctx context.Context, ev ChangeEvent) error
}
