package ports

import (
	"context"
	"manifest-service/internal/domain"
	"time"
)

// TransitionNotice carries the semantic fields of an accepted transition.
type TransitionNotice struct {
	Action      domain.Action
	ManifestID  string
	ActorName   string
	At          time.Time
	Observation *domain.Observation
}

// Contract for outbound transition notifications.
type Notifier interface {
	NotifyTransition(ctx context.Context, n TransitionNotice) error
}
