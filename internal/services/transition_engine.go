package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransitionRequest asks the engine to apply one action to one manifest.
type TransitionRequest struct {
	Action      domain.Action
	ManifestID  string
	ActorName   string
	Observation *domain.Observation
}

// TransitionResult describes an applied transition.
type TransitionResult struct {
	From  domain.Status
	To    domain.Status
	At    time.Time
	Audit domain.AuditEntry
}

// TransitionEngine validates requests against the recorded status and
// persists accepted transitions: audit append first, then a conditional
// status update, then the best-effort secondary mirror.
type TransitionEngine struct {
	Manifests ports.ManifestStore
	Audit     ports.AuditLog
	Now       func() time.Time
	NewID     func() string
}

func NewTransitionEngine(manifests ports.ManifestStore, audit ports.AuditLog) *TransitionEngine {
	return &TransitionEngine{
		Manifests: manifests,
		Audit:     audit,
		Now:       time.Now,
		NewID:     func() string { return uuid.NewString() },
	}
}

// FormatObservation renders a flag-pending observation for the audit log.
func FormatObservation(o domain.Observation, max domain.LoadCounts) string {
	text := fmt.Sprintf("load_a=%d/%d load_b=%d/%d", o.LoadA, max.A, o.LoadB, max.B)
	if t := strings.TrimSpace(o.Text); t != "" {
		text += ": " + t
	}
	return text
}

func validateObservation(o *domain.Observation, max domain.LoadCounts) error {
	if o == nil {
		return domain.NewError(domain.KindValidation, "an observation is required to flag a manifest as pending")
	}
	if o.LoadA < 0 || o.LoadB < 0 {
		return domain.NewError(domain.KindValidation, "observation quantities cannot be negative")
	}
	if o.LoadA > max.A {
		return domain.NewError(domain.KindValidation, fmt.Sprintf("load A observation %d exceeds the manifest count %d", o.LoadA, max.A))
	}
	if o.LoadB > max.B {
		return domain.NewError(domain.KindValidation, fmt.Sprintf("load B observation %d exceeds the manifest count %d", o.LoadB, max.B))
	}
	return nil
}

// Apply validates and persists one transition. Returned errors are *domain.Error.
func (e *TransitionEngine) Apply(ctx context.Context, req TransitionRequest) (TransitionResult, error) {
	tr, ok := domain.TransitionFor(req.Action)
	if !ok {
		return TransitionResult{}, domain.NewError(domain.KindValidation, fmt.Sprintf("unknown action %q", req.Action))
	}

	m, err := e.Manifests.GetManifest(ctx, req.ManifestID)
	if errors.Is(err, domain.ErrNoRows) {
		return TransitionResult{}, domain.NewError(domain.KindNotFound, fmt.Sprintf("manifest %s not found", req.ManifestID))
	}
	if err != nil {
		return TransitionResult{}, domain.WrapError(domain.KindStore, "could not read manifest status", err)
	}

	if !tr.Allows(m.Status) {
		return TransitionResult{}, domain.NewError(domain.KindInvalidTransition,
			fmt.Sprintf("action %s is not allowed for manifest %s in status %q", req.Action, req.ManifestID, m.Status))
	}

	var observation string
	if req.Action == domain.ActionFlagPending {
		if err := validateObservation(req.Observation, m.Loads); err != nil {
			return TransitionResult{}, err
		}
		observation = FormatObservation(*req.Observation, m.Loads)
	}

	now := e.Now()
	entry := domain.AuditEntry{
		EntryID:     e.NewID(),
		ManifestID:  req.ManifestID,
		Action:      req.Action,
		ActorName:   req.ActorName,
		Observation: observation,
		CreatedAt:   now,
	}
	if err := e.Audit.AppendAudit(ctx, entry); err != nil {
		return TransitionResult{}, domain.WrapError(domain.KindStore, "could not write the audit log", err)
	}

	// An audit entry now exists even if the update below fails.
	err = e.Manifests.UpdateStatus(ctx, ports.StatusUpdate{
		ManifestID: req.ManifestID,
		From:       tr.From,
		To:         tr.To,
		Operator:   req.ActorName,
		At:         now,
	})
	if errors.Is(err, domain.ErrNoRows) {
		log.Printf("transition lost race manifest_id=%s action=%s audit_id=%s", req.ManifestID, req.Action, entry.EntryID)
		return TransitionResult{}, domain.NewError(domain.KindInvalidTransition,
			fmt.Sprintf("manifest %s changed status while the action was being applied", req.ManifestID))
	}
	if err != nil {
		log.Printf("status update failed after audit append manifest_id=%s action=%s audit_id=%s err=%v", req.ManifestID, req.Action, entry.EntryID, err)
		return TransitionResult{}, domain.WrapError(domain.KindStore, "could not update the manifest status", err)
	}

	if err := e.Manifests.UpdateSecondaryAction(ctx, req.ManifestID, req.Action); err != nil {
		log.Printf("secondary action mirror failed manifest_id=%s action=%s err=%v", req.ManifestID, req.Action, err)
	}

	return TransitionResult{From: m.Status, To: tr.To, At: now, Audit: entry}, nil
}
