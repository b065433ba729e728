package services

import (
	"context"
	"fmt"
	"manifest-service/internal/domain"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ItemOutcome is the result for one identifier of a batch.
type ItemOutcome struct {
	ManifestID string  `json:"manifest_id"`
	Outcome    Outcome `json:"outcome"`
}

// BatchOutcome aggregates a batch. A successful Outcome with Failed > 0 means
// partial completion.
type BatchOutcome struct {
	Outcome
	Items []ItemOutcome `json:"items"`
}

// BatchProcessor fans one action out over many manifests. The duplicate
// submission guard does not apply to batches.
type BatchProcessor struct {
	Coordinator *SubmissionCoordinator
	Concurrency int
}

func (b *BatchProcessor) ProcessBatch(ctx context.Context, st *AppState, action domain.Action, actorName string, manifestIDs []string) BatchOutcome {
	ids := make([]string, 0, len(manifestIDs))
	seen := make(map[string]struct{}, len(manifestIDs))
	for _, id := range manifestIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return BatchOutcome{Outcome: failed(domain.NewError(domain.KindEmptyBatch, "select at least one manifest"))}
	}
	b.Coordinator.Metrics.ObserveBatch(len(ids))

	limit := b.Concurrency
	if limit <= 0 {
		limit = 4
	}

	items := make([]ItemOutcome, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			items[i] = ItemOutcome{
				ManifestID: id,
				Outcome: b.Coordinator.submit(gctx, st, Submission{
					Action:     action,
					ManifestID: id,
					ActorName:  actorName,
				}, true),
			}
			return nil
		})
	}
	_ = g.Wait()

	return aggregate(items)
}

func aggregate(items []ItemOutcome) BatchOutcome {
	out := BatchOutcome{Items: items}
	var firstFailure string
	for _, it := range items {
		if it.Outcome.Success {
			out.Succeeded++
			continue
		}
		out.Failed++
		if firstFailure == "" {
			firstFailure = it.ManifestID + ": " + it.Outcome.Message
		}
	}

	switch {
	case out.Failed == 0:
		out.Success = true
		out.Message = fmt.Sprintf("%d manifests processed", out.Succeeded)
	case out.Succeeded == 0:
		out.Kind = domain.KindInvalidTransition
		if k := commonKind(items); k != "" {
			out.Kind = k
		}
		out.Message = fmt.Sprintf("no manifest was processed (%s)", firstFailure)
	default:
		out.Success = true
		out.Message = fmt.Sprintf("%d manifests processed, %d failed", out.Succeeded, out.Failed)
	}
	return out
}

func commonKind(items []ItemOutcome) domain.Kind {
	var k domain.Kind
	for _, it := range items {
		if k == "" {
			k = it.Outcome.Kind
			continue
		}
		if it.Outcome.Kind != k {
			return ""
		}
	}
	return k
}
