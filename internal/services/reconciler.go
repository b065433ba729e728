package services

import (
	"context"
	"fmt"
	"log"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"sort"
	"strings"
)

// View names a role/action pairing with its own selection predicate.
type View string

const (
	ViewStart           View = "start"
	ViewFinish          View = "finish"
	ViewReviewPending   View = "review_pending"
	ViewReviewCompleted View = "review_completed"
)

func ParseView(raw string) (View, bool) {
	v := View(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case ViewStart, ViewFinish, ViewReviewPending, ViewReviewCompleted:
		return v, true
	}
	return "", false
}

func (v View) Role() domain.Role {
	if v == ViewReviewPending || v == ViewReviewCompleted {
		return domain.RoleCIA
	}
	return domain.RoleWFS
}

var finishSources = []domain.Status{domain.StatusStarted, domain.StatusPendingIssue}

// InReviewPending and InReviewCompleted partition every manifest whose
// secondary action is set.
func InReviewPending(m *domain.Manifest) bool {
	a := strings.TrimSpace(m.SecondaryAction)
	return a != "" && !strings.EqualFold(a, string(domain.ActionCompleteReview))
}

func InReviewCompleted(m *domain.Manifest) bool {
	return strings.EqualFold(strings.TrimSpace(m.SecondaryAction), string(domain.ActionCompleteReview))
}

type reconcilerStore interface {
	ports.ManifestStore
	ports.RosterStore
}

// Reconciler keeps each session's working list in step with the record store.
type Reconciler struct {
	Store       reconcilerStore
	Coordinator *SubmissionCoordinator
}

// Load selects a view (and, for the finish view, an operator) and reloads it.
func (r *Reconciler) Load(ctx context.Context, st *AppState, view View, operator string) ([]Item, error) {
	if view.Role() != st.Session().Role {
		return nil, domain.NewError(domain.KindValidation,
			fmt.Sprintf("view %s is not available to the %s profile", view, st.Session().Role))
	}
	st.Select(view, strings.TrimSpace(operator))
	return r.Refresh(ctx, st)
}

// Refresh re-runs the loader of the current view.
func (r *Reconciler) Refresh(ctx context.Context, st *AppState) ([]Item, error) {
	view, operator := st.Selection()
	if view == "" {
		return nil, domain.NewError(domain.KindValidation, "select an action first")
	}

	items, err := r.load(ctx, st, view, operator)
	if err != nil {
		return nil, domain.WrapError(domain.KindStore, "could not load the manifest list", err)
	}

	// Drop a reload that raced with a view switch.
	if v, op := st.Selection(); v != view || op != operator {
		return st.List.Visible(), nil
	}
	st.List.Replace(items)
	return st.List.Visible(), nil
}

func (r *Reconciler) load(ctx context.Context, st *AppState, view View, operator string) ([]Item, error) {
	switch view {
	case ViewStart:
		names, err := r.Store.ListOperatorNames(ctx)
		if err != nil {
			return nil, err
		}
		st.SetKnownNames(names)
		return r.items(ctx, domain.ManifestFilter{Statuses: []domain.Status{domain.StatusReceived}}, nil)

	case ViewFinish:
		all, err := r.Store.ListManifests(ctx, domain.ManifestFilter{Statuses: finishSources})
		if err != nil {
			return nil, err
		}
		names := distinctOperators(all)
		st.SetOperatorChoices(names)
		if operator == "" {
			return nil, nil
		}
		return r.items(ctx, domain.ManifestFilter{Statuses: finishSources, AssignedOperator: operator}, nil)

	case ViewReviewPending:
		return r.items(ctx, domain.ManifestFilter{CarrierAgent: st.Session().ActorName}, InReviewPending)

	case ViewReviewCompleted:
		return r.items(ctx, domain.ManifestFilter{CarrierAgent: st.Session().ActorName}, InReviewCompleted)
	}
	return nil, fmt.Errorf("unknown view %q", view)
}

func (r *Reconciler) items(ctx context.Context, f domain.ManifestFilter, keep func(*domain.Manifest) bool) ([]Item, error) {
	ms, err := r.Store.ListManifests(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(ms))
	for _, m := range ms {
		if keep != nil && !keep(m) {
			continue
		}
		out = append(out, Item{ManifestID: m.ManifestID, Loads: m.Loads})
	}
	return out, nil
}

func distinctOperators(ms []*domain.Manifest) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range ms {
		n := strings.TrimSpace(m.AssignedOperator)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HandleChange re-runs only the loader relevant to the current view.
func (r *Reconciler) HandleChange(ctx context.Context, st *AppState, ev ports.ChangeEvent) error {
	view, _ := st.Selection()
	if view == "" {
		return nil
	}
	switch ev.Table {
	case ports.TableManifests:
	case ports.TableStaffRoster:
		if view != ViewStart {
			return nil
		}
	default:
		return nil
	}
	_, err := r.Refresh(ctx, st)
	return err
}

// Watch consumes live change events until ctx is cancelled.
func (r *Reconciler) Watch(ctx context.Context, st *AppState, feed ports.ChangeFeed) error {
	events, err := feed.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("watch: subscribe: %w", err)
	}
	for ev := range events {
		if err := r.HandleChange(ctx, st, ev); err != nil {
			log.Printf("live refresh failed table=%s err=%v", ev.Table, err)
		}
	}
	return nil
}

// SubmitInline submits one item from the working list. An identifier already
// mid-submission is rejected, and a completed review is hidden from the
// pending list without waiting for the next reload.
func (r *Reconciler) SubmitInline(ctx context.Context, st *AppState, sub Submission) Outcome {
	id := strings.TrimSpace(sub.ManifestID)
	if !st.List.BeginSubmit(id) {
		return Outcome{Message: fmt.Sprintf("manifest %s is already being submitted", id), Kind: domain.KindDuplicateSubmission}
	}
	defer st.List.EndSubmit(id)

	out := r.Coordinator.Submit(ctx, st, sub)

	view, _ := st.Selection()
	if view == ViewReviewPending && sub.Action == domain.ActionCompleteReview {
		if out.Success {
			st.List.RemoveOptimistic(id)
		} else {
			st.List.Restore(id)
		}
	}
	return out
}
