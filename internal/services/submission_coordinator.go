package services

import (
	"context"
	"fmt"
	"log"
	"manifest-service/internal/domain"
	"manifest-service/internal/platform/obs"
	"manifest-service/internal/ports"
	"strings"
	"sync"
)

var successMessages = map[domain.Action]string{
	domain.ActionStart:          "manifest started",
	domain.ActionFinish:         "manifest finished",
	domain.ActionBeginReview:    "review started",
	domain.ActionCompleteReview: "review completed",
	domain.ActionFlagPending:    "manifest flagged as pending",
}

// Submission is a transition request as entered by a user.
type Submission struct {
	Action      domain.Action
	ManifestID  string
	ActorName   string
	Observation *domain.Observation
}

// SubmissionCoordinator validates, de-duplicates and commits submissions,
// then dispatches the outbound notification. Two coordinators racing on the
// same manifest are not locked here; the engine's conditional update picks
// the winner and the loser gets an invalid transition.
//
// A submission runs to completion once started: cancellation of the caller's
// context is ignored, its values are kept.
type SubmissionCoordinator struct {
	Engine   *TransitionEngine
	Notifier ports.Notifier
	// Feed is optional; accepted transitions are announced on it.
	Feed    ports.ChangeFeed
	Metrics *obs.Metrics

	pending sync.WaitGroup
}

// Submit runs the single-item path for a session.
func (c *SubmissionCoordinator) Submit(ctx context.Context, st *AppState, sub Submission) Outcome {
	return c.submit(ctx, st, sub, false)
}

func (c *SubmissionCoordinator) submit(ctx context.Context, st *AppState, sub Submission, batch bool) Outcome {
	ctx = context.WithoutCancel(ctx)

	sub, err := c.validate(st, sub)
	if err != nil {
		return c.finish(sub, failed(err))
	}

	key := domain.SubmissionKey{Action: sub.Action, ManifestID: sub.ManifestID, ActorName: sub.ActorName}
	if !batch && st.IsDuplicate(key) {
		return c.finish(sub, failed(domain.NewError(domain.KindDuplicateSubmission, "this record was submitted recently")))
	}

	res, err := c.Engine.Apply(ctx, TransitionRequest{
		Action:      sub.Action,
		ManifestID:  sub.ManifestID,
		ActorName:   sub.ActorName,
		Observation: sub.Observation,
	})
	if err != nil {
		return c.finish(sub, failed(err))
	}

	if !batch {
		st.RecordSubmission(key)
	}

	c.notify(ctx, ports.TransitionNotice{
		Action:      sub.Action,
		ManifestID:  sub.ManifestID,
		ActorName:   sub.ActorName,
		At:          res.At,
		Observation: sub.Observation,
	})

	if c.Feed != nil {
		ev := ports.ChangeEvent{Table: ports.TableManifests, ManifestID: sub.ManifestID}
		if err := c.Feed.Publish(ctx, ev); err != nil {
			log.Printf("change feed publish failed manifest_id=%s err=%v", sub.ManifestID, err)
		}
	}

	return c.finish(sub, succeeded(successMessages[sub.Action]))
}

func (c *SubmissionCoordinator) finish(sub Submission, out Outcome) Outcome {
	label := "success"
	if !out.Success {
		label = string(out.Kind)
	}
	c.Metrics.ObserveTransition(string(sub.Action), label)
	return out
}

// validate checks required fields, the acting role and, for staff actions,
// the actor name. It returns the submission with the effective actor filled in.
func (c *SubmissionCoordinator) validate(st *AppState, sub Submission) (Submission, error) {
	sub.ManifestID = strings.TrimSpace(sub.ManifestID)
	sub.ActorName = strings.TrimSpace(sub.ActorName)

	if _, ok := domain.TransitionFor(sub.Action); !ok {
		return sub, domain.NewError(domain.KindValidation, "select a valid action")
	}
	if sub.ManifestID == "" {
		return sub, domain.NewError(domain.KindValidation, "select a manifest")
	}

	session := st.Session()
	if sub.Action.Role() != session.Role {
		return sub, domain.NewError(domain.KindValidation,
			fmt.Sprintf("action %s is not available to the %s profile", sub.Action, session.Role))
	}

	switch session.Role {
	case domain.RoleCIA:
		sub.ActorName = session.ActorName
		if sub.ActorName == "" {
			return sub, domain.NewError(domain.KindValidation, "no carrier agent is logged in")
		}
	case domain.RoleWFS:
		if sub.ActorName == "" {
			return sub, domain.NewError(domain.KindValidation, "fill in all fields")
		}
		if !st.IsKnownName(sub.Action, sub.ActorName) {
			return sub, domain.NewError(domain.KindValidation, "choose a valid name from the list")
		}
	}

	return sub, nil
}

// notify delivers the transition notice in the background. The notifier's
// own timeout bounds it. Failures are logged and counted, never surfaced.
func (c *SubmissionCoordinator) notify(ctx context.Context, n ports.TransitionNotice) {
	if c.Notifier == nil {
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if err := c.Notifier.NotifyTransition(ctx, n); err != nil {
			c.Metrics.ObserveNotificationFailure(string(n.Action))
			log.Printf("notification failed manifest_id=%s action=%s err=%v", n.ManifestID, n.Action, err)
		}
	}()
}

// Wait blocks until every dispatched notification has returned.
func (c *SubmissionCoordinator) Wait() {
	c.pending.Wait()
}
