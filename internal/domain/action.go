package domain

import "strings"

// Role identifies which kind of user is driving a session.
type Role string

const (
	RoleWFS Role = "WFS"
	RoleCIA Role = "CIA"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleWFS:
		return RoleWFS, true
	case RoleCIA:
		return RoleCIA, true
	}
	return "", false
}

// Action is a role-specific request to move a manifest along its lifecycle.
type Action string

const (
	ActionStart          Action = "start"
	ActionFinish         Action = "finish"
	ActionBeginReview    Action = "begin_review"
	ActionCompleteReview Action = "complete_review"
	ActionFlagPending    Action = "flag_pending"
)

func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := transitions[a]; ok {
		return a, true
	}
	return "", false
}

// Role returns the role allowed to perform the action.
func (a Action) Role() Role {
	return transitions[a].role
}

// Transition is one edge of the manifest status graph.
type Transition struct {
	Action Action
	From   []Status
	To     Status
	role   Role
}

var transitions = map[Action]Transition{
	ActionStart: {
		Action: ActionStart,
		From:   []Status{StatusReceived},
		To:     StatusStarted,
		role:   RoleWFS,
	},
	ActionFinish: {
		Action: ActionFinish,
		From:   []Status{StatusStarted, StatusPendingIssue},
		To:     StatusFinished,
		role:   RoleWFS,
	},
	ActionBeginReview: {
		Action: ActionBeginReview,
		From:   []Status{StatusStarted},
		To:     StatusReviewInProgress,
		role:   RoleCIA,
	},
	ActionCompleteReview: {
		Action: ActionCompleteReview,
		From:   []Status{StatusReviewInProgress},
		To:     StatusReviewCompleted,
		role:   RoleCIA,
	},
	ActionFlagPending: {
		Action: ActionFlagPending,
		From:   []Status{StatusReviewInProgress},
		To:     StatusPendingIssue,
		role:   RoleCIA,
	},
}

// TransitionFor returns the edge the action drives.
func TransitionFor(a Action) (Transition, bool) {
	t, ok := transitions[a]
	return t, ok
}

// Allows reports whether the transition may leave the given status.
func (t Transition) Allows(current Status) bool {
	for _, s := range t.From {
		if s == current {
			return true
		}
	}
	return false
}

// Observation is the structured note attached to a "flag pending" action.
// LoadA and LoadB are capped by the manifest's recorded load counts.
type Observation struct {
	LoadA int
	LoadB int
	Text  string
}

// SubmissionKey identifies a submission for short-horizon duplicate detection.
type SubmissionKey struct {
	Action     Action
	ManifestID string
	ActorName  string
}

// Session is the client-held identity of a logged-in user.
type Session struct {
	Role      Role
	ActorName string
}
