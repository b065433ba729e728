package domain

import (
	"strings"
	"time"
)

// Status is the recorded lifecycle state of a manifest.
type Status string

const (
	StatusReceived         Status = "received"
	StatusStarted          Status = "started"
	StatusFinished         Status = "finished"
	StatusReviewInProgress Status = "review_in_progress"
	StatusReviewCompleted  Status = "review_completed"
	StatusPendingIssue     Status = "pending_issue"
	StatusUnknown          Status = ""
)

// Checked most specific first so partial matching never picks a shorter name
// embedded in a longer one.
var knownStatuses = []Status{
	StatusReviewInProgress,
	StatusReviewCompleted,
	StatusPendingIssue,
	StatusReceived,
	StatusStarted,
	StatusFinished,
}

// ParseStatus maps a stored status value onto its canonical name.
// Stored values may carry stray whitespace or a different case, so the match
// is partial and case-insensitive. Unrecognized values yield StatusUnknown.
func ParseStatus(raw string) Status {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return StatusUnknown
	}
	for _, s := range knownStatuses {
		if strings.Contains(v, string(s)) {
			return s
		}
	}
	return StatusUnknown
}

// LoadCounts holds the two independent cargo quantities recorded at intake.
type LoadCounts struct {
	A int
	B int
}

// Manifest is a unit of cargo documentation tracked through intake,
// handling and carrier review.
type Manifest struct {
	ManifestID       string
	Status           Status
	AssignedOperator string
	CarrierAgent     string
	Loads            LoadCounts
	// SecondaryAction mirrors the last accepted action for the carrier
	// review views. Non-authoritative.
	SecondaryAction string
	LastActionAt    *time.Time
}

// ManifestFilter selects manifests from the record store.
// Empty fields do not constrain the result.
type ManifestFilter struct {
	Statuses         []Status
	AssignedOperator string
	// CarrierAgent matches case-insensitively.
	CarrierAgent string
}
