package signals

import (
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

// Action is a reviewer decision on a signal.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionFollowup Action = "followup"
)

// transition is the effect of one reviewer action.
type transition struct {
	to     models.SignalStatus
	audit  models.AuditAction
	metric string
}

var reviewTransitions = map[Action]transition{
	ActionAccept:   {to: models.StatusHumanVerified, audit: models.AuditVerified, metric: "accept"},
	ActionReject:   {to: models.StatusRejected, audit: models.AuditRejected, metric: "reject"},
	ActionFollowup: {to: models.StatusRequiresReview, audit: models.AuditFlagged, metric: "followup"},
}

// nextReviewStatus resolves a reviewer action from the current status.
// ok is false for unknown actions; terminal is true when current allows no
// further transitions.
func nextReviewStatus(current models.SignalStatus, action Action) (t transition, ok, terminal bool) {
	t, ok = reviewTransitions[action]
	if !ok {
		return transition{}, false, false
	}
	if current.Terminal() {
		return transition{}, true, true
	}
	return t, true, false
}

// correlatedStatus is the status after a successful correlation run.
func correlatedStatus(requiresReview bool) models.SignalStatus {
	if requiresReview {
		return models.StatusRequiresReview
	}
	return models.StatusCorrelated
}

// initialStatus is the status of a freshly uploaded signal.
func initialStatus(flagged bool) models.SignalStatus {
	if flagged {
		return models.StatusRequiresReview
	}
	return models.StatusUnverified
}

// requiresAttention keeps the flag in lockstep with the status.
func requiresAttention(s models.SignalStatus) bool {
	return s == models.StatusRequiresReview
}
