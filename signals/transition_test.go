package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

func TestNextReviewStatus(t *testing.T) {
	live := []models.SignalStatus{
		models.StatusUnverified,
		models.StatusRequiresReview,
		models.StatusHumanVerified,
		models.StatusCorrelated,
	}
	for _, from := range live {
		for action, want := range reviewTransitions {
			got, ok, terminal := nextReviewStatus(from, action)
			assert.True(t, ok)
			assert.False(t, terminal)
			assert.Equal(t, want.to, got.to, "%s --%s-->", from, action)
		}
	}

	_, ok, terminal := nextReviewStatus(models.StatusRejected, ActionAccept)
	assert.True(t, ok)
	assert.True(t, terminal)

	_, ok, _ = nextReviewStatus(models.StatusUnverified, "escalate")
	assert.False(t, ok)
}

func TestStatusHelpers(t *testing.T) {
	assert.Equal(t, models.StatusRequiresReview, initialStatus(true))
	assert.Equal(t, models.StatusUnverified, initialStatus(false))
	assert.Equal(t, models.StatusRequiresReview, correlatedStatus(true))
	assert.Equal(t, models.StatusCorrelated, correlatedStatus(false))
	for _, s := range models.Statuses {
		assert.Equal(t, s == models.StatusRequiresReview, requiresAttention(s), string(s))
	}
}
