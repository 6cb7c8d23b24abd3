package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagetrust/internal/models"
)

func TestInitialize(t *testing.T) {
	list := Initialize()

	require.Len(t, list, 8)
	assert.Equal(t, models.StepGetURL, list[0].ID)
	assert.Equal(t, models.StepReport, list[len(list)-1].ID)

	seen := make(map[string]bool)
	for _, s := range list {
		assert.Equal(t, models.StepStatusPending, s.Status)
		assert.Empty(t, s.Error)
		assert.False(t, seen[s.ID], "duplicate step id %s", s.ID)
		seen[s.ID] = true
	}
}

func TestUpdateStatus(t *testing.T) {
	list := Initialize()

	updated := UpdateStatus(list, models.StepFactCheck, models.StepStatusError, "factcheck service unavailable")

	// original untouched
	for _, s := range list {
		assert.Equal(t, models.StepStatusPending, s.Status)
	}

	require.Len(t, updated, len(list))
	for i, s := range updated {
		assert.Equal(t, list[i].ID, s.ID, "order must be preserved")
		if s.ID == models.StepFactCheck {
			assert.Equal(t, models.StepStatusError, s.Status)
			assert.Equal(t, "factcheck service unavailable", s.Error)
		} else {
			assert.Equal(t, models.StepStatusPending, s.Status)
		}
	}
}

func TestUpdateStatusUnknownID(t *testing.T) {
	list := Initialize()
	updated := UpdateStatus(list, "no-such-step", models.StepStatusCompleted, "")
	assert.Equal(t, list, updated)
}

func TestContentDependentCoverage(t *testing.T) {
	ids := make(map[string]bool)
	for _, s := range Initialize() {
		ids[s.ID] = true
	}
	for _, id := range ContentDependent {
		assert.True(t, ids[id], "dependent step %s must be registered", id)
	}
}
