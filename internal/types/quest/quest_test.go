package quest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountCompleted(t *testing.T) {
	assert.Equal(t, 0, CountCompleted(nil))
	assert.Equal(t, 2, CountCompleted([]Quest{
		{ID: "q1", Completed: true},
		{ID: "q2"},
		{ID: "q3", Completed: true},
	}))
}

func TestNewDailySetDerivesCounters(t *testing.T) {
	set := NewDailySet([]Quest{
		{ID: "q1", Completed: true},
		{ID: "q2"},
	})
	assert.Equal(t, 1, set.CompletedCount)
	assert.Equal(t, 2, set.TotalCount)
	assert.False(t, set.IsLoading)
	assert.Empty(t, set.Error)

	empty := NewDailySet(nil)
	assert.Equal(t, 0, empty.CompletedCount)
	assert.Equal(t, 0, empty.TotalCount)
}
