package softdelete

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"paranoid/internal/core/entity"
)

func TestSelectorMatches(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	other := stamp.Add(time.Second)

	active := Active()
	assert.True(t, active.IsActive())
	assert.True(t, active.Matches(entity.Active()))
	assert.False(t, active.Matches(entity.DeletedState(stamp, true)))

	sel := CascadedAt(stamp)
	assert.False(t, sel.IsActive())
	assert.Equal(t, entity.Truncate(stamp), sel.Stamp())
	assert.True(t, sel.Matches(entity.DeletedState(stamp, true)))
	assert.False(t, sel.Matches(entity.DeletedState(stamp, false)), "direct delete at the same instant")
	assert.False(t, sel.Matches(entity.DeletedState(other, true)), "another cascade")
	assert.False(t, sel.Matches(entity.Active()))
}
