package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	t.Run("register mints id when empty", func(t *testing.T) {
		tr := NewTracker()
		_, cancel := context.WithCancel(context.Background())
		defer cancel()

		id := tr.Register("", cancel)
		assert.NotEmpty(t, id)
		assert.Equal(t, 1, tr.Active())
	})

	t.Run("cancel fires the context and removes the entry", func(t *testing.T) {
		tr := NewTracker()
		ctx, cancel := context.WithCancel(context.Background())

		id := tr.Register("sess-1", cancel)
		require.Equal(t, "sess-1", id)

		require.NoError(t, tr.Cancel("sess-1"))
		assert.Error(t, ctx.Err(), "context should be cancelled")
		assert.Equal(t, 0, tr.Active())
	})

	t.Run("cancel unknown session errors", func(t *testing.T) {
		tr := NewTracker()
		assert.Error(t, tr.Cancel("ghost"))
	})

	t.Run("remove does not cancel", func(t *testing.T) {
		tr := NewTracker()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		tr.Register("sess-2", cancel)
		tr.Remove("sess-2")
		assert.NoError(t, ctx.Err())
		assert.Equal(t, 0, tr.Active())
	})
}
