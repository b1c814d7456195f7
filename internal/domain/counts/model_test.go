package counts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantstock/internal/core/id"
	"plantstock/internal/core/types"
)

func qty(v int64) types.Quantity {
	return types.NewQuantityFromInt64(v)
}

func newTestSession(t *testing.T, items int) *Session {
	t.Helper()
	s := NewSession("org-1", "Weekly count")
	for i := 0; i < items; i++ {
		s.AddItem(id.New(), "Item", "SKU", qty(10))
	}
	return s
}

func TestSession_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, newTestSession(t, 1).Validate(ctx))
	})

	t.Run("missing organization", func(t *testing.T) {
		s := NewSession("", "Weekly count")
		s.AddItem(id.New(), "Item", "SKU", qty(10))
		assert.Error(t, s.Validate(ctx))
	})

	t.Run("missing name", func(t *testing.T) {
		s := NewSession("org-1", "")
		s.AddItem(id.New(), "Item", "SKU", qty(10))
		assert.Error(t, s.Validate(ctx))
	})

	t.Run("no items", func(t *testing.T) {
		s := NewSession("org-1", "Weekly count")
		assert.Error(t, s.Validate(ctx))
	})
}

func TestSession_StateMachine(t *testing.T) {
	t.Run("start from draft", func(t *testing.T) {
		s := newTestSession(t, 1)
		require.NoError(t, s.Start())
		assert.Equal(t, StatusInProgress, s.Status)
		assert.NotNil(t, s.StartedAt)
	})

	t.Run("start twice fails", func(t *testing.T) {
		s := newTestSession(t, 1)
		require.NoError(t, s.Start())
		assert.Error(t, s.Start())
	})

	t.Run("cancel from draft and in progress", func(t *testing.T) {
		s := newTestSession(t, 1)
		require.NoError(t, s.Cancel())
		assert.Equal(t, StatusCancelled, s.Status)

		s2 := newTestSession(t, 1)
		require.NoError(t, s2.Start())
		require.NoError(t, s2.Cancel())
	})

	t.Run("cancel from terminal states fails", func(t *testing.T) {
		s := newTestSession(t, 1)
		require.NoError(t, s.Cancel())
		assert.Error(t, s.Cancel())
	})

	t.Run("apply allowed in progress and completed only", func(t *testing.T) {
		s := newTestSession(t, 1)
		assert.Error(t, s.CanApply()) // draft

		require.NoError(t, s.Start())
		assert.NoError(t, s.CanApply())

		require.NoError(t, s.RecordCount(s.Items[0].MaterialID, qty(10), "bob", ""))
		assert.Equal(t, StatusCompleted, s.Status)
		assert.NoError(t, s.CanApply())

		s2 := newTestSession(t, 1)
		require.NoError(t, s2.Cancel())
		assert.Error(t, s2.CanApply())
	})
}

func TestSession_RecordCount(t *testing.T) {
	t.Run("requires in progress", func(t *testing.T) {
		s := newTestSession(t, 1)
		err := s.RecordCount(s.Items[0].MaterialID, qty(8), "bob", "")
		assert.Error(t, err)
	})

	t.Run("material outside scope", func(t *testing.T) {
		s := newTestSession(t, 1)
		require.NoError(t, s.Start())
		err := s.RecordCount(id.New(), qty(8), "bob", "")
		assert.Error(t, err)
	})

	t.Run("computes variance against frozen expected", func(t *testing.T) {
		s := newTestSession(t, 2)
		require.NoError(t, s.Start())

		require.NoError(t, s.RecordCount(s.Items[0].MaterialID, qty(8), "bob", "shelf damage"))

		it := &s.Items[0]
		require.NotNil(t, it.CountedQuantity)
		assert.Equal(t, qty(8), *it.CountedQuantity)
		assert.Equal(t, qty(-2), it.Variance)
		assert.True(t, it.Counted)
		assert.Equal(t, "bob", it.CountedBy)
		assert.NotNil(t, it.CountedAt)

		assert.Equal(t, 1, s.CountedItems)
		assert.Equal(t, 1, s.VarianceCount)
		assert.Equal(t, StatusInProgress, s.Status)
	})

	t.Run("re-count overwrites and resets applied", func(t *testing.T) {
		s := newTestSession(t, 2)
		require.NoError(t, s.Start())

		materialID := s.Items[0].MaterialID
		require.NoError(t, s.RecordCount(materialID, qty(8), "bob", ""))
		s.Items[0].Applied = true

		require.NoError(t, s.RecordCount(materialID, qty(10), "carol", ""))

		it := &s.Items[0]
		assert.Equal(t, qty(10), *it.CountedQuantity)
		assert.True(t, it.Variance.IsZero())
		assert.Equal(t, "carol", it.CountedBy)
		assert.False(t, it.Applied)
		assert.Nil(t, it.AppliedAt)

		assert.Equal(t, 1, s.CountedItems)
		assert.Equal(t, 0, s.VarianceCount)
	})

	t.Run("auto-completes when all items counted", func(t *testing.T) {
		s := newTestSession(t, 2)
		require.NoError(t, s.Start())

		require.NoError(t, s.RecordCount(s.Items[0].MaterialID, qty(10), "bob", ""))
		assert.Equal(t, StatusInProgress, s.Status)
		assert.Nil(t, s.CompletedAt)

		require.NoError(t, s.RecordCount(s.Items[1].MaterialID, qty(12), "bob", ""))
		assert.Equal(t, StatusCompleted, s.Status)
		assert.NotNil(t, s.CompletedAt)
	})
}

func TestItem_HasVariance(t *testing.T) {
	it := Item{Counted: false, Variance: qty(-2)}
	assert.False(t, it.HasVariance(), "uncounted item never has variance")

	it.Counted = true
	assert.True(t, it.HasVariance())

	it.Variance = 0
	assert.False(t, it.HasVariance())
}
