package materials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantstock/internal/core/types"
)

func TestMaterial_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid material", func(t *testing.T) {
		m := NewMaterial("org-1", "Copper Wire", "CW-001")
		require.NoError(t, m.Validate(ctx))
	})

	t.Run("missing organization", func(t *testing.T) {
		m := NewMaterial("", "Copper Wire", "CW-001")
		assert.Error(t, m.Validate(ctx))
	})

	t.Run("missing name", func(t *testing.T) {
		m := NewMaterial("org-1", "", "CW-001")
		assert.Error(t, m.Validate(ctx))
	})

	t.Run("missing sku", func(t *testing.T) {
		m := NewMaterial("org-1", "Copper Wire", "")
		assert.Error(t, m.Validate(ctx))
	})

	t.Run("invalid status", func(t *testing.T) {
		m := NewMaterial("org-1", "Copper Wire", "CW-001")
		m.Status = "archived"
		assert.Error(t, m.Validate(ctx))
	})

	t.Run("negative min level", func(t *testing.T) {
		m := NewMaterial("org-1", "Copper Wire", "CW-001")
		m.MinLevel = types.NewQuantityFromInt64(-1)
		assert.Error(t, m.Validate(ctx))
	})
}

func TestMaterial_IsLowStock(t *testing.T) {
	tests := []struct {
		name     string
		onHand   int64
		minLevel int64
		status   Status
		want     bool
	}{
		{"below minimum", 3, 5, StatusActive, true},
		{"at minimum", 5, 5, StatusActive, true},
		{"above minimum", 10, 5, StatusActive, false},
		{"no minimum configured", 0, 0, StatusActive, false},
		{"zero on hand without minimum", 0, 0, StatusActive, false},
		{"inactive never low", 3, 5, StatusInactive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMaterial("org-1", "Test", "T-001")
			m.OnHand = types.NewQuantityFromInt64(tt.onHand)
			m.MinLevel = types.NewQuantityFromInt64(tt.minLevel)
			m.Status = tt.status

			assert.Equal(t, tt.want, m.IsLowStock())
		})
	}
}
