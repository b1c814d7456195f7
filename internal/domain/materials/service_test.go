package materials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantstock/internal/core/apperror"
	"plantstock/internal/core/id"
	"plantstock/internal/core/types"
	"plantstock/internal/domain"
	"plantstock/internal/domain/history"
)

// --- Fakes ---

type fakeRepo struct {
	items map[id.ID]*Material
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[id.ID]*Material)}
}

func (f *fakeRepo) Create(ctx context.Context, m *Material) error {
	cp := *m
	f.items[m.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, materialID id.ID) (*Material, error) {
	m, ok := f.items[materialID]
	if !ok {
		return nil, apperror.NewNotFound("materials", materialID.String())
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) GetBySKU(ctx context.Context, sku string) (*Material, error) {
	for _, m := range f.items {
		if m.SKU == sku {
			cp := *m
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("materials", sku)
}

func (f *fakeRepo) Update(ctx context.Context, m *Material) error {
	stored, ok := f.items[m.ID]
	if !ok {
		return apperror.NewNotFound("materials", m.ID.String())
	}
	// Optimistic locking: caller Touch()ed, so stored must be one behind.
	if stored.Version != m.Version-1 {
		return apperror.NewConcurrentModification("materials", m.ID)
	}
	cp := *m
	f.items[m.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, materialID id.ID) error {
	if _, ok := f.items[materialID]; !ok {
		return apperror.NewNotFound("materials", materialID.String())
	}
	delete(f.items, materialID)
	return nil
}

func (f *fakeRepo) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	for _, m := range f.items {
		if m.SKU == sku {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Material], error) {
	var result domain.ListResult[*Material]
	for _, m := range f.items {
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		if filter.LowStockOnly && !m.IsLowStock() {
			continue
		}
		cp := *m
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

type fakeHistoryRepo struct {
	entries []*history.Entry
}

func (f *fakeHistoryRepo) Append(ctx context.Context, entry *history.Entry) error {
	cp := *entry
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeHistoryRepo) GetByID(ctx context.Context, entryID id.ID) (*history.Entry, error) {
	for _, e := range f.entries {
		if e.ID == entryID {
			return e, nil
		}
	}
	return nil, apperror.NewNotFound("history_entries", entryID.String())
}

func (f *fakeHistoryRepo) List(ctx context.Context, filter history.ListFilter) (domain.ListResult[*history.Entry], error) {
	var result domain.ListResult[*history.Entry]
	for _, e := range f.entries {
		if filter.MaterialID != nil && e.MaterialID != *filter.MaterialID {
			continue
		}
		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}
		result.Items = append(result.Items, e)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (f *fakeHistoryRepo) SumChanges(ctx context.Context, materialID id.ID) (types.Quantity, error) {
	var sum types.Quantity
	for _, e := range f.entries {
		if e.MaterialID == materialID {
			sum += e.QuantityChange
		}
	}
	return sum, nil
}

func (f *fakeHistoryRepo) forMaterial(materialID id.ID) []*history.Entry {
	var out []*history.Entry
	for _, e := range f.entries {
		if e.MaterialID == materialID {
			out = append(out, e)
		}
	}
	return out
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *fakeRepo, *fakeHistoryRepo) {
	repo := newFakeRepo()
	historyRepo := &fakeHistoryRepo{}
	svc := NewService(repo, history.NewService(historyRepo), fakeTxManager{})
	return svc, repo, historyRepo
}

func newStoredMaterial(t *testing.T, svc *Service, onHand int64) *Material {
	t.Helper()
	m := NewMaterial("org-1", "Copper Wire", "CW-001")
	m.CreatedBy = "alice"
	m.OnHand = types.NewQuantityFromInt64(onHand)
	require.NoError(t, svc.Create(context.Background(), m))
	return m
}

// --- Tests ---

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("writes synthetic create entry", func(t *testing.T) {
		svc, _, hist := newTestService()
		m := newStoredMaterial(t, svc, 10)

		entries := hist.forMaterial(m.ID)
		require.Len(t, entries, 1)
		e := entries[0]
		assert.Equal(t, history.ActionCreate, e.Action)
		assert.True(t, e.QuantityBefore.IsZero())
		assert.Equal(t, types.NewQuantityFromInt64(10), e.QuantityAfter)
		assert.Equal(t, types.NewQuantityFromInt64(10), e.QuantityChange)
		assert.Equal(t, "alice", e.PerformedBy)
		assert.Equal(t, "Copper Wire", e.MaterialName)
		assert.Equal(t, "CW-001", e.SKU)
		assert.NotEmpty(t, e.Snapshot)
	})

	t.Run("rejects duplicate sku", func(t *testing.T) {
		svc, _, _ := newTestService()
		newStoredMaterial(t, svc, 0)

		dup := NewMaterial("org-1", "Another", "CW-001")
		dup.CreatedBy = "alice"
		err := svc.Create(ctx, dup)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
	})

	t.Run("rejects invalid material", func(t *testing.T) {
		svc, _, hist := newTestService()
		m := NewMaterial("org-1", "", "X-001")
		m.CreatedBy = "alice"
		require.Error(t, svc.Create(ctx, m))
		assert.Empty(t, hist.entries)
	})
}

func TestService_Adjust(t *testing.T) {
	ctx := context.Background()

	t.Run("records before after and delta", func(t *testing.T) {
		svc, repo, hist := newTestService()
		m := newStoredMaterial(t, svc, 10)

		updated, err := svc.Adjust(ctx, m.ID, types.NewQuantityFromInt64(15), AdjustOptions{
			Action:      history.ActionAdjustment,
			Reason:      "found extra stock",
			PerformedBy: "bob",
		})
		require.NoError(t, err)
		assert.Equal(t, types.NewQuantityFromInt64(15), updated.OnHand)
		assert.NotNil(t, updated.LastAdjustedAt)
		assert.Nil(t, updated.LastCountedAt)

		stored, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, types.NewQuantityFromInt64(15), stored.OnHand)
		assert.Equal(t, "bob", stored.UpdatedBy)

		entries := hist.forMaterial(m.ID)
		require.Len(t, entries, 2) // create + adjustment
		e := entries[1]
		assert.Equal(t, history.ActionAdjustment, e.Action)
		assert.Equal(t, types.NewQuantityFromInt64(10), e.QuantityBefore)
		assert.Equal(t, types.NewQuantityFromInt64(15), e.QuantityAfter)
		assert.Equal(t, types.NewQuantityFromInt64(5), e.QuantityChange)
	})

	t.Run("count action stamps last counted", func(t *testing.T) {
		svc, _, _ := newTestService()
		m := newStoredMaterial(t, svc, 10)

		updated, err := svc.Adjust(ctx, m.ID, types.NewQuantityFromInt64(9), AdjustOptions{
			Action:      history.ActionCount,
			Reason:      "cycle count",
			PerformedBy: "bob",
		})
		require.NoError(t, err)
		assert.NotNil(t, updated.LastCountedAt)
		assert.Nil(t, updated.LastAdjustedAt)
	})

	t.Run("zero delta is recorded", func(t *testing.T) {
		svc, _, hist := newTestService()
		m := newStoredMaterial(t, svc, 10)

		_, err := svc.Adjust(ctx, m.ID, types.NewQuantityFromInt64(10), AdjustOptions{
			Action:      history.ActionAdjustment,
			Reason:      "recount confirmed",
			PerformedBy: "bob",
		})
		require.NoError(t, err)

		entries := hist.forMaterial(m.ID)
		require.Len(t, entries, 2)
		assert.True(t, entries[1].QuantityChange.IsZero())
	})

	t.Run("rejects create action", func(t *testing.T) {
		svc, _, _ := newTestService()
		m := newStoredMaterial(t, svc, 10)

		_, err := svc.Adjust(ctx, m.ID, types.NewQuantityFromInt64(5), AdjustOptions{
			Action:      history.ActionCreate,
			Reason:      "nope",
			PerformedBy: "bob",
		})
		assert.Error(t, err)
	})

	t.Run("rejects missing reason", func(t *testing.T) {
		svc, _, _ := newTestService()
		m := newStoredMaterial(t, svc, 10)

		_, err := svc.Adjust(ctx, m.ID, types.NewQuantityFromInt64(5), AdjustOptions{
			Action:      history.ActionAdjustment,
			PerformedBy: "bob",
		})
		assert.Error(t, err)
	})

	t.Run("unknown material", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.Adjust(ctx, id.New(), types.NewQuantityFromInt64(5), AdjustOptions{
			Action:      history.ActionAdjustment,
			Reason:      "x",
			PerformedBy: "bob",
		})
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestService_Receive(t *testing.T) {
	ctx := context.Background()

	t.Run("increases on hand", func(t *testing.T) {
		svc, _, hist := newTestService()
		m := newStoredMaterial(t, svc, 0)

		updated, err := svc.Receive(ctx, m.ID, types.NewQuantityFromInt64(25), "delivery", "bob", "")
		require.NoError(t, err)
		assert.Equal(t, types.NewQuantityFromInt64(25), updated.OnHand)

		entries := hist.forMaterial(m.ID)
		require.Len(t, entries, 2)
		assert.Equal(t, history.ActionReceive, entries[1].Action)
		assert.Equal(t, types.NewQuantityFromInt64(25), entries[1].QuantityChange)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		svc, _, _ := newTestService()
		m := newStoredMaterial(t, svc, 0)

		_, err := svc.Receive(ctx, m.ID, 0, "delivery", "bob", "")
		assert.Error(t, err)

		_, err = svc.Receive(ctx, m.ID, types.NewQuantityFromInt64(-5), "delivery", "bob", "")
		assert.Error(t, err)
	})
}

func TestService_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("decreases on hand", func(t *testing.T) {
		svc, _, hist := newTestService()
		m := newStoredMaterial(t, svc, 25)

		updated, err := svc.Issue(ctx, m.ID, types.NewQuantityFromInt64(10), "production order", "bob", "")
		require.NoError(t, err)
		assert.Equal(t, types.NewQuantityFromInt64(15), updated.OnHand)

		entries := hist.forMaterial(m.ID)
		require.Len(t, entries, 2)
		assert.Equal(t, history.ActionIssue, entries[1].Action)
		assert.Equal(t, types.NewQuantityFromInt64(-10), entries[1].QuantityChange)
	})

	t.Run("clamps at zero", func(t *testing.T) {
		svc, _, hist := newTestService()
		m := newStoredMaterial(t, svc, 5)

		updated, err := svc.Issue(ctx, m.ID, types.NewQuantityFromInt64(8), "production order", "bob", "")
		require.NoError(t, err)
		assert.True(t, updated.OnHand.IsZero())

		// The recorded delta reflects the clamped change, not the requested one.
		entries := hist.forMaterial(m.ID)
		require.Len(t, entries, 2)
		assert.Equal(t, types.NewQuantityFromInt64(-5), entries[1].QuantityChange)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		svc, _, _ := newTestService()
		m := newStoredMaterial(t, svc, 5)

		_, err := svc.Issue(ctx, m.ID, 0, "production order", "bob", "")
		assert.Error(t, err)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves on hand and stamps", func(t *testing.T) {
		svc, repo, _ := newTestService()
		m := newStoredMaterial(t, svc, 10)
		_, err := svc.Adjust(ctx, m.ID, types.NewQuantityFromInt64(12), AdjustOptions{
			Action: history.ActionAdjustment, Reason: "r", PerformedBy: "bob",
		})
		require.NoError(t, err)

		edited, err := svc.GetByID(ctx, m.ID)
		require.NoError(t, err)
		edited.Name = "Copper Wire 2mm"
		edited.OnHand = types.NewQuantityFromInt64(999) // must be ignored
		require.NoError(t, svc.Update(ctx, edited))

		stored, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "Copper Wire 2mm", stored.Name)
		assert.Equal(t, types.NewQuantityFromInt64(12), stored.OnHand)
		assert.NotNil(t, stored.LastAdjustedAt)
	})

	t.Run("rejects sku change to existing sku", func(t *testing.T) {
		svc, _, _ := newTestService()
		m := newStoredMaterial(t, svc, 0)

		other := NewMaterial("org-1", "Steel Rod", "SR-001")
		other.CreatedBy = "alice"
		require.NoError(t, svc.Create(ctx, other))

		edited, err := svc.GetByID(ctx, other.ID)
		require.NoError(t, err)
		edited.SKU = m.SKU
		err = svc.Update(ctx, edited)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("writes terminal entry and removes row", func(t *testing.T) {
		svc, repo, hist := newTestService()
		m := newStoredMaterial(t, svc, 7)

		require.NoError(t, svc.Delete(ctx, m.ID, "bob"))

		_, err := repo.GetByID(ctx, m.ID)
		assert.True(t, apperror.IsNotFound(err))

		entries := hist.forMaterial(m.ID)
		require.Len(t, entries, 2)
		e := entries[1]
		assert.Equal(t, history.ActionDelete, e.Action)
		assert.Equal(t, types.NewQuantityFromInt64(7), e.QuantityBefore)
		assert.True(t, e.QuantityAfter.IsZero())
		assert.Equal(t, types.NewQuantityFromInt64(-7), e.QuantityChange)
		assert.NotEmpty(t, e.Snapshot)
	})

	t.Run("requires performer", func(t *testing.T) {
		svc, _, _ := newTestService()
		m := newStoredMaterial(t, svc, 7)
		assert.Error(t, svc.Delete(ctx, m.ID, ""))
	})

	t.Run("missing material surfaces not found", func(t *testing.T) {
		svc, _, _ := newTestService()
		assert.True(t, apperror.IsNotFound(svc.Delete(ctx, id.New(), "bob")))
	})
}

func TestService_CheckConsistency(t *testing.T) {
	ctx := context.Background()

	svc, _, hist := newTestService()
	m := newStoredMaterial(t, svc, 10)

	_, err := svc.Receive(ctx, m.ID, types.NewQuantityFromInt64(25), "delivery", "bob", "")
	require.NoError(t, err)
	_, err = svc.Issue(ctx, m.ID, types.NewQuantityFromInt64(8), "order", "bob", "")
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, m.ID, types.NewQuantityFromInt64(30), AdjustOptions{
		Action: history.ActionAdjustment, Reason: "recount", PerformedBy: "bob",
	})
	require.NoError(t, err)

	report, err := svc.CheckConsistency(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, types.NewQuantityFromInt64(30), report.OnHand)
	assert.Equal(t, report.OnHand, report.HistorySum)

	// The ledger/log invariant: summing deltas replays to current on-hand.
	sum, err := hist.SumChanges(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, report.OnHand, sum)
}

func TestService_ListLowStock(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	low := NewMaterial("org-1", "Low Item", "LOW-001")
	low.CreatedBy = "alice"
	low.OnHand = types.NewQuantityFromInt64(2)
	low.MinLevel = types.NewQuantityFromInt64(5)
	require.NoError(t, svc.Create(ctx, low))

	ok := NewMaterial("org-1", "Stocked Item", "OK-001")
	ok.CreatedBy = "alice"
	ok.OnHand = types.NewQuantityFromInt64(50)
	ok.MinLevel = types.NewQuantityFromInt64(5)
	require.NoError(t, svc.Create(ctx, ok))

	result, err := svc.ListLowStock(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "LOW-001", result.Items[0].SKU)
}
