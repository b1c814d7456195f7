package materials

import (
	"context"

	"plantstock/internal/core/id"
	"plantstock/internal/domain"
)

// Repository defines persistence operations for materials.
type Repository interface {
	// Create inserts a new material.
	Create(ctx context.Context, m *Material) error

	// GetByID retrieves a material by ID within the caller's organization.
	GetByID(ctx context.Context, materialID id.ID) (*Material, error)

	// GetBySKU retrieves a material by SKU (unique within organization).
	GetBySKU(ctx context.Context, sku string) (*Material, error)

	// Update modifies an existing material with optimistic locking: the write
	// is version-checked and stale updates fail with CONCURRENT_MODIFICATION.
	Update(ctx context.Context, m *Material) error

	// Delete physically removes a material row.
	Delete(ctx context.Context, materialID id.ID) error

	// ExistsBySKU checks SKU uniqueness within the organization.
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// List retrieves materials with filtering and pagination.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Material], error)
}

// ListFilter for filtering materials. LowStockOnly applies the low-stock
// predicate (on_hand <= min_level AND min_level > 0 AND status = active).
type ListFilter struct {
	domain.ListFilter

	SKU          string
	Department   string
	Location     string
	FacilityID   string
	Status       *Status
	LowStockOnly bool
	IDs          []id.ID
}
