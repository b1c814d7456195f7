package material_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"plantstock/internal/core/apperror"
	"plantstock/internal/domain"
	"plantstock/internal/domain/materials"
	"plantstock/internal/infrastructure/storage/postgres"
)

const tableName = "materials"

// Repo implements materials.Repository backed by PostgreSQL.
type Repo struct {
	*postgres.BaseRepo[*materials.Material]
}

// New creates the materials repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		BaseRepo: postgres.NewBaseRepo(
			txm,
			tableName,
			postgres.ExtractDBColumns[materials.Material](),
			func() *materials.Material { return &materials.Material{} },
		),
	}
}

// GetBySKU retrieves a material by its SKU within the organization scope.
func (r *Repo) GetBySKU(ctx context.Context, sku string) (*materials.Material, error) {
	m := &materials.Material{}

	q := r.BaseSelect(ctx).
		Where(squirrel.Eq{"sku": sku}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.Querier(ctx), m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(tableName, sku)
		}
		return nil, fmt.Errorf("get by sku: %w", err)
	}

	return m, nil
}

// ExistsBySKU reports whether a material with the given SKU exists
// within the organization.
func (r *Repo) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	q := r.Builder().
		Select("1").
		From(tableName).
		Where(r.OrgScope(ctx)).
		Where(squirrel.Eq{"sku": sku}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	if err := r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&one); err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("exists by sku: %w", err)
	}

	return true, nil
}

// List returns materials matching the filter, with the total count
// before pagination.
func (r *Repo) List(ctx context.Context, filter materials.ListFilter) (domain.ListResult[*materials.Material], error) {
	var result domain.ListResult[*materials.Material]

	q := r.applyFilter(r.BaseSelect(ctx), filter)

	total, err := r.Count(ctx, q)
	if err != nil {
		return result, err
	}

	q = applyOrder(q, filter.ListFilter)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	var items []*materials.Material
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return result, fmt.Errorf("list materials: %w", err)
	}

	result.Items = items
	result.TotalCount = total
	result.Limit = filter.Limit
	result.Offset = filter.Offset
	return result, nil
}

func (r *Repo) applyFilter(q squirrel.SelectBuilder, filter materials.ListFilter) squirrel.SelectBuilder {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"sku": pattern},
		})
	}
	if filter.SKU != "" {
		q = q.Where(squirrel.Eq{"sku": filter.SKU})
	}
	if filter.Department != "" {
		q = q.Where(squirrel.Eq{"department": filter.Department})
	}
	if filter.Location != "" {
		q = q.Where(squirrel.Eq{"location": filter.Location})
	}
	if filter.FacilityID != "" {
		q = q.Where(squirrel.Eq{"facility_id": filter.FacilityID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	if filter.LowStockOnly {
		q = q.Where(squirrel.Expr("on_hand <= min_level")).
			Where(squirrel.Gt{"min_level": 0}).
			Where(squirrel.Eq{"status": materials.StatusActive})
	}
	return q
}

var allowedOrderColumns = map[string]bool{
	"name":       true,
	"sku":        true,
	"on_hand":    true,
	"department": true,
	"location":   true,
	"created_at": true,
	"updated_at": true,
}

func applyOrder(q squirrel.SelectBuilder, filter domain.ListFilter) squirrel.SelectBuilder {
	col := filter.OrderBy
	if !allowedOrderColumns[col] {
		col = "name"
	}
	return q.OrderBy(col + " ASC")
}
