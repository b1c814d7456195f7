// Package count_repo persists count sessions and their item rows.
//
// Items live in a child table keyed by session id and are saved as a set:
// SaveItems replaces all rows for the session in one statement pair. Callers
// run it inside the same transaction as the session header update.
package count_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"plantstock/internal/core/id"
	"plantstock/internal/core/types"
	"plantstock/internal/domain"
	"plantstock/internal/domain/counts"
	"plantstock/internal/infrastructure/storage/postgres"
)

const (
	tableName      = "count_sessions"
	itemsTableName = "count_items"
)

// itemRow is the storage shape of a session item. Position preserves the
// order items were added in.
type itemRow struct {
	LineID    id.ID `db:"line_id"`
	SessionID id.ID `db:"session_id"`
	Position  int   `db:"position"`

	MaterialID   id.ID  `db:"material_id"`
	MaterialName string `db:"material_name"`
	SKU          string `db:"sku"`

	ExpectedQuantity int64  `db:"expected_quantity"`
	CountedQuantity  *int64 `db:"counted_quantity"`
	Variance         int64  `db:"variance"`

	Counted   bool       `db:"counted"`
	CountedAt *time.Time `db:"counted_at"`
	CountedBy string     `db:"counted_by"`
	Notes     string     `db:"notes"`

	Applied   bool       `db:"applied"`
	AppliedAt *time.Time `db:"applied_at"`
}

// Repo implements counts.Repository backed by PostgreSQL.
type Repo struct {
	*postgres.BaseRepo[*counts.Session]

	itemCols []string
}

// New creates the count session repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		BaseRepo: postgres.NewBaseRepo(
			txm,
			tableName,
			postgres.ExtractDBColumns[counts.Session](),
			func() *counts.Session { return &counts.Session{} },
		),
		itemCols: postgres.ExtractDBColumns[itemRow](),
	}
}

// GetItems retrieves all items of a session in insertion order.
func (r *Repo) GetItems(ctx context.Context, sessionID id.ID) ([]counts.Item, error) {
	q := r.Builder().
		Select(r.itemCols...).
		From(itemsTableName).
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("position ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []itemRow
	if err := pgxscan.Select(ctx, r.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get session items: %w", err)
	}

	items := make([]counts.Item, 0, len(rows))
	for i := range rows {
		items = append(items, toItem(&rows[i]))
	}
	return items, nil
}

// SaveItems replaces the full item set of a session (delete then insert).
// Must run inside a transaction together with the session header write.
func (r *Repo) SaveItems(ctx context.Context, sessionID id.ID, items []counts.Item) error {
	delQ := r.Builder().
		Delete(itemsTableName).
		Where(squirrel.Eq{"session_id": sessionID})

	delSQL, delArgs, err := delQ.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete session items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	insQ := r.Builder().
		Insert(itemsTableName).
		Columns(r.itemCols...)

	for i := range items {
		row := toRow(sessionID, i, &items[i])
		insQ = insQ.Values(
			row.LineID, row.SessionID, row.Position,
			row.MaterialID, row.MaterialName, row.SKU,
			row.ExpectedQuantity, row.CountedQuantity, row.Variance,
			row.Counted, row.CountedAt, row.CountedBy, row.Notes,
			row.Applied, row.AppliedAt,
		)
	}

	insSQL, insArgs, err := insQ.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, insSQL, insArgs...); err != nil {
		return fmt.Errorf("insert session items: %w", err)
	}

	return nil
}

// List retrieves sessions matching the filter, newest first.
// Items are not loaded; callers fetch them per session when needed.
func (r *Repo) List(ctx context.Context, filter counts.ListFilter) (domain.ListResult[*counts.Session], error) {
	var result domain.ListResult[*counts.Session]

	q := r.BaseSelect(ctx)
	if filter.FacilityID != "" {
		q = q.Where(squirrel.Eq{"facility_id": filter.FacilityID})
	}
	if filter.Department != "" {
		q = q.Where(squirrel.Eq{"department": filter.Department})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.DateTo})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}

	total, err := r.Count(ctx, q)
	if err != nil {
		return result, err
	}

	q = q.OrderBy("created_at DESC")
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

	var sessions []*counts.Session
	if err := pgxscan.Select(ctx, r.Querier(ctx), &sessions, sql, args...); err != nil {
		return result, fmt.Errorf("list sessions: %w", err)
	}

	result.Items = sessions
	result.TotalCount = total
	result.Limit = filter.Limit
	result.Offset = filter.Offset
	return result, nil
}

func toRow(sessionID id.ID, position int, item *counts.Item) *itemRow {
	row := &itemRow{
		LineID:           item.LineID,
		SessionID:        sessionID,
		Position:         position,
		MaterialID:       item.MaterialID,
		MaterialName:     item.MaterialName,
		SKU:              item.SKU,
		ExpectedQuantity: int64(item.ExpectedQuantity),
		Variance:         int64(item.Variance),
		Counted:          item.Counted,
		CountedAt:        item.CountedAt,
		CountedBy:        item.CountedBy,
		Notes:            item.Notes,
		Applied:          item.Applied,
		AppliedAt:        item.AppliedAt,
	}
	if item.CountedQuantity != nil {
		counted := int64(*item.CountedQuantity)
		row.CountedQuantity = &counted
	}
	return row
}

func toItem(row *itemRow) counts.Item {
	item := counts.Item{
		LineID:           row.LineID,
		MaterialID:       row.MaterialID,
		MaterialName:     row.MaterialName,
		SKU:              row.SKU,
		ExpectedQuantity: types.Quantity(row.ExpectedQuantity),
		Variance:         types.Quantity(row.Variance),
		Counted:          row.Counted,
		CountedAt:        row.CountedAt,
		CountedBy:        row.CountedBy,
		Notes:            row.Notes,
		Applied:          row.Applied,
		AppliedAt:        row.AppliedAt,
	}
	if row.CountedQuantity != nil {
		counted := types.Quantity(*row.CountedQuantity)
		item.CountedQuantity = &counted
	}
	return item
}
