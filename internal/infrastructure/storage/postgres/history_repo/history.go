// Package history_repo persists the append-only audit log.
//
// The table is write-once: there are no UPDATE or DELETE statements in this
// package. Material snapshots are stored alongside the entry and compressed
// with zstd past a size threshold; the compression algorithm is recorded per
// row so old rows stay readable if the threshold changes.
package history_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"plantstock/internal/core/apperror"
	appctx "plantstock/internal/core/context"
	"plantstock/internal/core/id"
	"plantstock/internal/core/types"
	"plantstock/internal/domain"
	"plantstock/internal/domain/history"
	"plantstock/internal/infrastructure/storage/postgres"
)

const tableName = "history_entries"

// entryRow is the storage shape of an entry. The snapshot is held as raw
// bytes plus the algorithm used to encode it.
type entryRow struct {
	ID             id.ID     `db:"id"`
	OrganizationID string    `db:"organization_id"`
	MaterialID     id.ID     `db:"material_id"`
	MaterialName   string    `db:"material_name"`
	SKU            string    `db:"sku"`
	Action         string    `db:"action"`
	QuantityBefore int64     `db:"quantity_before"`
	QuantityAfter  int64     `db:"quantity_after"`
	QuantityChange int64     `db:"quantity_change"`
	Reason         string    `db:"reason"`
	PerformedBy    string    `db:"performed_by"`
	Notes          string    `db:"notes"`
	Snapshot       []byte    `db:"snapshot"`
	SnapshotAlgo   string    `db:"snapshot_algo"`
	CreatedAt      time.Time `db:"created_at"`
}

// Repo implements history.Repository backed by PostgreSQL.
type Repo struct {
	txm   *postgres.TxManager
	codec *postgres.SnapshotCodec
	cols  []string
}

// New creates the history repository.
func New(txm *postgres.TxManager) (*Repo, error) {
	codec, err := postgres.NewSnapshotCodec()
	if err != nil {
		return nil, err
	}
	return &Repo{
		txm:   txm,
		codec: codec,
		cols:  postgres.ExtractDBColumns[entryRow](),
	}, nil
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) orgScope(ctx context.Context) squirrel.Eq {
	return squirrel.Eq{"organization_id": appctx.GetOrgID(ctx)}
}

func (r *Repo) baseSelect(ctx context.Context) squirrel.SelectBuilder {
	return r.builder().
		Select(r.cols...).
		From(tableName).
		Where(r.orgScope(ctx))
}

// Append inserts a new entry. Must run inside the same transaction as the
// ledger write it records.
func (r *Repo) Append(ctx context.Context, entry *history.Entry) error {
	stored, algo := r.codec.Encode(entry.Snapshot)

	q := r.builder().
		Insert(tableName).
		SetMap(map[string]any{
			"id":              entry.ID,
			"organization_id": entry.OrganizationID,
			"material_id":     entry.MaterialID,
			"material_name":   entry.MaterialName,
			"sku":             entry.SKU,
			"action":          string(entry.Action),
			"quantity_before": int64(entry.QuantityBefore),
			"quantity_after":  int64(entry.QuantityAfter),
			"quantity_change": int64(entry.QuantityChange),
			"reason":          entry.Reason,
			"performed_by":    entry.PerformedBy,
			"notes":           entry.Notes,
			"snapshot":        stored,
			"snapshot_algo":   string(algo),
			"created_at":      entry.CreatedAt,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}

	return nil
}

// GetByID retrieves a single entry within the organization scope.
func (r *Repo) GetByID(ctx context.Context, entryID id.ID) (*history.Entry, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"id": entryID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row entryRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(tableName, entryID.String())
		}
		return nil, fmt.Errorf("get history entry: %w", err)
	}

	return r.toEntry(&row)
}

// List retrieves entries ordered newest first.
func (r *Repo) List(ctx context.Context, filter history.ListFilter) (domain.ListResult[*history.Entry], error) {
	var result domain.ListResult[*history.Entry]

	q := r.baseSelect(ctx)
	if filter.MaterialID != nil {
		q = q.Where(squirrel.Eq{"material_id": *filter.MaterialID})
	}
	if filter.Action != nil {
		q = q.Where(squirrel.Eq{"action": string(*filter.Action)})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.DateTo})
	}

	countQ := r.builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count history entries: %w", err)
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

	var rows []entryRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return result, fmt.Errorf("list history entries: %w", err)
	}

	result.Items = make([]*history.Entry, 0, len(rows))
	for i := range rows {
		entry, err := r.toEntry(&rows[i])
		if err != nil {
			return result, err
		}
		result.Items = append(result.Items, entry)
	}
	result.Limit = filter.Limit
	result.Offset = filter.Offset

	return result, nil
}

// SumChanges totals quantity_change across all entries of a material.
func (r *Repo) SumChanges(ctx context.Context, materialID id.ID) (types.Quantity, error) {
	q := r.builder().
		Select("COALESCE(SUM(quantity_change), 0)").
		From(tableName).
		Where(r.orgScope(ctx)).
		Where(squirrel.Eq{"material_id": materialID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var sum int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum history changes: %w", err)
	}

	return types.Quantity(sum), nil
}

func (r *Repo) toEntry(row *entryRow) (*history.Entry, error) {
	snapshot, err := r.codec.Decode(row.Snapshot, postgres.CompressionAlgo(row.SnapshotAlgo))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot for entry %s: %w", row.ID, err)
	}

	return &history.Entry{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		MaterialID:     row.MaterialID,
		MaterialName:   row.MaterialName,
		SKU:            row.SKU,
		Action:         history.Action(row.Action),
		QuantityBefore: types.Quantity(row.QuantityBefore),
		QuantityAfter:  types.Quantity(row.QuantityAfter),
		QuantityChange: types.Quantity(row.QuantityChange),
		Reason:         row.Reason,
		PerformedBy:    row.PerformedBy,
		Notes:          row.Notes,
		Snapshot:       json.RawMessage(snapshot),
		CreatedAt:      row.CreatedAt,
	}, nil
}
