package material_repo

import (
	"context"
	"strings"
	"testing"

	appctx "plantstock/internal/core/context"
	"plantstock/internal/domain/materials"
)

func testCtx() context.Context {
	return appctx.WithIdentity(context.Background(), &appctx.Identity{OrgID: "org-1", Actor: "tester"})
}

func TestApplyFilter_SQL(t *testing.T) {
	repo := New(nil)
	ctx := testCtx()

	tests := []struct {
		name      string
		filter    func() materials.ListFilter
		wantParts []string
		wantArgs  []any
	}{
		{
			name: "org scope always present",
			filter: func() materials.ListFilter {
				return materials.ListFilter{}
			},
			wantParts: []string{"FROM materials", "organization_id = $"},
			wantArgs:  []any{"org-1"},
		},
		{
			name: "search matches name and sku",
			filter: func() materials.ListFilter {
				f := materials.ListFilter{}
				f.Search = "copper"
				return f
			},
			wantParts: []string{"name ILIKE", "sku ILIKE"},
			wantArgs:  []any{"org-1", "%copper%", "%copper%"},
		},
		{
			name: "low stock predicate",
			filter: func() materials.ListFilter {
				return materials.ListFilter{LowStockOnly: true}
			},
			wantParts: []string{"on_hand <= min_level", "min_level > $", "status = $"},
			wantArgs:  []any{"org-1", 0, materials.StatusActive},
		},
		{
			name: "department and facility",
			filter: func() materials.ListFilter {
				return materials.ListFilter{Department: "maintenance", FacilityID: "plant-7"}
			},
			wantParts: []string{"department = $", "facility_id = $"},
			wantArgs:  []any{"org-1", "maintenance", "plant-7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := repo.applyFilter(repo.BaseSelect(ctx), tt.filter())

			sql, args, err := q.ToSql()
			if err != nil {
				t.Fatalf("ToSql failed: %v", err)
			}

			for _, part := range tt.wantParts {
				if !strings.Contains(sql, part) {
					t.Errorf("SQL missing %q\ngot: %s", part, sql)
				}
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args count mismatch\nwant: %v\ngot:  %v", tt.wantArgs, args)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("arg %d mismatch\nwant: %v\ngot:  %v", i, tt.wantArgs[i], args[i])
				}
			}
		})
	}
}

func TestApplyOrder_WhitelistsColumns(t *testing.T) {
	repo := New(nil)
	ctx := testCtx()

	filter := materials.ListFilter{}
	filter.OrderBy = "on_hand; DROP TABLE materials"

	q := applyOrder(repo.applyFilter(repo.BaseSelect(ctx), filter), filter.ListFilter)
	sql, _, err := q.ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	if !strings.HasSuffix(sql, "ORDER BY name ASC") {
		t.Errorf("unknown order column must fall back to name\ngot: %s", sql)
	}
}
