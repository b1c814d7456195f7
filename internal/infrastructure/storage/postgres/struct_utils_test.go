package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"plantstock/internal/core/entity"
	"plantstock/internal/core/id"
)

type mockEntity struct {
	entity.Base
	SKU    string `db:"sku" json:"sku"`
	Name   string `db:"name" json:"name"`
	Ignore string `db:"-" json:"-"`
	NoTag  string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockEntity]()

	expected := []string{
		"id", "version", "created_at", "updated_at", "created_by", "updated_by",
		"sku", "name",
	}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}

	assert.NotContains(t, cols, "-")
	assert.Len(t, cols, len(expected))
}

func TestStructToMap(t *testing.T) {
	e := mockEntity{
		Base: entity.Base{
			ID:      id.New(),
			Version: 3,
		},
		SKU:    "SKU-001",
		Name:   "Hydraulic Oil",
		Ignore: "dropped",
		NoTag:  "dropped",
	}

	m := StructToMap(e)

	assert.Equal(t, e.ID, m["id"])
	assert.Equal(t, 3, m["version"])
	assert.Equal(t, "SKU-001", m["sku"])
	assert.Equal(t, "Hydraulic Oil", m["name"])
	assert.NotContains(t, m, "-")
}

func TestStructToMap_Pointer(t *testing.T) {
	e := &mockEntity{SKU: "SKU-002"}
	m := StructToMap(e)
	assert.Equal(t, "SKU-002", m["sku"])
}
