package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsertSQL_Defaults(t *testing.T) {
	sql := UpsertSQL(UpsertConfig{
		Table:        "countries",
		Columns:      []string{"id", "name", "name_key", "population"},
		ConflictKeys: []string{"name_key"},
		SkipUpdate:   []string{"id"},
	})

	assert.Contains(t, sql, `INSERT INTO "countries" ("id", "name", "name_key", "population") VALUES ($1, $2, $3, $4)`)
	assert.Contains(t, sql, `ON CONFLICT ("name_key") DO UPDATE SET`)
	assert.Contains(t, sql, `"name" = EXCLUDED."name"`)
	assert.Contains(t, sql, `"population" = EXCLUDED."population"`)
	// conflict key and identity are never rewritten on update
	assert.NotContains(t, sql, `"id" = EXCLUDED."id"`)
	assert.NotContains(t, sql, `"name_key" = EXCLUDED."name_key"`)
}

func TestUpsertSQL_ExplicitUpdateCols(t *testing.T) {
	sql := UpsertSQL(UpsertConfig{
		Table:        "system_metadata",
		Columns:      []string{"key_name", "key_value", "updated_at"},
		ConflictKeys: []string{"key_name"},
		UpdateCols:   []string{"key_value"},
	})

	assert.Contains(t, sql, `"key_value" = EXCLUDED."key_value"`)
	assert.NotContains(t, sql, `"updated_at" = EXCLUDED."updated_at"`)
}
