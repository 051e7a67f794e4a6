// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/riftlabs/riftmock/internal/value"
)

// csvDatasource is a lookup source backed by a CSV file, loaded once and
// indexed by a named key column. Grounded on the lookup behavior's csv
// source; refreshed by deleting the Pipeline's cache entry (no file
// watcher, matching the teacher's load-once MockPersister style).
type csvDatasource struct {
	mu   sync.RWMutex
	rows map[string]value.Object
}

func newCSVDatasource(path, keyCol string) (*csvDatasource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: lookup csv %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("pipeline: lookup csv %q: %w", path, err)
	}
	if len(records) == 0 {
		return &csvDatasource{rows: map[string]value.Object{}}, nil
	}

	header := records[0]
	keyIdx := -1
	for i, h := range header {
		if h == keyCol {
			keyIdx = i
			break
		}
	}
	if keyIdx == -1 {
		return nil, fmt.Errorf("pipeline: lookup csv %q: key column %q not found", path, keyCol)
	}

	rows := make(map[string]value.Object, len(records)-1)
	for _, rec := range records[1:] {
		obj := value.Object{}
		for i, h := range header {
			if i < len(rec) {
				obj[h] = rec[i]
			}
		}
		if keyIdx < len(rec) {
			rows[rec[keyIdx]] = obj
		}
	}
	return &csvDatasource{rows: rows}, nil
}

func (d *csvDatasource) Lookup(_ context.Context, key string) (value.Object, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	row, ok := d.rows[key]
	return row, ok, nil
}

// jsonDatasource is a lookup source backed by a JSON file holding an array
// of flat objects, indexed by a named key field.
type jsonDatasource struct {
	mu   sync.RWMutex
	rows map[string]value.Object
}

func newJSONDatasource(path, keyField string) (*jsonDatasource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: lookup json %q: %w", path, err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("pipeline: lookup json %q: %w", path, err)
	}
	rows := make(map[string]value.Object, len(records))
	for _, rec := range records {
		keyVal, ok := rec[keyField]
		if !ok {
			continue
		}
		key := fmt.Sprintf("%v", keyVal)
		rows[key] = value.Object(rec)
	}
	return &jsonDatasource{rows: rows}, nil
}

func (d *jsonDatasource) Lookup(_ context.Context, key string) (value.Object, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	row, ok := d.rows[key]
	return row, ok, nil
}

// postgresDatasource is a lookup source backed by a SQL table, queried live
// on every lookup. db is injected by the caller (Pipeline.DB) exactly like
// the teacher's PostgresPersister accepts a *sql.DB rather than opening its
// own connection, keeping the driver choice out of this package.
type postgresDatasource struct {
	db     *sql.DB
	table  string
	keyCol string
}

func newPostgresDatasource(db *sql.DB, table, keyCol string) (*postgresDatasource, error) {
	if db == nil {
		return nil, fmt.Errorf("pipeline: lookup postgres: no database connection configured")
	}
	if table == "" || keyCol == "" {
		return nil, fmt.Errorf("pipeline: lookup postgres: table and keyColumn are required")
	}
	return &postgresDatasource{db: db, table: table, keyCol: keyCol}, nil
}

func (d *postgresDatasource) Lookup(ctx context.Context, key string) (value.Object, bool, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", d.table, d.keyCol)
	rows, err := d.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, false, fmt.Errorf("pipeline: lookup postgres: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}
	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, false, fmt.Errorf("pipeline: lookup postgres: %w", err)
	}

	obj := value.Object{}
	for i, col := range cols {
		obj[col] = normalizeSQLValue(vals[i])
	}
	return obj, true, nil
}

func normalizeSQLValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return t
	}
}

// buildDatasource constructs a Datasource from a lookup behavior's
// "datasource" config object: {"type": "csv"|"json"|"postgres", "path": ...,
// "table": ..., "keyColumn": ...}. db is the Pipeline's shared SQL
// connection, used only by the postgres type.
func buildDatasource(cfg map[string]interface{}, db *sql.DB) (Datasource, error) {
	kind, _ := cfg["type"].(string)
	keyCol, _ := cfg["keyColumn"].(string)
	switch kind {
	case "csv":
		path, _ := cfg["path"].(string)
		return newCSVDatasource(path, keyCol)
	case "json":
		path, _ := cfg["path"].(string)
		return newJSONDatasource(path, keyCol)
	case "postgres":
		table, _ := cfg["table"].(string)
		return newPostgresDatasource(db, table, keyCol)
	default:
		return nil, fmt.Errorf("pipeline: lookup: unknown datasource type %q", kind)
	}
}
