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
	"os"
	"path/filepath"
	"testing"
)

func TestCSVDatasource_LookupByKeyColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.csv")
	if err := os.WriteFile(path, []byte("id,name\n1,Alice\n2,Bob\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	ds, err := newCSVDatasource(path, "id")
	if err != nil {
		t.Fatalf("newCSVDatasource: %v", err)
	}

	row, ok, err := ds.Lookup(context.Background(), "2")
	if err != nil || !ok {
		t.Fatalf("expected row for key 2, got ok=%v err=%v", ok, err)
	}
	if row["name"] != "Bob" {
		t.Fatalf("expected name=Bob, got %v", row["name"])
	}

	if _, ok, _ := ds.Lookup(context.Background(), "missing"); ok {
		t.Fatalf("expected no row for an absent key")
	}
}

func TestCSVDatasource_MissingKeyColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.csv")
	os.WriteFile(path, []byte("id,name\n1,Alice\n"), 0o644)

	if _, err := newCSVDatasource(path, "bogus"); err == nil {
		t.Fatalf("expected an error for an unknown key column")
	}
}

func TestJSONDatasource_LookupByKeyField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	body := `[{"id":"1","name":"Alice"},{"id":"2","name":"Bob"}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}

	ds, err := newJSONDatasource(path, "id")
	if err != nil {
		t.Fatalf("newJSONDatasource: %v", err)
	}

	row, ok, err := ds.Lookup(context.Background(), "1")
	if err != nil || !ok {
		t.Fatalf("expected row for key 1, got ok=%v err=%v", ok, err)
	}
	if row["name"] != "Alice" {
		t.Fatalf("expected name=Alice, got %v", row["name"])
	}
}

func TestBuildDatasource_UnknownType(t *testing.T) {
	if _, err := buildDatasource(map[string]interface{}{"type": "xml"}, nil); err == nil {
		t.Fatalf("expected an error for an unsupported datasource type")
	}
}

func TestBuildDatasource_PostgresRequiresDB(t *testing.T) {
	cfg := map[string]interface{}{"type": "postgres", "table": "users", "keyColumn": "id"}
	if _, err := buildDatasource(cfg, nil); err == nil {
		t.Fatalf("expected an error when no *sql.DB is configured")
	}
}

func TestPipeline_LookupDatasource_CachesByConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.csv")
	os.WriteFile(path, []byte("id,name\n1,Alice\n"), 0o644)

	p := &Pipeline{dsCache: make(map[string]Datasource)}
	cfg := map[string]interface{}{
		"datasource": map[string]interface{}{"type": "csv", "path": path, "keyColumn": "id"},
	}

	first, err := p.lookupDatasource(cfg)
	if err != nil {
		t.Fatalf("lookupDatasource: %v", err)
	}
	second, err := p.lookupDatasource(cfg)
	if err != nil {
		t.Fatalf("lookupDatasource: %v", err)
	}
	if first != second {
		t.Fatalf("expected the second call to return the cached datasource instance")
	}
}
