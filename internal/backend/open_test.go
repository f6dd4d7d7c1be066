/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cardcraft/internal/config"
	"cardcraft/internal/storage"
)

func TestOpenTemplateStore_SQLite(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "t.sqlite")
	st, err := OpenTemplateStore(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("OpenTemplateStore: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*storage.SQLiteStore); !ok {
		t.Fatalf("expected *storage.SQLiteStore, got %T", st)
	}
}

func TestOpenTemplateStore_Remote(t *testing.T) {
	ts, _ := newTestServer(t)
	cfg := config.Defaults()
	cfg.Storage.Backend = config.StoreRemote
	cfg.Backend.BaseURL = ts.URL
	cfg.Backend.TLSInsecure = true
	tok, err := SignToken("test-secret", "cli", time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	st, err := OpenTemplateStore(context.Background(), cfg, tok)
	if err != nil {
		t.Fatalf("OpenTemplateStore: %v", err)
	}
	defer st.Close()
	if err := st.Put(context.Background(), sampleTemplate("remote")); err != nil {
		t.Fatalf("Put via remote: %v", err)
	}
	list, err := st.List(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("List via remote: %+v %v", list, err)
	}
}

func TestOpenTemplateStore_Unknown(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Backend = "redis"
	if _, err := OpenTemplateStore(context.Background(), cfg, ""); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
