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
	"crypto/tls"
	"fmt"
	"net/http"

	"cardcraft/internal/config"
	"cardcraft/internal/storage"
)

// OpenTemplateStore opens the template store selected by cfg.Storage.Backend.
// token authenticates the remote backend and is ignored otherwise.
func OpenTemplateStore(ctx context.Context, cfg config.AppConfig, token string) (storage.TemplateStore, error) {
	switch cfg.Storage.Backend {
	case "", config.StoreSQLite:
		p, err := cfg.Storage.ResolvedSQLitePath()
		if err != nil {
			return nil, err
		}
		return storage.OpenSQLite(ctx, p, storage.WithQuota(cfg.Storage.QuotaBytes))
	case config.StorePostgres:
		return OpenPG(ctx, cfg.Storage.PostgresDSN, cfg.Storage.QuotaBytes)
	case config.StoreRemote:
		hc := &http.Client{Timeout: cfg.Backend.Timeout()}
		if cfg.Backend.TLSInsecure {
			tr := http.DefaultTransport.(*http.Transport).Clone()
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed dev servers
			hc.Transport = tr
		}
		return NewClient(cfg.Backend.BaseURL, token).WithHTTPClient(hc), nil
	default:
		return nil, fmt.Errorf("unknown template store %q", cfg.Storage.Backend)
	}
}
