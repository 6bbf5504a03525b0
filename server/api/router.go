// Copyright 2025 Zintix Labs
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

// Package api 組裝狀態伺服器的 middleware 與路由
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chimid "github.com/go-chi/chi/v5/middleware"
	v1 "github.com/zintix-labs/msibi/server/api/v1"
	"github.com/zintix-labs/msibi/server/netsvr"
	"github.com/zintix-labs/msibi/server/netsvr/middleware"
	"github.com/zintix-labs/msibi/server/svrcfg"
)

// Routes 首頁列出的端點
var Routes = []string{
	"/v1/status",
	"/v1/fit",
	"/v1/potentials",
	"/v1/potentials/{name}",
	"/v1/history",
}

// RegisterRoutes 註冊 middleware、首頁與 v1 API
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	h, err := v1.NewStatusHandler(sCfg)
	if err != nil {
		return err
	}
	registerMiddleware(svr, sCfg.Log)
	svr.Get("/", index)
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/status", h.Status)
		vOne.Get("/fit", h.Fit)
		vOne.Get("/potentials", h.Potentials)
		vOne.Get("/potentials/{name}", h.Potential)
		vOne.Get("/history", h.History)
	})
	return nil
}

func registerMiddleware(svr netsvr.NetRouter, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(chimid.Recoverer)
	svr.Use(middleware.Compression)
}

func index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"service": "msibi", "routes": Routes})
}
