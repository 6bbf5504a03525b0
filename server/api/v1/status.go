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

// Package v1 唯讀的優化進度 API
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zintix-labs/msibi"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/recorder"
	"github.com/zintix-labs/msibi/report"
	"github.com/zintix-labs/msibi/server/httperr"
	"github.com/zintix-labs/msibi/server/netsvr"
	"github.com/zintix-labs/msibi/server/svrcfg"
)

// StatusHandler 讀 FitRecorder（與可選的 Session）回應查詢
type StatusHandler struct {
	rec  *recorder.FitRecorder
	sess *msibi.Session
	log  *slog.Logger
}

func NewStatusHandler(sCfg *svrcfg.SvrCfg) (*StatusHandler, error) {
	if err := sCfg.Valid(); err != nil {
		return nil, err
	}
	return &StatusHandler{rec: sCfg.Recorder, sess: sCfg.Session, log: sCfg.Log}, nil
}

// StatusResp GET /v1/status
type StatusResp struct {
	Status recorder.Status         `json:"status"`
	Pool   *msibi.QueryPoolMetrics `json:"pool,omitempty"`
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResp{Status: h.rec.Status()}
	if h.sess != nil {
		m := h.sess.PoolMetrics()
		resp.Pool = &m
	}
	h.writeJSON(w, resp)
}

// Fit GET /v1/fit?format=json|yaml|text
func (h *StatusHandler) Fit(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	rd, ok := report.RenderFor(format)
	if !ok {
		httperr.Errs(w, errs.Configf("unknown report format %q", format))
		return
	}
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
	case "yaml", "yml":
		w.Header().Set("Content-Type", "application/yaml")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	if err := rd.Write(w, report.FromRecorder(h.rec)); err != nil {
		httperr.Log(h.log, "v1: write fit report", err)
	}
}

// Potentials GET /v1/potentials：最新快照中的勢能名稱
func (h *StatusHandler) Potentials(w http.ResponseWriter, r *http.Request) {
	snap := h.rec.Latest()
	names := make([]string, 0, len(snap.Potentials))
	for _, p := range snap.Potentials {
		names = append(names, p.Name)
	}
	h.writeJSON(w, names)
}

// Potential GET /v1/potentials/{name}：網格、目前曲線與各 state 分數
func (h *StatusHandler) Potential(w http.ResponseWriter, r *http.Request) {
	name := netsvr.URLParam(r, "name")
	p, ok := h.rec.Potential(name)
	if !ok {
		http.Error(w, "potential "+strconv.Quote(name)+" not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, p)
}

// History GET /v1/history?since=N
func (h *StatusHandler) History(w http.ResponseWriter, r *http.Request) {
	hist := h.rec.History()
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := strconv.Atoi(s)
		if err != nil {
			httperr.Errs(w, errs.Configf("since must be an integer, got %q", s))
			return
		}
		i := 0
		for i < len(hist) && hist[i].Iteration < since {
			i++
		}
		hist = hist[i:]
	}
	h.writeJSON(w, hist)
}

func (h *StatusHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		httperr.Log(h.log, "v1: encode response", err)
	}
}
