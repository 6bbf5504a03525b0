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

// Package recorder 記錄優化過程：最新快照、每輪的擬合分數與執行狀態。
//
// FitRecorder 實作 msibi.Observer；Optimize 在自己的 goroutine 上寫入，
// status server 等讀者透過讀鎖取得拷貝。
package recorder

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/msibi"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
)

// IterationRecord 一輪的擬合分數
type IterationRecord struct {
	Iteration int                   `json:"iteration" yaml:"iteration"`
	Fits      map[string][]StateFit `json:"fits" yaml:"fits"` // key: 勢能名稱
}

// StateFit 單一 state 在該輪的分數
type StateFit struct {
	State string  `json:"state" yaml:"state"`
	Fit   float64 `json:"fit" yaml:"fit"`
}

// Status 執行狀態
type Status struct {
	Kind      potential.Kind `json:"kind" yaml:"kind"`
	Iteration int            `json:"iteration" yaml:"iteration"`
	Start     int            `json:"start" yaml:"start"`
	End       int            `json:"end" yaml:"end"`
	Running   bool           `json:"running" yaml:"running"`
	Err       string         `json:"err,omitempty" yaml:"err,omitempty"`
	Elapsed   time.Duration  `json:"elapsed" yaml:"elapsed"`
}

// FitRecorder 執行緒安全的 Observer
type FitRecorder struct {
	mu      sync.RWMutex
	latest  msibi.Snapshot
	history []IterationRecord
	started time.Time
	ended   time.Time
	running bool
	err     string
}

var _ msibi.Observer = (*FitRecorder)(nil)

func NewFitRecorder() *FitRecorder {
	return &FitRecorder{}
}

// OnStart 新的 Optimize 開始時清掉前一次的紀錄
func (r *FitRecorder) OnStart(s msibi.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = s
	r.history = r.history[:0]
	r.started = time.Now()
	r.ended = time.Time{}
	r.running = true
	r.err = ""
}

func (r *FitRecorder) OnIteration(s msibi.Snapshot) {
	rec := IterationRecord{Iteration: s.Iteration, Fits: make(map[string][]StateFit, len(s.Potentials))}
	for _, p := range s.Potentials {
		fits := make([]StateFit, 0, len(p.States))
		for _, st := range p.States {
			fits = append(fits, StateFit{State: st.State, Fit: st.Fit})
		}
		rec.Fits[p.Name] = fits
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = s
	r.history = append(r.history, rec)
}

func (r *FitRecorder) OnFinish(s msibi.Snapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = s
	r.running = false
	r.ended = time.Now()
	if err != nil {
		r.err = err.Error()
	}
}

// Latest 最新快照（唯讀，不要修改其中的 slice）
func (r *FitRecorder) Latest() msibi.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Potential 依名稱取最新快照中的勢能
func (r *FitRecorder) Potential(name string) (msibi.PotentialSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.latest.Potentials {
		if p.Name == name {
			return p, true
		}
	}
	return msibi.PotentialSnapshot{}, false
}

// History 每輪紀錄的拷貝
func (r *FitRecorder) History() []IterationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]IterationRecord(nil), r.history...)
}

func (r *FitRecorder) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Status{
		Kind:      r.latest.Kind,
		Iteration: r.latest.Iteration,
		Start:     r.latest.Start,
		End:       r.latest.End,
		Running:   r.running,
		Err:       r.err,
	}
	switch {
	case r.started.IsZero():
	case r.running:
		st.Elapsed = time.Since(r.started)
	default:
		st.Elapsed = r.ended.Sub(r.started)
	}
	return st
}

// SaveHistory 以 zstd 壓縮的 JSON 寫出每輪紀錄
func (r *FitRecorder) SaveHistory(w io.Writer) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return errs.Wrap(err, "recorder: zstd writer")
	}
	if err := json.NewEncoder(enc).Encode(r.History()); err != nil {
		enc.Close()
		return errs.Wrap(err, "recorder: encode history")
	}
	if err := enc.Close(); err != nil {
		return errs.Wrap(err, "recorder: flush history")
	}
	return nil
}

// SaveHistoryFile 寫到 path（通常是 potentials/history.json.zst）
func (r *FitRecorder) SaveHistoryFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(err, "recorder: create dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "recorder: create history file")
	}
	if err := r.SaveHistory(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadHistory 讀回 SaveHistory 的輸出
func LoadHistory(rd io.Reader) ([]IterationRecord, error) {
	dec, err := zstd.NewReader(rd)
	if err != nil {
		return nil, errs.WrapData(err, "recorder: zstd reader")
	}
	defer dec.Close()
	var out []IterationRecord
	if err := json.NewDecoder(dec).Decode(&out); err != nil {
		return nil, errs.WrapData(err, "recorder: decode history")
	}
	return out, nil
}
