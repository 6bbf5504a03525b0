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

package msibi

import "github.com/zintix-labs/msibi/potential"

// Observer 在 Optimize 的關鍵時點收到快照。呼叫在 orchestrator 的 goroutine 上同步進行，
// 實作端若要跨 goroutine 讀取，需要自行保護（見 recorder 包）。
type Observer interface {
	OnStart(s Snapshot)
	OnIteration(s Snapshot)
	OnFinish(s Snapshot, err error)
}

// Snapshot 某一時點所有 active 勢能的狀態（深拷貝，可安全保存）
type Snapshot struct {
	Kind       potential.Kind      `json:"kind" yaml:"kind"`
	Iteration  int                 `json:"iteration" yaml:"iteration"`
	Start      int                 `json:"start" yaml:"start"`
	End        int                 `json:"end" yaml:"end"`
	Potentials []PotentialSnapshot `json:"potentials" yaml:"potentials"`
}

// PotentialSnapshot 單一勢能
type PotentialSnapshot struct {
	Name   string         `json:"name" yaml:"name"`
	Kind   potential.Kind `json:"kind" yaml:"kind"`
	Grid   []float64      `json:"grid" yaml:"grid"`
	Curve  []float64      `json:"curve" yaml:"curve"`
	States []StateFit     `json:"states" yaml:"states"`
}

// StateFit 單一 state 的擬合紀錄
type StateFit struct {
	State   string    `json:"state" yaml:"state"`
	Fit     float64   `json:"fit" yaml:"fit"`
	History []float64 `json:"history" yaml:"history"`
}

// MeanFit 各 state 最近一次相似度的平均
func (p PotentialSnapshot) MeanFit() float64 {
	if len(p.States) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range p.States {
		sum += s.Fit
	}
	return sum / float64(len(p.States))
}

func snapshotOf(p Potential) PotentialSnapshot {
	ps := PotentialSnapshot{
		Name:  p.Name(),
		Kind:  p.Kind(),
		Grid:  p.Grid(),
		Curve: p.Curve(),
	}
	for _, b := range p.Bindings() {
		if !b.HasTarget() {
			continue
		}
		fit, _ := b.LastFit()
		ps.States = append(ps.States, StateFit{
			State:   b.State.Name,
			Fit:     fit,
			History: append([]float64(nil), b.FitHistory...),
		})
	}
	return ps
}

type nopObserver struct{}

func (nopObserver) OnStart(Snapshot)         {}
func (nopObserver) OnIteration(Snapshot)     {}
func (nopObserver) OnFinish(Snapshot, error) {}
