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

// Package msibi 實作 Multistate Iterative Boltzmann Inversion（MS-IBI）的優化核心。
//
// 一個 Session 持有多個 State（模擬條件）與多個勢能（Bond / Angle / Pair），
// 每次 Optimize 只會優化其中一種勢能：
//  1. 把所有 State 綁到所有勢能上；active kind 的表格勢能計算並凍結 target 分布。
//  2. 寫出初始表格與每個 State 的 run script。
//  3. 每個 iteration：並行執行各 State 的查詢模擬（barrier），
//     重算 current 分布，以多狀態 Boltzmann inversion 更新曲線並寫回表格。
//
// 分布取樣、查詢模擬與 run script 都是外部協作者，透過 dist.Sampler、
// engine.Runner 與 engine.ScriptWriter 注入。
//
// 典型使用：
//
//	s, _ := msibi.New(params, msibi.WithLogger(log))
//	a, _ := msibi.NewState("A", 1.0, "A/target.gsd", 1.0)
//	_ = s.AddState(a)
//	ab, _ := msibi.NewTableBond("A", "B", potential.Quartic{X0: 1, K2: 100}, 0, 3, 150)
//	_ = s.AddBond(ab)
//	err := s.OptimizeBonds(ctx, 10, 0)
package msibi

import (
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/zintix-labs/msibi/dist"
	"github.com/zintix-labs/msibi/engine"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/hist"
	"github.com/zintix-labs/msibi/logger"
	"github.com/zintix-labs/msibi/potential"
)

// 預設目錄（相對於工作目錄）
const (
	DefaultPotentialsDir = "potentials"
	DefaultStatesDir     = "states"
)

// Session 一次優化流程的上下文。同一個 Session 同時間只能有一個 Optimize 在跑。
type Session struct {
	params    engine.Params
	log       *slog.Logger
	sampler   dist.Sampler
	runner    engine.Runner
	script    engine.ScriptWriter
	workers   int
	showpb    bool
	obs       Observer
	potDir    string
	stateDir  string
	withForce bool

	states  []*State
	byState map[string]*State
	members []member
	byName  map[string]member

	pool    *QueryPool
	running atomic.Bool
	active  potential.Kind
	iter    atomic.Int64
}

// Option 設定 Session
type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSampler 注入分布取樣器（預設讀取文字樣本檔的直方圖取樣器）
func WithSampler(d dist.Sampler) Option {
	return func(s *Session) { s.sampler = d }
}

// WithRunner 注入查詢模擬的執行者（預設以 python3 執行 run script）
func WithRunner(r engine.Runner) Option {
	return func(s *Session) { s.runner = r }
}

func WithScriptWriter(w engine.ScriptWriter) Option {
	return func(s *Session) { s.script = w }
}

// WithWorkers 同時執行的查詢模擬數上限
func WithWorkers(n int) Option {
	return func(s *Session) { s.workers = n }
}

func WithProgressBar(show bool) Option {
	return func(s *Session) { s.showpb = show }
}

func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.obs = o
		}
	}
}

// WithPotentialsDir 表格勢能的輸出目錄
func WithPotentialsDir(dir string) Option {
	return func(s *Session) { s.potDir = dir }
}

// WithStatesDir 各 State 工作目錄的上層目錄
func WithStatesDir(dir string) Option {
	return func(s *Session) { s.stateDir = dir }
}

// WithTableForce 表格多寫一欄 F = -dV/dx
func WithTableForce(on bool) Option {
	return func(s *Session) { s.withForce = on }
}

// New 建立 Session；模擬參數（含 integrator）在這裡就檢查。
func New(params engine.Params, opts ...Option) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		params:   params,
		log:      logger.Discard(),
		workers:  runtime.NumCPU(),
		obs:      nopObserver{},
		potDir:   DefaultPotentialsDir,
		stateDir: DefaultStatesDir,
		byState:  map[string]*State{},
		byName:   map[string]member{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sampler == nil {
		hs, err := hist.New(hist.TextSource{})
		if err != nil {
			return nil, err
		}
		s.sampler = hs
	}
	switch r := s.runner.(type) {
	case nil:
		s.runner = &engine.ExecRunner{Log: s.log}
	case *engine.ExecRunner:
		if r.Log == nil {
			r.Log = s.log
		}
	}
	if s.script == nil {
		s.script = engine.HoomdScript{}
	}
	s.pool = newQueryPool(s.runner, s.workers)
	return s, nil
}

// Params 模擬參數
func (s *Session) Params() engine.Params { return s.params }

// AddState 註冊 State。綁定延後到每次 Optimize 才做，所以先加勢能或先加 State 都可以。
func (s *Session) AddState(st *State) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if st == nil {
		return errs.Configf("session: nil state")
	}
	if err := st.Validate(); err != nil {
		return err
	}
	if _, dup := s.byState[st.Name]; dup {
		return errs.Configf("session: state %q already added", st.Name)
	}
	if err := st.resolve(s.stateDir); err != nil {
		return err
	}
	s.states = append(s.states, st)
	s.byState[st.Name] = st
	return nil
}

func (s *Session) AddBond(b *Bond) error {
	if b == nil {
		return errs.Configf("session: nil bond")
	}
	return s.add(b)
}

func (s *Session) AddAngle(a *Angle) error {
	if a == nil {
		return errs.Configf("session: nil angle")
	}
	return s.add(a)
}

func (s *Session) AddPair(p *Pair) error {
	if p == nil {
		return errs.Configf("session: nil pair")
	}
	return s.add(p)
}

// add 同一種類同一組 labels 只能有一個勢能
func (s *Session) add(m member) error {
	if err := s.mutable(); err != nil {
		return err
	}
	key := m.Kind().String() + ":" + m.Name()
	if _, dup := s.byName[key]; dup {
		return errs.Configf("session: %s %s already added", m.Kind(), m.Name())
	}
	s.members = append(s.members, m)
	s.byName[key] = m
	return nil
}

func (s *Session) mutable() error {
	if s.running.Load() {
		return errs.Configf("session: cannot modify while optimizing")
	}
	return nil
}

// States 依加入順序
func (s *Session) States() []*State {
	return append([]*State(nil), s.states...)
}

// Potentials 依加入順序
func (s *Session) Potentials() []Potential {
	out := make([]Potential, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	return out
}

// Potential 以種類與名稱查詢；名稱會先正規化
func (s *Session) Potential(kind potential.Kind, types ...string) (Potential, bool) {
	name, err := CanonicalName(kind, types...)
	if err != nil {
		return nil, false
	}
	m, ok := s.byName[kind.String()+":"+name]
	return m, ok
}

// Iteration 目前（或最後一次）執行中的 iteration
func (s *Session) Iteration() int { return int(s.iter.Load()) }

// Running 是否正在 Optimize
func (s *Session) Running() bool { return s.running.Load() }

// PoolMetrics 查詢模擬池的觀測快照
func (s *Session) PoolMetrics() QueryPoolMetrics { return s.pool.Metrics() }
