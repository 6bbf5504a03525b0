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

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/msibi/engine"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
)

// Options 與優化種類相關的選項；大多只對 pairs 有意義。
type Options struct {
	RSwitch       float64            `json:"r_switch" yaml:"r_switch"` // 0 使用網格倒數第五點
	Smooth        bool               `json:"smooth" yaml:"smooth"`     // Savitzky-Golay 平滑 target 與 current
	SGWindow      int                `json:"sg_window" yaml:"sg_window"`
	SGOrder       int                `json:"sg_order" yaml:"sg_order"`
	ExcludeBonded bool               `json:"exclude_bonded" yaml:"exclude_bonded"`
	Head          potential.HeadForm `json:"head" yaml:"head"`
	Zero          ZeroPolicy         `json:"-" yaml:"-"`
	StrictStatic  bool               `json:"strict_static" yaml:"strict_static"` // active kind 內有 static 勢能時直接報 Config 錯誤
}

// DefaultPairOptions pairs 的預設：平滑、排除鍵結粒子對、線性 head 修正
func DefaultPairOptions() Options {
	return Options{Smooth: true, ExcludeBonded: true, Head: potential.HeadLinear}
}

// Request 一次 Optimize
type Request struct {
	Kind       potential.Kind
	Iterations int
	Start      int // > 0 時從磁碟上的表格恢復
	Options
}

func (s *Session) OptimizeBonds(ctx context.Context, iterations, start int) error {
	return s.Optimize(ctx, Request{Kind: potential.Bond, Iterations: iterations, Start: start})
}

func (s *Session) OptimizeAngles(ctx context.Context, iterations, start int) error {
	return s.Optimize(ctx, Request{Kind: potential.Angle, Iterations: iterations, Start: start})
}

func (s *Session) OptimizePairs(ctx context.Context, iterations, start int, opts Options) error {
	return s.Optimize(ctx, Request{Kind: potential.Pair, Iterations: iterations, Start: start, Options: opts})
}

// Optimize 執行 iterations 次 MS-IBI，範圍為 [Start, Start+Iterations)。
// 任何錯誤都會立即中止；已寫出的表格留在磁碟上，可用 Start 接續。
func (s *Session) Optimize(ctx context.Context, req Request) (err error) {
	if !s.running.CompareAndSwap(false, true) {
		return errs.Configf("session: optimize already running")
	}
	defer s.running.Store(false)

	env, active, err := s.prepare(ctx, req)
	if err != nil {
		return err
	}
	jobs, err := s.writeScripts()
	if err != nil {
		return err
	}

	end := req.Start + req.Iterations
	s.iter.Store(int64(req.Start))
	s.obs.OnStart(s.snapshot(active, req.Start, req.Start, end))
	defer func() {
		s.obs.OnFinish(s.snapshot(active, s.Iteration(), req.Start, end), err)
	}()

	s.log.Info("optimize start",
		"kind", req.Kind.Plural(),
		"start", req.Start,
		"iterations", req.Iterations,
		"states", len(s.states),
		"potentials", len(active),
	)

	bar := pb.New(req.Iterations)
	if !s.showpb {
		bar.SetWriter(io.Discard)
	}
	bar.Start()
	defer bar.Finish()

	for it := req.Start; it < end; it++ {
		s.iter.Store(int64(it))
		t0 := time.Now()
		if err := s.pool.RunAll(ctx, jobs); err != nil {
			return errs.WrapWithExtra(err, "session: iteration aborted", fmt.Sprintf("iteration=%d", it))
		}
		for _, m := range active {
			if err := s.step(ctx, env, m, it); err != nil {
				return errs.WrapWithExtra(err, "session: iteration aborted", fmt.Sprintf("iteration=%d potential=%s", it, m.Name()))
			}
		}
		s.obs.OnIteration(s.snapshot(active, it, req.Start, end))
		s.log.Info("iteration done", "iteration", it, "elapsed", time.Since(t0).Round(time.Millisecond))
		bar.Increment()
	}
	s.log.Info("optimize done", "kind", req.Kind.Plural(), "end", end)
	return nil
}

// prepare 檢查請求、重新綁定、寫出初始表格
func (s *Session) prepare(ctx context.Context, req Request) (*Env, []member, error) {
	if req.Iterations < 1 {
		return nil, nil, errs.Configf("session: iterations must be >= 1, got %d", req.Iterations)
	}
	if req.Start < 0 {
		return nil, nil, errs.Configf("session: start iteration must be >= 0, got %d", req.Start)
	}
	if len(s.states) == 0 {
		return nil, nil, errs.Configf("session: no state added")
	}
	var active []member
	for _, m := range s.members {
		if m.Kind() != req.Kind {
			continue
		}
		if m.IsStatic() {
			if req.StrictStatic {
				return nil, nil, errs.Configf("session: %s %s is static and cannot be optimized", m.Kind(), m.Name())
			}
			s.log.Warn("static potential held fixed", "kind", m.Kind().String(), "name", m.Name())
			continue
		}
		active = append(active, m)
	}
	if len(active) == 0 {
		return nil, nil, errs.Configf("session: no table %s to optimize", req.Kind.Plural())
	}

	env := &Env{
		Active:        req.Kind,
		Sampler:       s.sampler,
		Frames:        s.params.MaxFrames,
		ExcludeBonded: req.ExcludeBonded,
		Smooth:        req.Smooth,
		SGWindow:      req.SGWindow,
		SGOrder:       req.SGOrder,
		Zero:          req.Zero,
		RSwitch:       req.RSwitch,
		Head:          req.Head,
	}
	if req.Kind == potential.Pair {
		for _, m := range active {
			if _, err := pairRSwitch(env, m.Grid()); err != nil {
				return nil, nil, errs.WrapWithExtra(err, "session: pair "+m.Name(), "r_switch")
			}
		}
	}

	s.active = req.Kind
	for _, m := range s.members {
		m.core().reset()
		for _, st := range s.states {
			if err := m.core().bind(ctx, env, st); err != nil {
				return nil, nil, err
			}
		}
	}

	for _, m := range s.members {
		c := m.core()
		if c.table == nil {
			continue
		}
		if err := c.setFile(s.potDir); err != nil {
			return nil, nil, err
		}
		if m.Kind() != req.Kind {
			// 非 active 的 pair 表格同樣要在截斷處歸零後才交給引擎
			if c.post != nil {
				v, err := c.post(env, c.table.grid, c.table.v)
				if err != nil {
					return nil, nil, errs.Wrap(err, c.label()+": correct fixed potential")
				}
				c.table.v = v
			}
			if err := c.writeTable(-1, s.withForce); err != nil {
				return nil, nil, err
			}
			continue
		}
		if req.Start > 0 {
			if err := c.loadCheckpoint(req.Start); err != nil {
				return nil, nil, err
			}
			s.log.Info("resumed from table", "name", m.Name(), "step", req.Start)
		} else if c.post != nil {
			v, err := c.post(env, c.table.grid, c.table.v)
			if err != nil {
				return nil, nil, errs.Wrap(err, c.label()+": correct initial potential")
			}
			c.table.v = v
		}
		if err := c.writeTable(req.Start, s.withForce); err != nil {
			return nil, nil, err
		}
	}
	return env, active, nil
}

// writeScripts 每個 State 寫一份 run script；一次 Optimize 只寫一次。
func (s *Session) writeScripts() ([]engine.Job, error) {
	ds := make([]engine.Descriptor, 0, len(s.members))
	for _, m := range s.members {
		ds = append(ds, m.Descriptor())
	}
	jobs := make([]engine.Job, 0, len(s.states))
	for _, st := range s.states {
		if err := os.MkdirAll(st.Dir, 0o755); err != nil {
			return nil, errs.Wrap(err, "session: create state dir "+st.Dir)
		}
		job := engine.Job{
			State:     st.Name,
			Dir:       st.Dir,
			KT:        st.KT,
			InitTraj:  st.TargetTraj,
			QueryTraj: st.QueryTraj,
		}
		path, err := s.script.Write(job, s.params, ds)
		if err != nil {
			return nil, errs.WrapWithExtra(err, "session: write run script", "state="+st.Name)
		}
		job.Script = path
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// step 一個勢能的一次更新：先重算所有 state，再更新、寫診斷與表格。
func (s *Session) step(ctx context.Context, env *Env, m member, it int) error {
	c := m.core()
	for _, b := range c.Bindings() {
		if !b.HasTarget() {
			continue
		}
		if err := c.recompute(ctx, env, b.State); err != nil {
			return err
		}
	}
	if err := c.update(env); err != nil {
		return err
	}
	c.recordFits()
	for _, b := range c.Bindings() {
		if !b.HasTarget() {
			continue
		}
		if _, err := c.persistCurrent(b.State, it); err != nil {
			return err
		}
		fit, _ := b.LastFit()
		s.log.Info("fit",
			"iteration", it,
			"kind", m.Kind().String(),
			"potential", m.Name(),
			"state", b.State.Name,
			"fit", fit,
		)
	}
	return c.writeTable(it+1, s.withForce)
}

func (s *Session) snapshot(active []member, it, start, end int) Snapshot {
	snap := Snapshot{Kind: s.active, Iteration: it, Start: start, End: end}
	for _, m := range active {
		snap.Potentials = append(snap.Potentials, snapshotOf(m))
	}
	return snap
}

// PotentialsDir 表格輸出目錄（絕對路徑）
func (s *Session) PotentialsDir() string {
	p, err := filepath.Abs(s.potDir)
	if err != nil {
		return s.potDir
	}
	return p
}
