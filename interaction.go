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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/msibi/dist"
	"github.com/zintix-labs/msibi/engine"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
)

// Potential 對外公開的勢能操作（Bond / Angle / Pair 共用）。
type Potential interface {
	Kind() potential.Kind
	Name() string
	Types() []string
	IsStatic() bool
	Grid() []float64
	Curve() []float64
	Previous() []float64
	Spacing() float64
	File() string
	Bindings() []*Binding
	Binding(state string) (*Binding, bool)
	Descriptor() engine.Descriptor
	Update() error
}

// member Session 內部使用的操作
type member interface {
	Potential
	core() *interaction
}

// table 可優化的表格勢能：網格固定，曲線只會被 update 整條替換。
type table struct {
	grid []float64
	dx   float64
	v    []float64
	prev []float64
	file string
}

// correction update 之後、寫回曲線之前的修正（pair 的 tail / head）
type correction func(env *Env, r, v []float64) ([]float64, error)

// interaction Bond / Angle / Pair 的共同核心。
// 型式（static 或 table）在建構時決定，之後不會改變。
type interaction struct {
	kind     potential.Kind
	types    []string
	name     string
	static   *engine.Descriptor
	table    *table
	post     correction
	bindings map[string]*Binding
	order    []string
}

func newInteraction(kind potential.Kind, types []string) (*interaction, error) {
	ts, err := canonical(kind, types)
	if err != nil {
		return nil, err
	}
	return &interaction{
		kind:     kind,
		types:    ts,
		name:     strings.Join(ts, "-"),
		bindings: map[string]*Binding{},
	}, nil
}

func (i *interaction) withStatic(form engine.Form, coeffs ...engine.Coeff) {
	i.static = &engine.Descriptor{Kind: i.kind, Types: i.types, Form: form, Coeffs: coeffs}
}

func (i *interaction) withTable(grid []float64, dx float64, v []float64) error {
	if len(grid) != len(v) {
		return errs.Dataf("%s %s: grid len %d != potential len %d", i.kind, i.name, len(grid), len(v))
	}
	i.table = &table{grid: grid, dx: dx, v: v}
	return nil
}

func (i *interaction) core() *interaction { return i }

func (i *interaction) Kind() potential.Kind { return i.kind }
func (i *interaction) Name() string         { return i.name }
func (i *interaction) IsStatic() bool       { return i.table == nil }

func (i *interaction) Types() []string {
	return append([]string(nil), i.types...)
}

func (i *interaction) Grid() []float64 {
	if i.table == nil {
		return nil
	}
	return append([]float64(nil), i.table.grid...)
}

func (i *interaction) Curve() []float64 {
	if i.table == nil {
		return nil
	}
	return append([]float64(nil), i.table.v...)
}

func (i *interaction) Previous() []float64 {
	if i.table == nil {
		return nil
	}
	return append([]float64(nil), i.table.prev...)
}

func (i *interaction) Spacing() float64 {
	if i.table == nil {
		return 0
	}
	return i.table.dx
}

func (i *interaction) File() string {
	if i.table == nil {
		return ""
	}
	return i.table.file
}

func (i *interaction) Binding(state string) (*Binding, bool) {
	b, ok := i.bindings[state]
	return b, ok
}

// Bindings 依綁定順序回傳
func (i *interaction) Bindings() []*Binding {
	out := make([]*Binding, 0, len(i.order))
	for _, name := range i.order {
		out = append(out, i.bindings[name])
	}
	return out
}

// Descriptor 給 run script 使用的描述
func (i *interaction) Descriptor() engine.Descriptor {
	if i.static != nil {
		return *i.static
	}
	return engine.Descriptor{
		Kind:  i.kind,
		Types: i.types,
		Form:  engine.Table,
		File:  i.table.file,
		Width: len(i.table.grid),
	}
}

func (i *interaction) label() string {
	return fmt.Sprintf("%s %s", i.kind, i.name)
}

// reset 清掉上一輪 Optimize 留下的綁定與快照
func (i *interaction) reset() {
	i.bindings = map[string]*Binding{}
	i.order = i.order[:0]
	if i.table != nil {
		i.table.prev = nil
	}
}

func (i *interaction) request(env *Env, path string, bins int) dist.Request {
	t := i.table
	return dist.Request{
		Path:          path,
		Kind:          i.kind,
		Types:         i.types,
		Frames:        env.Frames,
		Bins:          bins,
		Lo:            t.grid[0],
		Hi:            t.grid[len(t.grid)-1],
		Spacing:       t.dx,
		ExcludeBonded: env.ExcludeBonded,
	}
}

// sample 呼叫取樣器並檢查形狀；需要時先平滑
func (i *interaction) sample(ctx context.Context, env *Env, s *State, path string, bins int) (*dist.Distribution, error) {
	if path == "" {
		return nil, errs.Dataf("%s: state %s has no trajectory", i.label(), s.Name)
	}
	if env.Sampler == nil {
		return nil, errs.Configf("%s: no distribution sampler", i.label())
	}
	d, err := env.Sampler.Sample(ctx, i.request(env, path, bins))
	if err != nil {
		return nil, errs.WrapWithExtra(err, i.label()+": sample distribution", "state="+s.Name)
	}
	if err := d.Validate(); err != nil {
		return nil, errs.WrapWithExtra(err, i.label()+": invalid distribution", "state="+s.Name)
	}
	if env.Smooth {
		y, err := env.smooth(d.Y)
		if err != nil {
			return nil, err
		}
		d = &dist.Distribution{X: d.X, Y: y}
	}
	return d, nil
}

// bind 建立與 state 的關聯。只有 active kind 的 table 勢能會計算 target。
func (i *interaction) bind(ctx context.Context, env *Env, s *State) error {
	b := &Binding{State: s, Alpha: s.Alpha, AlphaForm: s.alphaForm(i.kind)}
	if i.table != nil && env.Active == i.kind {
		d, err := i.sample(ctx, env, s, s.TargetTraj, dist.BinsAuto)
		if err != nil {
			return err
		}
		if d.Len() != len(i.table.grid) {
			return errs.Dataf("%s: target of state %s has %d bins, grid has %d points", i.label(), s.Name, d.Len(), len(i.table.grid))
		}
		b.Target = d
		b.NBins = d.Len()
	}
	if _, ok := i.bindings[s.Name]; !ok {
		i.order = append(i.order, s.Name)
	}
	i.bindings[s.Name] = b
	return nil
}

// recompute 以查詢軌跡重算 current，bin 數沿用綁定時凍結的值；分數由 recordFits 記錄。
func (i *interaction) recompute(ctx context.Context, env *Env, s *State) error {
	b, ok := i.bindings[s.Name]
	if !ok || !b.HasTarget() {
		return errs.Configf("%s: state %s is not bound with a target", i.label(), s.Name)
	}
	d, err := i.sample(ctx, env, s, s.QueryTraj, b.NBins)
	if err != nil {
		return err
	}
	if d.Len() != b.NBins {
		return errs.Dataf("%s: current of state %s has %d bins, want %d", i.label(), s.Name, d.Len(), b.NBins)
	}
	usable := 0
	for x := range d.Y {
		c, t := d.Y[x], b.Target.Y[x]
		if c > 0 && t > 0 {
			usable++
			continue
		}
		if env.Zero == ZeroStrict {
			return errs.Dataf("%s: state %s has non-positive density at x=%g (current=%g target=%g)", i.label(), s.Name, b.Target.X[x], c, t)
		}
	}
	if usable == 0 {
		return errs.Dataf("%s: current distribution of state %s has no overlap with its target", i.label(), s.Name)
	}
	b.Current = d
	return nil
}

// recordFits update 成功後才記下各 state 的分數，失敗的 iteration 不留紀錄。
func (i *interaction) recordFits() {
	for _, name := range i.order {
		b := i.bindings[name]
		if !b.HasTarget() || b.Current == nil {
			continue
		}
		b.FitHistory = append(b.FitHistory, potential.Similarity(b.Current.Y, b.Target.Y))
	}
}

// Update 以預設參數執行一次多狀態 Boltzmann inversion
func (i *interaction) Update() error {
	return i.update(&Env{Active: i.kind})
}

// update 多狀態 Boltzmann inversion：
//
//	V(x) += Σ_s alpha_s(x) · kT_s / N · ln(c_s(x) / t_s(x))
//
// N 為有 target 的 state 數。先算出新曲線，成功後才替換並保留舊曲線。
func (i *interaction) update(env *Env) error {
	if i.table == nil {
		return errs.Configf("%s is static and cannot be optimized", i.label())
	}
	t := i.table
	n := 0
	for _, b := range i.bindings {
		if b.HasTarget() {
			n++
		}
	}
	if n == 0 {
		return errs.Dataf("%s: no bound state with a target distribution", i.label())
	}

	next := append([]float64(nil), t.v...)
	for _, name := range i.order {
		b := i.bindings[name]
		if !b.HasTarget() {
			continue
		}
		if b.Current == nil {
			return errs.Dataf("%s: state %s has no current distribution", i.label(), name)
		}
		if b.Current.Len() != len(t.grid) || b.Target.Len() != len(t.grid) {
			return errs.Dataf("%s: state %s bins (current=%d target=%d) do not match grid (%d)",
				i.label(), name, b.Current.Len(), b.Target.Len(), len(t.grid))
		}
		alpha, err := potential.AlphaArray(b.Alpha, t.grid, b.AlphaForm)
		if err != nil {
			return err
		}
		w := b.State.KT / float64(n)
		usable := 0
		for x := range next {
			c, tg := b.Current.Y[x], b.Target.Y[x]
			if c <= 0 || tg <= 0 {
				if env.Zero == ZeroStrict {
					return errs.Dataf("%s: state %s has non-positive density at x=%g", i.label(), name, t.grid[x])
				}
				continue
			}
			next[x] += alpha[x] * w * math.Log(c/tg)
			usable++
		}
		if usable == 0 {
			return errs.Dataf("%s: state %s has no usable density for the update", i.label(), name)
		}
	}
	if i.post != nil {
		var err error
		if next, err = i.post(env, t.grid, next); err != nil {
			return errs.Wrap(err, i.label()+": correct updated potential")
		}
	}
	t.prev = t.v
	t.v = next
	return nil
}

// persistCurrent 寫出診斷用的 current 分布；x 平移 -dx/2 表示 bin 中心。
func (i *interaction) persistCurrent(s *State, step int) (string, error) {
	b, ok := i.bindings[s.Name]
	if !ok || b.Current == nil {
		return "", errs.Dataf("%s: state %s has no current distribution to persist", i.label(), s.Name)
	}
	d := b.Current.Shifted(-i.table.dx / 2)
	name := fmt.Sprintf("%s_pot_%s-state_%s-step_%d.txt", i.kind, i.name, s.Name, step)
	path := filepath.Join(s.Dir, name)
	if err := writeFile(path, func(w io.Writer) error {
		return potential.WriteTable(w, d.X, d.Y, 0, false)
	}); err != nil {
		return "", err
	}
	return path, nil
}

// tableName 表格檔名：{kind}_pot.{name}.txt
func (i *interaction) tableName() string {
	return fmt.Sprintf("%s_pot.%s.txt", i.kind, i.name)
}

// setFile 決定表格檔的位置（絕對路徑，run script 直接引用）
func (i *interaction) setFile(dir string) error {
	if i.table == nil {
		return nil
	}
	p, err := filepath.Abs(filepath.Join(dir, i.tableName()))
	if err != nil {
		return errs.Wrap(err, i.label()+": resolve table path")
	}
	i.table.file = p
	return nil
}

// writeTable 寫出目前曲線；step >= 0 時另存一份 step{n}.{kind}_pot.{name}.txt
func (i *interaction) writeTable(step int, withForce bool) error {
	t := i.table
	if t == nil || t.file == "" {
		return errs.Configf("%s: no table file to write", i.label())
	}
	write := func(w io.Writer) error {
		return potential.WriteTable(w, t.grid, t.v, t.dx, withForce)
	}
	if err := writeFile(t.file, write); err != nil {
		return err
	}
	if step < 0 {
		return nil
	}
	return writeFile(i.stepFile(step), write)
}

func (i *interaction) stepFile(step int) string {
	return filepath.Join(filepath.Dir(i.table.file), fmt.Sprintf("step%d.%s", step, i.tableName()))
}

// loadCheckpoint 從先前留下的表格恢復曲線：優先使用 step{n} 的副本，否則使用主檔。
func (i *interaction) loadCheckpoint(step int) error {
	t := i.table
	path := i.stepFile(step)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		path = t.file
	}
	f, err := os.Open(path)
	if err != nil {
		return errs.WrapData(err, i.label()+": open checkpoint table")
	}
	defer f.Close()
	_, v, err := potential.ReadTable(f)
	if err != nil {
		return errs.WrapData(err, i.label()+": read checkpoint table "+path)
	}
	if len(v) != len(t.grid) {
		return errs.Dataf("%s: checkpoint %s has %d rows, grid has %d points", i.label(), path, len(v), len(t.grid))
	}
	t.v = v
	return nil
}

func writeFile(path string, fn func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(err, "create dir for "+path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "create "+path)
	}
	if err := fn(f); err != nil {
		f.Close()
		return errs.Wrap(err, "write "+path)
	}
	return f.Close()
}
