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

// Package spec 是 MS-IBI 執行設定（RunSetting）的 schema：
// 模擬參數、states、勢能與優化請求，解碼後驗證並組裝成 msibi.Session。
package spec

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/msibi"
	"github.com/zintix-labs/msibi/engine"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
)

// RunSetting 一次執行的完整設定
type RunSetting struct {
	Simulation engine.Params   `yaml:"simulation" json:"simulation"`
	Dirs       DirSetting      `yaml:"dirs" json:"dirs"`
	Workers    int             `yaml:"workers" json:"workers"`
	TableForce bool            `yaml:"table_force" json:"table_force"`
	Runner     RunnerSetting   `yaml:"runner" json:"runner"`
	States     []*msibi.State  `yaml:"states" json:"states"`
	Bonds      []BondSetting   `yaml:"bonds" json:"bonds"`
	Angles     []AngleSetting  `yaml:"angles" json:"angles"`
	Pairs      []PairSetting   `yaml:"pairs" json:"pairs"`
	Optimize   OptimizeSetting `yaml:"optimize" json:"optimize"`
}

// DirSetting 輸出目錄，留空使用預設
type DirSetting struct {
	Potentials string `yaml:"potentials" json:"potentials"`
	States     string `yaml:"states" json:"states"`
}

// RunnerSetting 查詢模擬的子行程
type RunnerSetting struct {
	Command []string `yaml:"command" json:"command"`
	Retries int      `yaml:"retries" json:"retries"`
}

// QuarticSetting 表格 bond / angle 的種子與網格
type QuarticSetting struct {
	potential.Quartic `yaml:",inline"`
	Min               float64 `yaml:"min" json:"min"`
	Max               float64 `yaml:"max" json:"max"`
	NPoints           int     `yaml:"n_points" json:"n_points"`
}

type HarmonicSetting struct {
	K  float64 `yaml:"k" json:"k"`
	X0 float64 `yaml:"x0" json:"x0"` // bond 為 l0，angle 為 theta0
}

type FENESetting struct {
	K       float64 `yaml:"k" json:"k"`
	R0      float64 `yaml:"r0" json:"r0"`
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`
	Sigma   float64 `yaml:"sigma" json:"sigma"`
}

// BondSetting 只能指定一種型式
type BondSetting struct {
	Types    []string         `yaml:"types" json:"types"`
	Harmonic *HarmonicSetting `yaml:"harmonic" json:"harmonic"`
	FENE     *FENESetting     `yaml:"fene" json:"fene"`
	Table    *QuarticSetting  `yaml:"table" json:"table"`
}

type AngleSetting struct {
	Types    []string         `yaml:"types" json:"types"`
	Harmonic *HarmonicSetting `yaml:"harmonic" json:"harmonic"`
	CosineSq *HarmonicSetting `yaml:"cosinesq" json:"cosinesq"`
	Table    *QuarticSetting  `yaml:"table" json:"table"`
}

type LJSetting struct {
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`
	Sigma   float64 `yaml:"sigma" json:"sigma"`
	RCut    float64 `yaml:"r_cut" json:"r_cut"`
}

// MieSetting 表格 pair 的種子與網格；m、n 留空為 12-6
type MieSetting struct {
	potential.Mie `yaml:",inline"`
	RMin          float64 `yaml:"r_min" json:"r_min"`
	RMax          float64 `yaml:"r_max" json:"r_max"`
	NPoints       int     `yaml:"n_points" json:"n_points"`
}

type PairSetting struct {
	Types []string    `yaml:"types" json:"types"`
	LJ    *LJSetting  `yaml:"lj" json:"lj"`
	Table *MieSetting `yaml:"table" json:"table"`
}

// OptimizeSetting 優化請求；pairs 未指定的布林值沿用 DefaultPairOptions
type OptimizeSetting struct {
	Kind          string  `yaml:"kind" json:"kind"`
	Iterations    int     `yaml:"iterations" json:"iterations"`
	Start         int     `yaml:"start" json:"start"`
	RSwitch       float64 `yaml:"r_switch" json:"r_switch"`
	Smooth        *bool   `yaml:"smooth" json:"smooth"`
	SGWindow      int     `yaml:"sg_window" json:"sg_window"`
	SGOrder       int     `yaml:"sg_order" json:"sg_order"`
	ExcludeBonded *bool   `yaml:"exclude_bonded" json:"exclude_bonded"`
	Head          string  `yaml:"head" json:"head"`
	Zero          string  `yaml:"zero" json:"zero"`
	StrictStatic  bool    `yaml:"strict_static" json:"strict_static"`
	HistoryFile   string  `yaml:"history_file" json:"history_file"`
}

// GetRunSettingByYAML 解碼、補預設並驗證
func GetRunSettingByYAML(data []byte) (*RunSetting, error) {
	rs := &RunSetting{}
	if err := DecodeYAML(data, rs); err != nil {
		return nil, err
	}
	if err := rs.init(); err != nil {
		return nil, errs.Wrap(err, "spec: run setting invalid")
	}
	return rs, nil
}

// GetRunSettingByJSON 同 GetRunSettingByYAML
func GetRunSettingByJSON(data []byte) (*RunSetting, error) {
	rs := &RunSetting{}
	if err := DecodeJSON(data, rs); err != nil {
		return nil, err
	}
	if err := rs.init(); err != nil {
		return nil, errs.Wrap(err, "spec: run setting invalid")
	}
	return rs, nil
}

// LoadFile 依副檔名選擇解碼方式（.json 以外都視為 YAML）
func LoadFile(path string) (*RunSetting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "spec: read "+path)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return GetRunSettingByJSON(data)
	}
	return GetRunSettingByYAML(data)
}

func (rs *RunSetting) init() error {
	if rs.Dirs.Potentials == "" {
		rs.Dirs.Potentials = msibi.DefaultPotentialsDir
	}
	if rs.Dirs.States == "" {
		rs.Dirs.States = msibi.DefaultStatesDir
	}
	if rs.Optimize.HistoryFile == "" {
		rs.Optimize.HistoryFile = filepath.Join(rs.Dirs.Potentials, "history.json.zst")
	}
	return rs.valid()
}

func (rs *RunSetting) valid() error {
	if err := rs.Simulation.Validate(); err != nil {
		return err
	}
	if len(rs.States) == 0 {
		return errs.Configf("spec: at least one state required")
	}
	for _, st := range rs.States {
		if st == nil {
			return errs.Configf("spec: empty state entry")
		}
		if err := st.Validate(); err != nil {
			return err
		}
	}
	if rs.Workers < 0 || rs.Runner.Retries < 0 {
		return errs.Configf("spec: workers and retries must be >= 0")
	}
	for i, b := range rs.Bonds {
		if n := countSet(b.Harmonic != nil, b.FENE != nil, b.Table != nil); n != 1 {
			return errs.Configf("spec: bonds[%d] %v must set exactly one of harmonic, fene, table (got %d)", i, b.Types, n)
		}
	}
	for i, a := range rs.Angles {
		if n := countSet(a.Harmonic != nil, a.CosineSq != nil, a.Table != nil); n != 1 {
			return errs.Configf("spec: angles[%d] %v must set exactly one of harmonic, cosinesq, table (got %d)", i, a.Types, n)
		}
	}
	for i, p := range rs.Pairs {
		if n := countSet(p.LJ != nil, p.Table != nil); n != 1 {
			return errs.Configf("spec: pairs[%d] %v must set exactly one of lj, table (got %d)", i, p.Types, n)
		}
	}
	_, err := rs.Request()
	return err
}

func countSet(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

// Request 轉成 msibi.Request
func (rs *RunSetting) Request() (msibi.Request, error) {
	o := rs.Optimize
	kind, err := potential.ParseKind(o.Kind)
	if err != nil {
		return msibi.Request{}, err
	}
	if o.Iterations < 1 {
		return msibi.Request{}, errs.Configf("spec: optimize.iterations must be >= 1, got %d", o.Iterations)
	}
	zero, err := msibi.ParseZeroPolicy(o.Zero)
	if err != nil {
		return msibi.Request{}, err
	}
	opts := msibi.Options{}
	if kind == potential.Pair {
		opts = msibi.DefaultPairOptions()
	}
	if o.Smooth != nil {
		opts.Smooth = *o.Smooth
	}
	if o.ExcludeBonded != nil {
		opts.ExcludeBonded = *o.ExcludeBonded
	}
	switch potential.HeadForm(o.Head) {
	case "":
	case potential.HeadLinear, potential.HeadExponential:
		opts.Head = potential.HeadForm(o.Head)
	default:
		return msibi.Request{}, errs.Configf("spec: optimize.head %q not supported: want linear or exponential", o.Head)
	}
	opts.RSwitch = o.RSwitch
	opts.SGWindow = o.SGWindow
	opts.SGOrder = o.SGOrder
	opts.Zero = zero
	opts.StrictStatic = o.StrictStatic
	return msibi.Request{Kind: kind, Iterations: o.Iterations, Start: o.Start, Options: opts}, nil
}

// Build 組裝 Session：加入 states 與所有勢能。呼叫端的 options 會覆蓋設定檔的值。
func (rs *RunSetting) Build(opts ...msibi.Option) (*msibi.Session, error) {
	base := []msibi.Option{
		msibi.WithPotentialsDir(rs.Dirs.Potentials),
		msibi.WithStatesDir(rs.Dirs.States),
		msibi.WithTableForce(rs.TableForce),
	}
	if rs.Workers > 0 {
		base = append(base, msibi.WithWorkers(rs.Workers))
	}
	if len(rs.Runner.Command) > 0 || rs.Runner.Retries > 0 {
		base = append(base, msibi.WithRunner(&engine.ExecRunner{Command: rs.Runner.Command, Retries: rs.Runner.Retries}))
	}
	s, err := msibi.New(rs.Simulation, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	for _, st := range rs.States {
		c := *st
		if err := s.AddState(&c); err != nil {
			return nil, err
		}
	}
	for _, b := range rs.Bonds {
		bond, err := b.build()
		if err != nil {
			return nil, err
		}
		if err := s.AddBond(bond); err != nil {
			return nil, err
		}
	}
	for _, a := range rs.Angles {
		angle, err := a.build()
		if err != nil {
			return nil, err
		}
		if err := s.AddAngle(angle); err != nil {
			return nil, err
		}
	}
	for _, p := range rs.Pairs {
		pair, err := p.build()
		if err != nil {
			return nil, err
		}
		if err := s.AddPair(pair); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (b BondSetting) build() (*msibi.Bond, error) {
	if len(b.Types) != 2 {
		return nil, errs.Configf("spec: bond needs 2 types, got %v", b.Types)
	}
	t1, t2 := b.Types[0], b.Types[1]
	switch {
	case b.Harmonic != nil:
		return msibi.NewHarmonicBond(t1, t2, b.Harmonic.K, b.Harmonic.X0)
	case b.FENE != nil:
		f := b.FENE
		return msibi.NewFENEBond(t1, t2, f.K, f.R0, f.Epsilon, f.Sigma)
	default:
		q := b.Table
		return msibi.NewTableBond(t1, t2, q.Quartic, q.Min, q.Max, q.NPoints)
	}
}

func (a AngleSetting) build() (*msibi.Angle, error) {
	if len(a.Types) != 3 {
		return nil, errs.Configf("spec: angle needs 3 types, got %v", a.Types)
	}
	t1, t2, t3 := a.Types[0], a.Types[1], a.Types[2]
	switch {
	case a.Harmonic != nil:
		return msibi.NewHarmonicAngle(t1, t2, t3, a.Harmonic.K, a.Harmonic.X0)
	case a.CosineSq != nil:
		return msibi.NewCosineSqAngle(t1, t2, t3, a.CosineSq.K, a.CosineSq.X0)
	default:
		q := a.Table
		return msibi.NewTableAngle(t1, t2, t3, q.Quartic, q.Min, q.Max, q.NPoints)
	}
}

func (p PairSetting) build() (*msibi.Pair, error) {
	if len(p.Types) != 2 {
		return nil, errs.Configf("spec: pair needs 2 types, got %v", p.Types)
	}
	t1, t2 := p.Types[0], p.Types[1]
	if p.LJ != nil {
		return msibi.NewLJPair(t1, t2, p.LJ.Epsilon, p.LJ.Sigma, p.LJ.RCut)
	}
	m := p.Table
	return msibi.NewTablePair(t1, t2, m.Mie, m.RMin, m.RMax, m.NPoints)
}
