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
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zintix-labs/msibi/dist"
	"github.com/zintix-labs/msibi/engine"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/hist"
	"github.com/zintix-labs/msibi/potential"
)

const eps = 1e-9

func testParams() engine.Params {
	return engine.Params{
		Integrator: "hoomd.md.integrate.nvt",
		DT:         0.001,
		GSDPeriod:  100,
		NSteps:     1000,
		MaxFrames:  5,
	}
}

func const64(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// attach 直接建立綁定，不經過取樣器
func attach(m member, st *State, target, current []float64) *Binding {
	c := m.core()
	x := c.table.grid
	b := &Binding{
		State:     st,
		Alpha:     st.Alpha,
		AlphaForm: st.alphaForm(c.kind),
		Target:    &dist.Distribution{X: x, Y: target},
		NBins:     len(target),
	}
	if current != nil {
		b.Current = &dist.Distribution{X: x, Y: current}
	}
	c.bindings[st.Name] = b
	c.order = append(c.order, st.Name)
	return b
}

func testBond(t *testing.T) *Bond {
	t.Helper()
	b, err := NewTableBond("A", "B", potential.Quartic{X0: 1, K2: 1}, 0, 2, 100)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestStaticUpdateIsConfigError(t *testing.T) {
	hb, _ := NewHarmonicBond("A", "B", 100, 1)
	fb, _ := NewFENEBond("A", "B", 30, 1.5, 1, 1)
	ha, _ := NewHarmonicAngle("A", "B", "A", 50, 2)
	lj, _ := NewLJPair("A", "B", 1, 1, 2.5)
	for _, p := range []Potential{hb, fb, ha, lj} {
		if !p.IsStatic() {
			t.Fatalf("%s should be static", p.Name())
		}
		if err := p.Update(); !errs.IsKind(err, errs.KindConfig) {
			t.Fatalf("%s %s: want config error, got %v", p.Kind(), p.Name(), err)
		}
		if p.Curve() != nil {
			t.Fatalf("static potential must not have a curve")
		}
	}
}

func TestCanonicalNames(t *testing.T) {
	b1, _ := NewTableBond("B", "A", potential.Quartic{K2: 1}, 0, 2, 10)
	b2, _ := NewHarmonicBond("A", "B", 1, 1)
	if b1.Name() != "A-B" || b2.Name() != b1.Name() {
		t.Fatalf("bond names %q %q", b1.Name(), b2.Name())
	}
	a1, _ := NewTableAngle("C", "B", "A", potential.Quartic{K2: 1}, 0, math.Pi, 20)
	a2, _ := NewCosineSqAngle("A", "B", "C", 1, 2)
	if a1.Name() != "A-B-C" || a2.Name() != a1.Name() {
		t.Fatalf("angle names %q %q", a1.Name(), a2.Name())
	}
	if n, _ := CanonicalName(potential.Pair, "A10", "A2"); n != "A2-A10" {
		t.Fatalf("numeric order: got %q", n)
	}
	if _, err := CanonicalName(potential.Angle, "A", "B"); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("wrong arity should fail")
	}
	if _, err := NewTableBond("A", " ", potential.Quartic{}, 0, 2, 10); err == nil {
		t.Fatalf("empty label should fail")
	}
}

func TestGridAndCurveLengthsMatch(t *testing.T) {
	b := testBond(t)
	if len(b.Grid()) != 100 || len(b.Curve()) != 100 {
		t.Fatalf("grid %d curve %d", len(b.Grid()), len(b.Curve()))
	}
	st := &State{Name: "A", KT: 1, Alpha: 1}
	attach(b, st, const64(100, 1), const64(100, 1.5))
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	if len(b.Curve()) != len(b.Grid()) || len(b.Previous()) != len(b.Grid()) {
		t.Fatalf("lengths changed after update")
	}

	a, _ := NewTableAngle("A", "B", "A", potential.Quartic{X0: 2, K2: 1}, 0, math.Pi, 64)
	if len(a.Grid()) != len(a.Curve()) {
		t.Fatalf("angle grid/curve mismatch")
	}
}

func TestSingleStateRoundTrip(t *testing.T) {
	b := testBond(t)
	before := b.Curve()
	y := make([]float64, 100)
	for i := range y {
		y[i] = 0.1 + float64(i)/100
	}
	attach(b, &State{Name: "A", KT: 0.8, Alpha: 1}, y, append([]float64(nil), y...))
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	for i, v := range b.Curve() {
		if math.Abs(v-before[i]) > eps {
			t.Fatalf("point %d moved: %g -> %g", i, before[i], v)
		}
	}
}

func TestMultiStateWeighting(t *testing.T) {
	b := testBond(t)
	before := b.Curve()
	s1 := &State{Name: "S1", KT: 1.0, Alpha: 0.5}
	s2 := &State{Name: "S2", KT: 2.0, Alpha: 0.5}
	t1 := attach(b, s1, const64(100, 1), const64(100, 1))
	attach(b, s2, const64(100, 2), const64(100, 2))
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	for i, v := range b.Curve() {
		if math.Abs(v-before[i]) > eps {
			t.Fatalf("matched states moved point %d", i)
		}
	}

	// 只有 S1 偏離：位移 = alpha1 · kT1 / N · ln(c/t)
	for _, k := range []float64{1, 2} {
		b.table.v = append([]float64(nil), before...)
		t1.Current = &dist.Distribution{X: b.Grid(), Y: const64(100, math.Exp(k))}
		if err := b.Update(); err != nil {
			t.Fatal(err)
		}
		want := 0.5 * 1.0 / 2 * k
		for i, v := range b.Curve() {
			if math.Abs(v-before[i]-want) > eps {
				t.Fatalf("k=%g point %d: shift %g want %g", k, i, v-before[i], want)
			}
		}
	}
}

func TestBondUpdateScenario(t *testing.T) {
	b := testBond(t)
	before := b.Curve()
	attach(b, &State{Name: "A", KT: 0.592, Alpha: 0.5}, const64(100, 1), const64(100, 2))
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	want := 0.5 * 0.592 * math.Ln2
	if math.Abs(want-0.2052) > 1e-4 {
		t.Fatalf("expected shift constant %g", want)
	}
	for i, v := range b.Curve() {
		if math.Abs(v-before[i]-want) > eps {
			t.Fatalf("point %d: shift %g want %g", i, v-before[i], want)
		}
	}
	prev := b.Previous()
	for i := range prev {
		if prev[i] != before[i] {
			t.Fatalf("previous snapshot differs at %d", i)
		}
	}
}

func TestUpdateErrors(t *testing.T) {
	b := testBond(t)
	if err := b.Update(); !errs.IsKind(err, errs.KindData) {
		t.Fatalf("no target: want data error, got %v", err)
	}
	bd := attach(b, &State{Name: "A", KT: 1, Alpha: 1}, const64(100, 1), const64(99, 1))
	if err := b.Update(); !errs.IsKind(err, errs.KindData) {
		t.Fatalf("bin mismatch: want data error, got %v", err)
	}
	bd.Current = &dist.Distribution{X: b.Grid(), Y: const64(100, 0)}
	if err := b.Update(); !errs.IsKind(err, errs.KindData) {
		t.Fatalf("all-zero current: want data error, got %v", err)
	}
}

func TestZeroPolicy(t *testing.T) {
	b := testBond(t)
	before := b.Curve()
	target := const64(100, 1)
	target[10] = 0
	attach(b, &State{Name: "A", KT: 1, Alpha: 1}, target, const64(100, math.E))

	if err := b.update(&Env{Active: potential.Bond, Zero: ZeroStrict}); !errs.IsKind(err, errs.KindData) {
		t.Fatalf("strict: want data error, got %v", err)
	}
	if err := b.update(&Env{Active: potential.Bond, Zero: ZeroCarry}); err != nil {
		t.Fatal(err)
	}
	v := b.Curve()
	if v[10] != before[10] {
		t.Fatalf("zero-target point must carry the previous value")
	}
	if math.Abs(v[11]-before[11]-1) > eps {
		t.Fatalf("regular point shift %g want 1", v[11]-before[11])
	}
	if z, err := ParseZeroPolicy("STRICT"); err != nil || z != ZeroStrict {
		t.Fatalf("parse strict: %v %v", z, err)
	}
}

func TestPairCorrectionIdempotent(t *testing.T) {
	p, err := NewTablePair("A", "A", potential.LJ(1, 1), 0, 3, 151)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range p.Curve() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("initial pair curve must be finite")
		}
	}
	env := &Env{Active: potential.Pair}
	once, err := pairCorrection(env, p.Grid(), p.Curve())
	if err != nil {
		t.Fatal(err)
	}
	twice, err := pairCorrection(env, p.Grid(), once)
	if err != nil {
		t.Fatal(err)
	}
	for i := range once {
		if math.Abs(once[i]-twice[i]) > eps {
			t.Fatalf("point %d: %g vs %g", i, once[i], twice[i])
		}
	}
	if once[len(once)-1] != 0 {
		t.Fatalf("tail must end at zero")
	}
	rs, err := p.RSwitch(env)
	if err != nil || math.Abs(rs-p.Grid()[146]) > eps {
		t.Fatalf("default r_switch %g err %v", rs, err)
	}
}

func TestBinningFrozenAtBind(t *testing.T) {
	var mu sync.Mutex
	var bins []int
	src := hist.SourceFunc(func(_ context.Context, req dist.Request) ([]float64, error) {
		mu.Lock()
		bins = append(bins, req.Bins)
		mu.Unlock()
		n := 1000
		if strings.HasSuffix(req.Path, "query.gsd") {
			n = 37
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = 0.5 + float64(i)/float64(n)
		}
		return out, nil
	})
	hs, _ := hist.New(src)
	env := &Env{Active: potential.Bond, Sampler: hs}
	b := testBond(t)
	st := &State{Name: "A", KT: 1, Alpha: 1, TargetTraj: "/t/target.gsd", QueryTraj: "/t/query.gsd"}
	if err := b.bind(context.Background(), env, st); err != nil {
		t.Fatal(err)
	}
	bd, _ := b.Binding("A")
	if bd.NBins != 100 {
		t.Fatalf("frozen bins %d want 100", bd.NBins)
	}
	if err := b.recompute(context.Background(), env, st); err != nil {
		t.Fatal(err)
	}
	if bd.Current.Len() != 100 {
		t.Fatalf("current has %d bins", bd.Current.Len())
	}
	if len(bins) != 2 || bins[0] != dist.BinsAuto || bins[1] != 100 {
		t.Fatalf("requested bins %v", bins)
	}
	if len(bd.FitHistory) != 0 {
		t.Fatalf("recompute alone must not record a fit: %v", bd.FitHistory)
	}
	b.recordFits()
	if len(bd.FitHistory) != 1 {
		t.Fatalf("fit history %v", bd.FitHistory)
	}
}

// fakeSampler target 密度為 1，query 密度為 2
func fakeSampler(calls *atomic.Int32) dist.Sampler {
	return dist.SamplerFunc(func(_ context.Context, req dist.Request) (*dist.Distribution, error) {
		if calls != nil {
			calls.Add(1)
		}
		n := req.Bins
		if n == dist.BinsAuto {
			n = int(math.Round((req.Hi-req.Lo)/req.Spacing)) + 1
		}
		y := 1.0
		if strings.HasSuffix(req.Path, DefaultQueryName) {
			y = 2.0
		}
		d := &dist.Distribution{X: make([]float64, n), Y: const64(n, y)}
		for i := range d.X {
			d.X[i] = req.Lo + float64(i)*req.Spacing + req.Spacing/2
		}
		return d, nil
	})
}

type countingRunner struct {
	calls atomic.Int32
	fail  string
}

func (r *countingRunner) Run(_ context.Context, job engine.Job) error {
	r.calls.Add(1)
	if job.Script == "" {
		return errors.New("no script")
	}
	if job.State == r.fail {
		return errors.New("segmentation fault")
	}
	return nil
}

func newTestSession(t *testing.T, dir string, r engine.Runner, opts ...Option) *Session {
	t.Helper()
	base := []Option{
		WithSampler(fakeSampler(nil)),
		WithRunner(r),
		WithPotentialsDir(filepath.Join(dir, "potentials")),
		WithStatesDir(filepath.Join(dir, "states")),
		WithWorkers(2),
	}
	s, err := New(testParams(), append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func addState(t *testing.T, s *Session, dir, name string, kT, alpha float64) *State {
	t.Helper()
	st, err := NewState(name, kT, filepath.Join(dir, name+"-target.gsd"), alpha)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddState(st); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestNewRejectsNVE(t *testing.T) {
	p := testParams()
	p.Integrator = "hoomd.md.integrate.nve"
	if _, err := New(p); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("want config error, got %v", err)
	}
}

func TestOptimizeBondsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	r := &countingRunner{}
	s := newTestSession(t, dir, r)
	addState(t, s, dir, "A", 0.592, 0.5)
	b := testBond(t)
	if err := s.AddBond(b); err != nil {
		t.Fatal(err)
	}
	lj, _ := NewLJPair("A", "B", 1, 1, 2.5)
	if err := s.AddPair(lj); err != nil {
		t.Fatal(err)
	}
	if err := s.AddBond(testBond(t)); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("duplicate bond should be rejected")
	}
	before := b.Curve()

	if err := s.OptimizeBonds(context.Background(), 2, 0); err != nil {
		t.Fatal(err)
	}
	if got := r.calls.Load(); got != 2 {
		t.Fatalf("runner calls %d want 2", got)
	}
	want := 2 * 0.5 * 0.592 * math.Ln2
	for i, v := range b.Curve() {
		if math.Abs(v-before[i]-want) > 1e-9 {
			t.Fatalf("point %d: shift %g want %g", i, v-before[i], want)
		}
	}
	bd, _ := b.Binding("A")
	if len(bd.FitHistory) != 2 || math.Abs(bd.FitHistory[0]-2.0/3) > eps {
		t.Fatalf("fit history %v", bd.FitHistory)
	}
	if lb, ok := lj.Binding("A"); !ok || lb.HasTarget() {
		t.Fatalf("non-active static pair must be bound without target")
	}

	pot := filepath.Join(dir, "potentials")
	for _, name := range []string{"bond_pot.A-B.txt", "step0.bond_pot.A-B.txt", "step1.bond_pot.A-B.txt", "step2.bond_pot.A-B.txt"} {
		if _, err := os.Stat(filepath.Join(pot, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	stateDir := filepath.Join(dir, "states", "A")
	for _, name := range []string{"bond_pot_A-B-state_A-step_0.txt", "bond_pot_A-B-state_A-step_1.txt", engine.DefaultScriptName} {
		if _, err := os.Stat(filepath.Join(stateDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	script, _ := os.ReadFile(filepath.Join(stateDir, engine.DefaultScriptName))
	for _, want := range []string{"btable.set_from_file('A-B'", "lj.pair_coeff.set('A', 'B'"} {
		if !strings.Contains(string(script), want) {
			t.Fatalf("run script missing %q", want)
		}
	}

	// 診斷檔的 x 為 bin 中心（右緣 - dx/2）
	f, _ := os.Open(filepath.Join(stateDir, "bond_pot_A-B-state_A-step_0.txt"))
	defer f.Close()
	x, y, err := potential.ReadTable(f)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x[0]) > 1e-9 || y[0] != 2 {
		t.Fatalf("first diagnostic row %g %g", x[0], y[0])
	}
}

func TestOptimizeResetsHistories(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, &countingRunner{})
	addState(t, s, dir, "A", 1, 1)
	b := testBond(t)
	_ = s.AddBond(b)
	if err := s.OptimizeBonds(context.Background(), 3, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.OptimizeBonds(context.Background(), 1, 0); err != nil {
		t.Fatal(err)
	}
	bd, _ := b.Binding("A")
	if len(bd.FitHistory) != 1 {
		t.Fatalf("history should restart, got %d entries", len(bd.FitHistory))
	}
}

func TestExternalFailureAbortsIteration(t *testing.T) {
	dir := t.TempDir()
	r := &countingRunner{fail: "B"}
	s := newTestSession(t, dir, r)
	addState(t, s, dir, "A", 1, 0.5)
	addState(t, s, dir, "B", 1, 0.5)
	b := testBond(t)
	_ = s.AddBond(b)
	before := b.Curve()

	err := s.OptimizeBonds(context.Background(), 3, 0)
	if !errs.IsKind(err, errs.KindExternal) {
		t.Fatalf("want external failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "state=B") {
		t.Fatalf("error should name the failing state: %v", err)
	}
	for i, v := range b.Curve() {
		if v != before[i] {
			t.Fatalf("curve must not change when the iteration aborts")
		}
	}
	bd, _ := b.Binding("A")
	if len(bd.FitHistory) != 0 {
		t.Fatalf("no distribution should be recomputed")
	}
	if _, err := os.Stat(filepath.Join(dir, "potentials", "step1.bond_pot.A-B.txt")); err == nil {
		t.Fatalf("no table should be written for the aborted iteration")
	}
	if m := s.PoolMetrics(); m.Fails == 0 {
		t.Fatalf("pool should count the failure: %+v", m)
	}
	if s.Running() {
		t.Fatalf("session must leave the running state")
	}
}

func TestQueryPoolRecoversPanic(t *testing.T) {
	p := newQueryPool(engine.RunnerFunc(func(context.Context, engine.Job) error {
		panic("boom")
	}), 2)
	err := p.RunAll(context.Background(), []engine.Job{{State: "A"}, {State: "B"}})
	if !errs.IsKind(err, errs.KindExternal) {
		t.Fatalf("panic should surface as external failure, got %v", err)
	}
	if p.Metrics().Panics == 0 {
		t.Fatalf("panic not counted")
	}
	p.Close()
	if err := p.RunAll(context.Background(), nil); err == nil {
		t.Fatalf("closed pool should refuse work")
	}
}

func TestResumeFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, &countingRunner{})
	addState(t, s, dir, "A", 1, 1)
	b := testBond(t)
	_ = s.AddBond(b)
	if err := s.OptimizeBonds(context.Background(), 2, 0); err != nil {
		t.Fatal(err)
	}
	after2 := b.Curve()

	s2 := newTestSession(t, dir, &countingRunner{})
	addState(t, s2, dir, "A", 1, 1)
	b2 := testBond(t)
	_ = s2.AddBond(b2)
	if err := s2.OptimizeBonds(context.Background(), 1, 2); err != nil {
		t.Fatal(err)
	}
	// 表格以 %.12e 寫出，容許相對誤差
	for i, v := range b2.Curve() {
		want := after2[i] + math.Ln2
		if math.Abs(v-want) > 1e-9*math.Max(1, math.Abs(want)) {
			t.Fatalf("point %d: got %g want %g", i, v, want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "potentials", "step3.bond_pot.A-B.txt")); err != nil {
		t.Fatalf("resumed run should write step3: %v", err)
	}
}

func TestOptimizeConfigErrors(t *testing.T) {
	dir := t.TempDir()
	r := &countingRunner{}
	s := newTestSession(t, dir, r)
	addState(t, s, dir, "A", 1, 1)
	hb, _ := NewHarmonicBond("A", "B", 1, 1)
	_ = s.AddBond(hb)
	if err := s.OptimizeBonds(context.Background(), 1, 0); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("only static bonds: want config error, got %v", err)
	}

	small, _ := NewTablePair("A", "A", potential.LJ(1, 1), 0.5, 2, 4)
	_ = s.AddPair(small)
	if err := s.OptimizePairs(context.Background(), 1, 0, DefaultPairOptions()); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("undersized pair grid: want config error, got %v", err)
	}
	if err := s.OptimizeAngles(context.Background(), 0, 0); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("zero iterations should fail")
	}
	if r.calls.Load() != 0 {
		t.Fatalf("no simulation should run on configuration errors")
	}
}

func TestOptimizePairsAppliesTail(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, &countingRunner{})
	addState(t, s, dir, "A", 1, 1)
	p, _ := NewTablePair("A", "A", potential.LJ(1, 1), 0.02, 3, 150)
	_ = s.AddPair(p)
	opts := DefaultPairOptions()
	opts.Smooth = false
	if err := s.OptimizePairs(context.Background(), 1, 0, opts); err != nil {
		t.Fatal(err)
	}
	v := p.Curve()
	if v[len(v)-1] != 0 {
		t.Fatalf("pair tail must be zero after update, got %g", v[len(v)-1])
	}
	bd, _ := p.Binding("A")
	if bd.AlphaForm != potential.AlphaLinear {
		t.Fatalf("pairs default to linear alpha, got %q", bd.AlphaForm)
	}
}

func TestInactivePairTableIsTailCorrected(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, &countingRunner{})
	addState(t, s, dir, "A", 1, 1)
	_ = s.AddBond(testBond(t))
	p, _ := NewTablePair("A", "A", potential.LJ(1, 1), 0.02, 3, 150)
	_ = s.AddPair(p)
	if err := s.OptimizeBonds(context.Background(), 1, 0); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(filepath.Join(dir, "potentials", "pair_pot.A-A.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	_, v, err := potential.ReadTable(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 150 || v[len(v)-1] != 0 {
		t.Fatalf("pair table handed to the engine must decay to zero at r_cut, got %g", v[len(v)-1])
	}
	if c := p.Curve(); c[len(c)-1] != 0 {
		t.Fatalf("in-memory pair curve not corrected: %g", c[len(c)-1])
	}
	if bd, _ := p.Binding("A"); bd.HasTarget() {
		t.Fatalf("inactive pair must not get a target")
	}
}

// noisyDensity target 在 1 附近、query 在 2 附近擺盪
func noisyDensity(path string, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if strings.HasSuffix(path, DefaultQueryName) {
			out[i] = 2 + 0.2*math.Cos(0.9*float64(i))
		} else {
			out[i] = 1 + 0.2*math.Sin(1.3*float64(i))
		}
	}
	return out
}

func noisySampler() dist.Sampler {
	return dist.SamplerFunc(func(_ context.Context, req dist.Request) (*dist.Distribution, error) {
		n := req.Bins
		if n == dist.BinsAuto {
			n = int(math.Round((req.Hi-req.Lo)/req.Spacing)) + 1
		}
		d := &dist.Distribution{X: make([]float64, n), Y: noisyDensity(req.Path, n)}
		for i := range d.X {
			d.X[i] = req.Lo + float64(i)*req.Spacing
		}
		return d, nil
	})
}

func TestOptimizePairsSmoothsTargetAndCurrent(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, &countingRunner{}, WithSampler(noisySampler()))
	st := addState(t, s, dir, "A", 1, 1)
	p, _ := NewTablePair("A", "A", potential.LJ(1, 1), 0.02, 3, 150)
	_ = s.AddPair(p)
	opts := DefaultPairOptions()
	if !opts.Smooth {
		t.Fatalf("pairs smooth by default")
	}
	if err := s.OptimizePairs(context.Background(), 1, 0, opts); err != nil {
		t.Fatal(err)
	}
	bd, _ := p.Binding("A")
	for _, c := range []struct {
		name string
		path string
		got  []float64
	}{
		{"target", st.TargetTraj, bd.Target.Y},
		{"current", st.QueryTraj, bd.Current.Y},
	} {
		raw := noisyDensity(c.path, 150)
		want, err := potential.SavitzkyGolay(raw, potential.DefaultSGWindow, potential.DefaultSGOrder)
		if err != nil {
			t.Fatal(err)
		}
		if len(c.got) != len(want) {
			t.Fatalf("%s: %d bins, want %d", c.name, len(c.got), len(want))
		}
		changed := false
		for i := range want {
			if c.got[i] != want[i] {
				t.Fatalf("%s point %d: got %g want %g", c.name, i, c.got[i], want[i])
			}
			if math.Abs(want[i]-raw[i]) > 1e-6 {
				changed = true
			}
		}
		if !changed {
			t.Fatalf("%s: smoothing left the raw data untouched", c.name)
		}
	}

	sdir := t.TempDir()
	short := newTestSession(t, sdir, &countingRunner{}, WithSampler(noisySampler()))
	addState(t, short, sdir, "A", 1, 1)
	sp, _ := NewTablePair("A", "B", potential.LJ(1, 1), 0.5, 2, 7)
	_ = short.AddPair(sp)
	if err := short.OptimizePairs(context.Background(), 1, 0, opts); !errs.IsKind(err, errs.KindData) {
		t.Fatalf("grid shorter than the smoothing window: want data error, got %v", err)
	}
}

func TestStrictStaticRejectsFixedPotential(t *testing.T) {
	dir := t.TempDir()
	r := &countingRunner{}
	s := newTestSession(t, dir, r)
	addState(t, s, dir, "A", 1, 1)
	_ = s.AddBond(testBond(t))
	hb, _ := NewHarmonicBond("A", "C", 100, 1)
	_ = s.AddBond(hb)

	req := Request{Kind: potential.Bond, Iterations: 1, Options: Options{StrictStatic: true}}
	err := s.Optimize(context.Background(), req)
	if !errs.IsKind(err, errs.KindConfig) || !strings.Contains(err.Error(), "A-C") {
		t.Fatalf("want config error naming the static bond, got %v", err)
	}
	if r.calls.Load() != 0 {
		t.Fatalf("no simulation should run")
	}
	req.StrictStatic = false
	if err := s.Optimize(context.Background(), req); err != nil {
		t.Fatalf("lenient run should hold the static bond fixed: %v", err)
	}
}

func TestFailedUpdateRecordsNoFit(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir, &countingRunner{})
	addState(t, s, dir, "A", 1, 1)
	b := testBond(t)
	_ = s.AddBond(b)
	ctx := context.Background()
	env, _, err := s.prepare(ctx, Request{Kind: potential.Bond, Iterations: 1})
	if err != nil {
		t.Fatal(err)
	}
	bd, _ := b.Binding("A")
	before := b.Curve()

	bd.AlphaForm = "quadratic"
	if err := s.step(ctx, env, b, 0); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("want config error from the update, got %v", err)
	}
	if bd.Current == nil {
		t.Fatalf("current should have been recomputed")
	}
	if len(bd.FitHistory) != 0 {
		t.Fatalf("failed update must not leave a fit: %v", bd.FitHistory)
	}
	for i, v := range b.Curve() {
		if v != before[i] {
			t.Fatalf("curve must not change when the update fails")
		}
	}

	bd.AlphaForm = potential.AlphaConstant
	if err := s.step(ctx, env, b, 0); err != nil {
		t.Fatal(err)
	}
	if len(bd.FitHistory) != 1 {
		t.Fatalf("successful step records one fit, got %v", bd.FitHistory)
	}
}
