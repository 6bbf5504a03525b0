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

package potential

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/zintix-labs/msibi/errs"
)

const tol = 1e-9

func TestKindNamesAndParse(t *testing.T) {
	for _, c := range []struct {
		in   string
		want Kind
	}{{"bonds", Bond}, {"angle", Angle}, {" Pairs ", Pair}} {
		got, err := ParseKind(c.in)
		if err != nil || got != c.want {
			t.Fatalf("ParseKind(%q) got %v,%v want %v", c.in, got, err, c.want)
		}
	}
	if _, err := ParseKind("dihedrals"); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("unknown kind should be a config error, got %v", err)
	}
	if Angle.Arity() != 3 || Pair.Arity() != 2 || Bond.Plural() != "bonds" {
		t.Fatalf("kind helpers mismatch")
	}
}

func TestBondGridSpacing(t *testing.T) {
	grid, dl, err := BondGrid(0, 2, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(grid) != 100 {
		t.Fatalf("bond grid len got %d want 100", len(grid))
	}
	if math.Abs(dl-0.02) > tol || math.Abs(grid[99]-1.98) > tol {
		t.Fatalf("bond grid spacing got dl=%g last=%g", dl, grid[99])
	}
}

func TestAngleGridIncludesUpperBound(t *testing.T) {
	grid, dt, err := AngleGrid(0, math.Pi, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(grid) != 100 {
		t.Fatalf("angle grid len got %d want 100", len(grid))
	}
	if math.Abs(dt-math.Pi/99) > tol || math.Abs(grid[99]-math.Pi) > 1e-9 {
		t.Fatalf("angle grid got dt=%g last=%g", dt, grid[99])
	}
}

func TestPairGridLinspace(t *testing.T) {
	grid, dr, err := PairGrid(0, 2.5, 151)
	if err != nil {
		t.Fatal(err)
	}
	if len(grid) != 151 || grid[150] != 2.5 || math.Abs(dr-2.5/150) > tol {
		t.Fatalf("pair grid got len=%d last=%g dr=%g", len(grid), grid[150], dr)
	}
	if _, _, err := PairGrid(1, 1, 10); err == nil {
		t.Fatalf("degenerate pair grid should fail")
	}
}

func TestQuartic(t *testing.T) {
	q := Quartic{X0: 1, K2: 1}
	v := q.Eval([]float64{0, 1, 3})
	want := []float64{1, 0, 4}
	for i := range v {
		if math.Abs(v[i]-want[i]) > tol {
			t.Fatalf("quartic[%d] got %g want %g", i, v[i], want[i])
		}
	}
}

func TestMieMinimum(t *testing.T) {
	p := LJ(1, 1)
	rmin := math.Pow(2, 1.0/6.0)
	v := p.Eval([]float64{rmin, 1})
	if math.Abs(v[0]+1) > 1e-9 {
		t.Fatalf("LJ minimum got %g want -1", v[0])
	}
	if math.Abs(v[1]) > 1e-12 {
		t.Fatalf("LJ(sigma) got %g want 0", v[1])
	}
}

func TestTailCorrectionEndsAtZeroAndIsIdempotent(t *testing.T) {
	r := Arange(0, 2.5, 0.05)
	v := Mie{Epsilon: 1, Sigma: 1, M: 12, N: 6}.Eval(r)
	once, err := TailCorrection(r, v, 2.25)
	if err != nil {
		t.Fatal(err)
	}
	if once[len(once)-1] != 0 {
		t.Fatalf("tail must end at 0, got %g", once[len(once)-1])
	}
	twice, err := TailCorrection(r, once, 2.25)
	if err != nil {
		t.Fatal(err)
	}
	for i := range once {
		if once[i] != twice[i] && !(math.IsNaN(once[i]) && math.IsNaN(twice[i])) {
			t.Fatalf("tail correction not idempotent at %d: %g vs %g", i, once[i], twice[i])
		}
	}
	idx := nearest(r, 2.25)
	for i := 1; i < idx; i++ {
		if once[i] != v[i] {
			t.Fatalf("values before r_switch must be untouched at %d", i)
		}
	}
}

func TestTailCorrectionRejectsSwitchAtCutoff(t *testing.T) {
	r := Arange(0, 1, 0.1)
	v := make([]float64, len(r))
	if _, err := TailCorrection(r, v, 5); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("r_switch at cutoff should be config error, got %v", err)
	}
	if _, err := DefaultRSwitch(r[:4]); err == nil {
		t.Fatalf("DefaultRSwitch should reject grids under 5 points")
	}
}

func TestHeadCorrection(t *testing.T) {
	const cutoff = 8
	r := Arange(0, 2.5, 0.05)
	v := Mie{Epsilon: 2, Sigma: 1, M: 12, N: 6}.Eval(r)
	for i := 0; i < cutoff; i++ {
		v[i] = math.Inf(1)
	}
	lin, err := HeadCorrection(r, v, HeadLinear)
	if err != nil {
		t.Fatal(err)
	}
	exp, err := HeadCorrection(r, v, HeadExponential)
	if err != nil {
		t.Fatal(err)
	}
	for i := range r {
		if math.IsNaN(lin[i]) || math.IsInf(lin[i], 0) || math.IsNaN(exp[i]) || math.IsInf(exp[i], 0) {
			t.Fatalf("non-finite value left at %d", i)
		}
		if i >= cutoff && (lin[i] != v[i] || exp[i] != v[i]) {
			t.Fatalf("finite region changed at %d", i)
		}
	}
	if !(exp[0] > lin[0]) {
		t.Fatalf("exponential head should exceed linear head: %g <= %g", exp[0], lin[0])
	}
	if _, err := HeadCorrection(r, v, "cubic"); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("unknown form should be config error")
	}
}

func TestHeadCorrectionRejectsDeepHoles(t *testing.T) {
	r := Arange(0, 1, 0.1)
	v := make([]float64, len(r))
	v[len(v)-2] = math.NaN()
	if _, err := HeadCorrection(r, v, HeadLinear); !errs.IsKind(err, errs.KindData) {
		t.Fatalf("hole past the core should be data error, got %v", err)
	}
}

func TestAlphaArray(t *testing.T) {
	r := Arange(0, 2.5, 0.1)
	a, err := AlphaArray(1, r, AlphaLinear)
	if err != nil {
		t.Fatal(err)
	}
	if a[0] != 1 || a[len(a)-1] != 0 {
		t.Fatalf("linear alpha got first=%g last=%g", a[0], a[len(a)-1])
	}
	c, _ := AlphaArray(0.5, r, AlphaConstant)
	for _, x := range c {
		if x != 0.5 {
			t.Fatalf("constant alpha got %g", x)
		}
	}
	if _, err := AlphaArray(1, r, "margaret-thatcher"); err == nil {
		t.Fatalf("unknown alpha form should fail")
	}
}

func TestSavitzkyGolayKeepsQuadratics(t *testing.T) {
	x := Arange(0, 5, 0.1)
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 3*xi*xi - 2*xi + 1
	}
	s, err := SavitzkyGolay(y, DefaultSGWindow, DefaultSGOrder)
	if err != nil {
		t.Fatal(err)
	}
	half := DefaultSGWindow / 2
	for i := half; i < len(y)-half; i++ {
		if math.Abs(s[i]-y[i]) > 1e-8 {
			t.Fatalf("interior point %d got %g want %g", i, s[i], y[i])
		}
	}
	if _, err := SavitzkyGolay(y[:5], 9, 2); !errs.IsKind(err, errs.KindData) {
		t.Fatalf("short input should be data error")
	}
	if _, err := SavitzkyGolay(y, 8, 2); !errs.IsKind(err, errs.KindConfig) {
		t.Fatalf("even window should be config error")
	}
}

func TestSimilarity(t *testing.T) {
	a := []float64{1, 2, 3}
	if s := Similarity(a, a); math.Abs(s-1) > tol {
		t.Fatalf("identical similarity got %g", s)
	}
	b := []float64{0, 0, 0}
	if s := Similarity(a, b); math.Abs(s) > tol {
		t.Fatalf("disjoint similarity got %g", s)
	}
}

func TestTableRoundTripWithForce(t *testing.T) {
	grid := []float64{0, 0.5, 1, 1.5}
	v := []float64{4, 1, 0, 1}
	var buf bytes.Buffer
	if err := WriteTable(&buf, grid, v, 0.5, true); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 || len(strings.Fields(lines[0])) != 3 {
		t.Fatalf("unexpected table layout: %q", buf.String())
	}
	g2, v2, err := ReadTable(&buf)
	if err != nil {
		t.Fatal(err)
	}
	for i := range grid {
		if math.Abs(g2[i]-grid[i]) > tol || math.Abs(v2[i]-v[i]) > tol {
			t.Fatalf("row %d got (%g,%g)", i, g2[i], v2[i])
		}
	}
	f := Gradient(v, 0.5)
	if f[0] != -6 || f[1] != -4 {
		t.Fatalf("gradient got %v", f)
	}
}
