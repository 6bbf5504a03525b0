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

package hist

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/msibi/dist"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
	"gonum.org/v1/gonum/floats"
)

type fixedSource []float64

func (f fixedSource) Samples(context.Context, dist.Request) ([]float64, error) {
	return f, nil
}

func TestAutoBinsFollowGrid(t *testing.T) {
	s, _ := New(fixedSource{0.99, 1.0, 1.01, 1.02, 0.98, 1.5})
	d, err := s.Sample(context.Background(), dist.Request{
		Kind: potential.Bond, Types: []string{"A", "B"},
		Bins: dist.BinsAuto, Lo: 0, Hi: 1.98, Spacing: 0.02,
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 100 {
		t.Fatalf("auto bins got %d want 100", d.Len())
	}
	// 以網格點為 bin 中心：右緣 = 網格點 + 半格
	if math.Abs(d.X[50]-1.01) > 1e-9 {
		t.Fatalf("bin right edge got %g want 1.01", d.X[50])
	}
	if area := floats.Sum(d.Y) * 0.02; math.Abs(area-1) > 1e-9 {
		t.Fatalf("density must integrate to 1, got %g", area)
	}
}

func TestExplicitBinsIgnoreSampleCount(t *testing.T) {
	req := dist.Request{Kind: potential.Angle, Types: []string{"A", "B", "C"}, Bins: 37, Lo: 0, Hi: math.Pi, Spacing: math.Pi / 36}
	for _, n := range []int{3, 3000} {
		x := make([]float64, n)
		for i := range x {
			x[i] = math.Pi * float64(i) / float64(n)
		}
		s, _ := New(fixedSource(x))
		d, err := s.Sample(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if d.Len() != 37 {
			t.Fatalf("n=%d: bins got %d want 37", n, d.Len())
		}
	}
}

func TestZeroSamplesIsDataError(t *testing.T) {
	s, _ := New(fixedSource{})
	_, err := s.Sample(context.Background(), dist.Request{Lo: 0, Hi: 1, Spacing: 0.1})
	if !errs.IsKind(err, errs.KindData) {
		t.Fatalf("want data error, got %v", err)
	}
}

func TestFreedmanDiaconisFallback(t *testing.T) {
	x := make([]float64, 1000)
	for i := range x {
		x[i] = float64(i) / 100
	}
	s, _ := New(fixedSource(x))
	d, err := s.Sample(context.Background(), dist.Request{Kind: potential.Bond})
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() < 2 {
		t.Fatalf("fallback produced %d bins", d.Len())
	}
}

func TestRDFTailNormalizedToOne(t *testing.T) {
	// 均勻分布於體積中的粒子對：計數 ∝ r²，g(r) 應該平坦
	x := make([]float64, 0, 200000)
	for i := 1; i <= 200; i++ {
		r := float64(i) * 0.01
		for k := 0; k < i*i; k++ {
			x = append(x, r)
		}
	}
	s, _ := New(fixedSource(x))
	d, err := s.Sample(context.Background(), dist.Request{Kind: potential.Pair, Bins: dist.BinsAuto, Lo: 0.5, Hi: 2.0, Spacing: 0.01})
	if err != nil {
		t.Fatal(err)
	}
	k := max(1, d.Len()/10)
	tail := floats.Sum(d.Y[d.Len()-k:]) / float64(k)
	if math.Abs(tail-1) > 1e-9 {
		t.Fatalf("rdf tail got %g want 1", tail)
	}
}

func writeSamples(t *testing.T, path string, body string, compress bool) {
	t.Helper()
	if !compress {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return
	}
	f, err := os.Create(path + ".zst")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestTextSourceFrameWindowAndBonded(t *testing.T) {
	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		req := dist.Request{Path: filepath.Join(dir, "query.gsd"), Kind: potential.Pair, Types: []string{"A", "B"}, Frames: 2, ExcludeBonded: true}
		var b strings.Builder
		for frame := 0; frame < 4; frame++ {
			fmt.Fprintf(&b, "%d %g 0\n", frame, float64(frame))
			fmt.Fprintf(&b, "%d %g 1\n", frame, 10+float64(frame))
		}
		writeSamples(t, SamplePath(req), b.String(), compress)

		got, err := TextSource{}.Samples(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0] != 2 || got[1] != 3 {
			t.Fatalf("compress=%v: got %v want [2 3]", compress, got)
		}
	}
}

func TestTextSourceMissingFile(t *testing.T) {
	req := dist.Request{Path: filepath.Join(t.TempDir(), "nope.gsd"), Kind: potential.Bond, Types: []string{"A", "B"}}
	if _, err := (TextSource{}).Samples(context.Background(), req); !errs.IsKind(err, errs.KindData) {
		t.Fatalf("missing samples should be data error, got %v", err)
	}
}
