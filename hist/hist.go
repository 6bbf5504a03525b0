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

// Package hist 是內建的分布取樣器：從 Source 取得原始鍵長/鍵角/距離樣本，
// 在勢能網格上做直方圖並正規化成密度（bond/angle）或 g(r)（pair）。
package hist

import (
	"context"
	"math"
	"sort"

	"github.com/zintix-labs/msibi/dist"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// tailFrac RDF 以最後 10% 的 bin 平均值正規化到 1
const tailFrac = 0.1

// Source 提供原始樣本；讀哪種軌跡格式由實作決定。
type Source interface {
	Samples(ctx context.Context, req dist.Request) ([]float64, error)
}

// SourceFunc 讓一般函式滿足 Source
type SourceFunc func(ctx context.Context, req dist.Request) ([]float64, error)

func (f SourceFunc) Samples(ctx context.Context, req dist.Request) ([]float64, error) {
	return f(ctx, req)
}

// Sampler 以 Source 取樣後做直方圖，實作 dist.Sampler。
type Sampler struct {
	src Source
}

func New(src Source) (*Sampler, error) {
	if src == nil {
		return nil, errs.NewFatal("hist: source is required")
	}
	return &Sampler{src: src}, nil
}

// Sample 依請求建立直方圖。
//   - Bins == BinsAuto：每個網格點一個 bin；若沒有網格資訊，改用 Freedman-Diaconis 規則。
//   - Bins > 0：沿用指定的 bin 數（target 凍結的 n_bins）。
func (s *Sampler) Sample(ctx context.Context, req dist.Request) (*dist.Distribution, error) {
	if req.Bins < 0 {
		return nil, errs.Configf("hist: bins must be >= 0, got %d", req.Bins)
	}
	x, err := s.src.Samples(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, errs.Dataf("hist: %s yields zero samples for %v", req.Path, req.Types)
	}
	x = append([]float64(nil), x...)
	sort.Float64s(x)

	lo, hi, n := req.Lo, req.Hi, req.Bins
	switch {
	case n == dist.BinsAuto && req.Spacing > 0 && hi > lo:
		n = int(math.Round((hi-lo)/req.Spacing)) + 1
	case n == dist.BinsAuto:
		lo, hi, n = freedmanDiaconis(x)
	case hi <= lo:
		lo, hi = x[0], x[len(x)-1]
	}
	if n < 2 {
		return nil, errs.Dataf("hist: need at least 2 bins, got %d", n)
	}
	w := (hi - lo) / float64(n-1)
	if w <= 0 {
		return nil, errs.Dataf("hist: degenerate bin width over [%g, %g]", lo, hi)
	}
	dividers := floats.Span(make([]float64, n+1), lo-w/2, hi+w/2)
	in := inRange(x, dividers[0], dividers[n])
	if len(in) == 0 {
		return nil, errs.Dataf("hist: no samples of %v inside [%g, %g)", req.Types, dividers[0], dividers[n])
	}
	counts := stat.Histogram(nil, dividers, in, nil)

	d := &dist.Distribution{X: make([]float64, n), Y: counts}
	for i := range d.X {
		d.X[i] = dividers[i+1]
	}
	if req.Kind == potential.Pair {
		rdfNormalize(d.Y, dividers, w)
	} else {
		floats.Scale(1/(float64(len(in))*w), d.Y)
	}
	return d, nil
}

// inRange 回傳已排序 x 中落在 [lo, hi) 的子切片（stat.Histogram 要求樣本全在區間內）
func inRange(x []float64, lo, hi float64) []float64 {
	i := sort.SearchFloat64s(x, lo)
	j := sort.SearchFloat64s(x, hi)
	return x[i:j]
}

// freedmanDiaconis 沒有網格資訊時的自動分箱：寬度 2·IQR·n^(-1/3)
func freedmanDiaconis(sorted []float64) (lo, hi float64, n int) {
	lo, hi = sorted[0], sorted[len(sorted)-1]
	iqr := stat.Quantile(0.75, stat.Empirical, sorted, nil) - stat.Quantile(0.25, stat.Empirical, sorted, nil)
	if iqr <= 0 || hi <= lo {
		return lo, hi, 10
	}
	w := 2 * iqr / math.Cbrt(float64(len(sorted)))
	n = int(math.Ceil((hi-lo)/w)) + 1
	return lo, hi, max(n, 2)
}

// rdfNormalize 以球殼體積換算 g(r)，再以尾端平均正規化到 1。
func rdfNormalize(y, dividers []float64, w float64) {
	for i := range y {
		r := (dividers[i] + dividers[i+1]) / 2
		shell := 4 * math.Pi * r * r * w
		if shell <= 0 {
			y[i] = 0
			continue
		}
		y[i] /= shell
	}
	k := max(1, int(float64(len(y))*tailFrac))
	tail := stat.Mean(y[len(y)-k:], nil)
	if tail > 0 {
		floats.Scale(1/tail, y)
	}
}
