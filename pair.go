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
	"github.com/zintix-labs/msibi/engine"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
)

// Pair 非鍵結對勢能。表格型式在每次 update 後套用 tail 與 head 修正。
type Pair struct {
	*interaction
}

func newPair(t1, t2 string) (*Pair, error) {
	in, err := newInteraction(potential.Pair, []string{t1, t2})
	if err != nil {
		return nil, err
	}
	return &Pair{in}, nil
}

// NewLJPair static Lennard-Jones，rCut 為截斷距離
func NewLJPair(t1, t2 string, epsilon, sigma, rCut float64) (*Pair, error) {
	if !(rCut > 0) {
		return nil, errs.Configf("lj pair %s-%s: r_cut must be > 0, got %g", t1, t2, rCut)
	}
	p, err := newPair(t1, t2)
	if err != nil {
		return nil, err
	}
	p.withStatic(engine.LJ,
		engine.Coeff{Name: "epsilon", Value: epsilon},
		engine.Coeff{Name: "sigma", Value: sigma},
		engine.Coeff{Name: "r_cut", Value: rCut},
	)
	return p, nil
}

// NewTablePair 可優化的表格對勢能，初始曲線為 Mie 種子在 [rmin, rmax] 上的取值；
// 網格起點的非有限值（例如 r=0）以線性外插補齊。
func NewTablePair(t1, t2 string, seed potential.Mie, rmin, rmax float64, n int) (*Pair, error) {
	p, err := newPair(t1, t2)
	if err != nil {
		return nil, err
	}
	grid, dr, err := potential.PairGrid(rmin, rmax, n)
	if err != nil {
		return nil, err
	}
	v, err := potential.HeadCorrection(grid, seed.Eval(grid), potential.HeadLinear)
	if err != nil {
		return nil, err
	}
	if err := p.withTable(grid, dr, v); err != nil {
		return nil, err
	}
	p.post = pairCorrection
	return p, nil
}

// RSwitch 解析這個 pair 實際使用的切換距離
func (p *Pair) RSwitch(env *Env) (float64, error) {
	if p.table == nil {
		return 0, errs.Configf("pair %s is static and has no tail", p.name)
	}
	return pairRSwitch(env, p.table.grid)
}

func pairRSwitch(env *Env, r []float64) (float64, error) {
	if env != nil && env.RSwitch > 0 {
		if len(r) < 2 || env.RSwitch >= r[len(r)-1] {
			return 0, errs.Configf("r_switch %g must be below the last grid point", env.RSwitch)
		}
		return env.RSwitch, nil
	}
	return potential.DefaultRSwitch(r)
}

// pairCorrection tail 修正讓曲線在截斷處平滑歸零，head 修正補齊核心區的非有限值。
func pairCorrection(env *Env, r, v []float64) ([]float64, error) {
	rs, err := pairRSwitch(env, r)
	if err != nil {
		return nil, err
	}
	head := potential.HeadLinear
	if env != nil && env.Head != "" {
		head = env.Head
	}
	v, err = potential.HeadCorrection(r, v, head)
	if err != nil {
		return nil, err
	}
	return potential.TailCorrection(r, v, rs)
}
