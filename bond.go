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
	"github.com/zintix-labs/msibi/potential"
)

// Bond 鍵長勢能
type Bond struct {
	*interaction
}

func newBond(t1, t2 string) (*Bond, error) {
	in, err := newInteraction(potential.Bond, []string{t1, t2})
	if err != nil {
		return nil, err
	}
	return &Bond{in}, nil
}

// NewHarmonicBond static：V(l) = k/2 (l - l0)^2
func NewHarmonicBond(t1, t2 string, k, l0 float64) (*Bond, error) {
	b, err := newBond(t1, t2)
	if err != nil {
		return nil, err
	}
	b.withStatic(engine.Harmonic, engine.Coeff{Name: "k", Value: k}, engine.Coeff{Name: "l0", Value: l0})
	return b, nil
}

// NewFENEBond static FENE 鍵
func NewFENEBond(t1, t2 string, k, r0, epsilon, sigma float64) (*Bond, error) {
	b, err := newBond(t1, t2)
	if err != nil {
		return nil, err
	}
	b.withStatic(engine.FENE,
		engine.Coeff{Name: "k", Value: k},
		engine.Coeff{Name: "r0", Value: r0},
		engine.Coeff{Name: "sigma", Value: sigma},
		engine.Coeff{Name: "epsilon", Value: epsilon},
	)
	return b, nil
}

// NewTableBond 可優化的表格鍵長勢能，初始曲線為 quartic 種子在 [lmin, lmax) 上的取值。
func NewTableBond(t1, t2 string, seed potential.Quartic, lmin, lmax float64, n int) (*Bond, error) {
	b, err := newBond(t1, t2)
	if err != nil {
		return nil, err
	}
	grid, dl, err := potential.BondGrid(lmin, lmax, n)
	if err != nil {
		return nil, err
	}
	if err := b.withTable(grid, dl, seed.Eval(grid)); err != nil {
		return nil, err
	}
	return b, nil
}
