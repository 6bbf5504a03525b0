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

package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
)

// TemplateVersion 腳本片段的合約版本；語句格式變更時必須遞增。
const TemplateVersion = "hoomd-v2"

// Form 勢能型式
type Form string

const (
	Harmonic Form = "harmonic"
	FENE     Form = "fene"
	CosineSq Form = "cosinesq"
	LJ       Form = "lj"
	Table    Form = "table"
)

// Coeff 有序的係數（輸出順序即宣告順序）
type Coeff struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// Descriptor 勢能對引擎的描述：static 型式帶係數，table 型式帶檔案路徑與寬度。
type Descriptor struct {
	Kind   potential.Kind `json:"kind" yaml:"kind"`
	Types  []string       `json:"types" yaml:"types"`
	Form   Form           `json:"form" yaml:"form"`
	Coeffs []Coeff        `json:"coeffs,omitempty" yaml:"coeffs,omitempty"`
	File   string         `json:"file,omitempty" yaml:"file,omitempty"`
	Width  int            `json:"width,omitempty" yaml:"width,omitempty"`
}

// Name 以 '-' 串接 type labels
func (d Descriptor) Name() string {
	return strings.Join(d.Types, "-")
}

// Coeff 依名稱取係數
func (d Descriptor) Coeff(name string) (float64, bool) {
	for _, c := range d.Coeffs {
		if c.Name == name {
			return c.Value, true
		}
	}
	return 0, false
}

type fragment struct {
	init   string   // 宣告語句，同 (kind, form) 只出現一次
	entry  string   // 每個勢能一條；%s 依序填入 args
	coeffs []string // 依序需要的係數
}

var fragments = map[potential.Kind]map[Form]fragment{
	potential.Bond: {
		Harmonic: {"harmonic_bond = hoomd.md.bond.harmonic()", "harmonic_bond.bond_coeff.set('%s', k=%s, r0=%s)", []string{"k", "l0"}},
		FENE:     {"fene = hoomd.md.bond.fene()", "fene.bond_coeff.set('%s', k=%s, r0=%s, sigma=%s, epsilon=%s)", []string{"k", "r0", "sigma", "epsilon"}},
		Table:    {"btable = hoomd.md.bond.table(width=%d)", "btable.set_from_file('%s', '%s')", nil},
	},
	potential.Angle: {
		Harmonic: {"harmonic_angle = hoomd.md.angle.harmonic()", "harmonic_angle.angle_coeff.set('%s', k=%s, t0=%s)", []string{"k", "theta0"}},
		CosineSq: {"cosinesq = hoomd.md.angle.cosinesq()", "cosinesq.angle_coeff.set('%s', k=%s, t0=%s)", []string{"k", "theta0"}},
		Table:    {"atable = hoomd.md.angle.table(width=%d)", "atable.set_from_file('%s', '%s')", nil},
	},
	potential.Pair: {
		LJ:    {"lj = hoomd.md.pair.lj(r_cut=%s, nlist=nl)", "lj.pair_coeff.set('%s', '%s', epsilon=%s, sigma=%s)", []string{"epsilon", "sigma"}},
		Table: {"ptable = hoomd.md.pair.table(width=%d, nlist=nl)", "ptable.set_from_file('%s', '%s', filename='%s')", nil},
	},
}

// num 不使用指數表示，避免 seed 之類的整數參數變成 1e+06
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Statement 把一個 Descriptor 轉成 (宣告語句, 設定語句)。
func Statement(d Descriptor) (init string, entry string, err error) {
	fr, ok := fragments[d.Kind][d.Form]
	if !ok {
		return "", "", errs.Configf("engine: %s form %q has no %s template", d.Kind, d.Form, TemplateVersion)
	}
	if len(d.Types) != d.Kind.Arity() {
		return "", "", errs.Configf("engine: %s %s needs %d types", d.Kind, d.Name(), d.Kind.Arity())
	}
	if d.Form == Table {
		if d.File == "" {
			return "", "", errs.Configf("engine: table %s %s has no potential file", d.Kind, d.Name())
		}
		if d.Width < 2 {
			return "", "", errs.Configf("engine: table %s %s width %d", d.Kind, d.Name(), d.Width)
		}
		init = fmt.Sprintf(fr.init, d.Width)
		if d.Kind == potential.Pair {
			entry = fmt.Sprintf(fr.entry, d.Types[0], d.Types[1], d.File)
		} else {
			entry = fmt.Sprintf(fr.entry, d.Name(), d.File)
		}
		return init, entry, nil
	}

	args := make([]any, 0, 6)
	if d.Kind == potential.Pair {
		args = append(args, d.Types[0], d.Types[1])
	} else {
		args = append(args, d.Name())
	}
	for _, name := range fr.coeffs {
		v, ok := d.Coeff(name)
		if !ok {
			return "", "", errs.Configf("engine: %s %s %s missing coefficient %q", d.Kind, d.Form, d.Name(), name)
		}
		args = append(args, num(v))
	}
	entry = fmt.Sprintf(fr.entry, args...)
	init = fr.init
	if d.Form == LJ {
		rc, ok := d.Coeff("r_cut")
		if !ok {
			return "", "", errs.Configf("engine: lj pair %s missing r_cut", d.Name())
		}
		init = fmt.Sprintf(fr.init, num(rc))
	}
	return init, entry, nil
}
