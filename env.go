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
	"strings"

	"github.com/zintix-labs/msibi/dist"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ZeroPolicy 非正密度在 log 比值更新中的處理方式
type ZeroPolicy uint8

const (
	// ZeroCarry 任一側密度 <= 0 的網格點不貢獻修正（沿用前一輪的值）；
	// 完全沒有可用的點時視為退化分布。
	ZeroCarry ZeroPolicy = iota
	// ZeroStrict 任一網格點出現非正密度即為 DataError。
	ZeroStrict
)

func (z ZeroPolicy) String() string {
	if z == ZeroStrict {
		return "strict"
	}
	return "carry"
}

// ParseZeroPolicy 空字串視為 carry
func ParseZeroPolicy(s string) (ZeroPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "carry":
		return ZeroCarry, nil
	case "strict":
		return ZeroStrict, nil
	}
	return 0, errs.Configf("zero policy %q not supported: want carry or strict", s)
}

// Env 一次 Optimize 期間共用的參數。
// 以參數傳給勢能與 state 的操作，State 本身不持有任何回到 Session 的參考。
type Env struct {
	Active        potential.Kind
	Sampler       dist.Sampler
	Frames        int
	ExcludeBonded bool
	Smooth        bool
	SGWindow      int
	SGOrder       int
	Zero          ZeroPolicy
	RSwitch       float64 // 0 代表各 pair 使用自己網格的預設值
	Head          potential.HeadForm
}

func (e *Env) smooth(y []float64) ([]float64, error) {
	w, o := e.SGWindow, e.SGOrder
	if w == 0 {
		w = potential.DefaultSGWindow
	}
	if o == 0 {
		o = potential.DefaultSGOrder
	}
	return potential.SavitzkyGolay(y, w, o)
}

// canonical 依自然排序正規化 type labels：兩個 label 直接排序；
// 三個 label 時中心保持不動，外側兩個排序。
func canonical(kind potential.Kind, types []string) ([]string, error) {
	if len(types) != kind.Arity() {
		return nil, errs.Configf("%s needs %d type labels, got %d", kind, kind.Arity(), len(types))
	}
	out := make([]string, len(types))
	for i, t := range types {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, errs.Configf("%s has an empty type label", kind)
		}
		out[i] = t
	}
	c := collate.New(language.Und, collate.Numeric)
	less := func(a, b string) bool {
		if r := c.CompareString(a, b); r != 0 {
			return r < 0
		}
		return a < b
	}
	last := len(out) - 1
	if less(out[last], out[0]) {
		out[0], out[last] = out[last], out[0]
	}
	return out, nil
}

// CanonicalName 回傳正規化後以 '-' 串接的名稱
func CanonicalName(kind potential.Kind, types ...string) (string, error) {
	out, err := canonical(kind, types)
	if err != nil {
		return "", err
	}
	return strings.Join(out, "-"), nil
}
