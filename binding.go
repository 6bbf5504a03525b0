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
	"github.com/zintix-labs/msibi/dist"
	"github.com/zintix-labs/msibi/potential"
)

// Binding 勢能與 State 的關聯，每次 Optimize 重新建立。
//   - Target：只在 active kind 上計算一次，之後不再改變。
//   - Current：每輪以查詢軌跡重算並覆寫。
//   - NBins：由 Target 決定後凍結，之後的取樣都沿用。
//   - FitHistory：每輪附加一個相似度分數，只增不減。
type Binding struct {
	State      *State
	Target     *dist.Distribution
	Current    *dist.Distribution
	NBins      int
	Alpha      float64
	AlphaForm  potential.AlphaForm
	FitHistory []float64
}

// HasTarget 是否參與優化
func (b *Binding) HasTarget() bool {
	return b != nil && b.Target != nil
}

// LastFit 最近一次的相似度；還沒有紀錄時回傳 false
func (b *Binding) LastFit() (float64, bool) {
	if b == nil || len(b.FitHistory) == 0 {
		return 0, false
	}
	return b.FitHistory[len(b.FitHistory)-1], true
}
