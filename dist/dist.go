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

// Package dist 定義分布取樣器（DistributionSampler）的合約：
// 給定軌跡與 type labels，回傳 (x, density) 的直方圖。
//
// 取樣器是外部協作者；本包只描述資料形狀與請求參數，實作見 hist 包或自行注入。
package dist

import (
	"context"

	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
)

// BinsAuto 表示由取樣器依網格範圍自行決定 bin 數，只允許在計算 target 時使用。
const BinsAuto = 0

// Distribution 兩欄資料：X 為 bin 右緣，Y 為正規化密度。
type Distribution struct {
	X []float64 `json:"x" yaml:"x"`
	Y []float64 `json:"y" yaml:"y"`
}

// Len 回傳 bin 數
func (d *Distribution) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Y)
}

// Clone 深拷貝
func (d *Distribution) Clone() *Distribution {
	if d == nil {
		return nil
	}
	return &Distribution{
		X: append([]float64(nil), d.X...),
		Y: append([]float64(nil), d.Y...),
	}
}

// Shifted 回傳 X 平移 dx 的拷貝（原資料不動）
func (d *Distribution) Shifted(dx float64) *Distribution {
	c := d.Clone()
	for i := range c.X {
		c.X[i] += dx
	}
	return c
}

// Validate 檢查兩欄長度一致且非空
func (d *Distribution) Validate() error {
	if d == nil || len(d.Y) == 0 {
		return errs.Dataf("distribution is empty")
	}
	if len(d.X) != len(d.Y) {
		return errs.Dataf("distribution columns mismatch: x=%d y=%d", len(d.X), len(d.Y))
	}
	return nil
}

// Request 一次取樣的參數。
//
// Lo / Hi / Spacing 為勢能網格的範圍與間距；取樣器以網格點為 bin 中心，
// 使回傳的第 i 個 bin 與網格第 i 點對齊。
type Request struct {
	Path          string         // 軌跡路徑
	Kind          potential.Kind // bond / angle / pair
	Types         []string       // 正規化後的 type labels
	Frames        int            // 只取最後 Frames 個 frame（<=0 代表全部）
	Bins          int            // BinsAuto 或固定 bin 數
	Lo            float64        // 網格第一點
	Hi            float64        // 網格最後一點
	Spacing       float64        // 網格間距
	ExcludeBonded bool           // RDF 是否排除有鍵結的粒子對
}

// Sampler 外部分布取樣器
type Sampler interface {
	Sample(ctx context.Context, req Request) (*Distribution, error)
}

// SamplerFunc 讓一般函數也能當作 Sampler 注入
type SamplerFunc func(ctx context.Context, req Request) (*Distribution, error)

func (f SamplerFunc) Sample(ctx context.Context, req Request) (*Distribution, error) {
	return f(ctx, req)
}
