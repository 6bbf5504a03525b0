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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zintix-labs/msibi/errs"
)

// Gradient 與 numpy.gradient 相同：內部中央差分、兩端單邊差分。
func Gradient(v []float64, dx float64) []float64 {
	n := len(v)
	g := make([]float64, n)
	if n < 2 || dx == 0 {
		return g
	}
	g[0] = (v[1] - v[0]) / dx
	g[n-1] = (v[n-1] - v[n-2]) / dx
	for i := 1; i < n-1; i++ {
		g[i] = (v[i+1] - v[i-1]) / (2 * dx)
	}
	return g
}

// WriteTable 寫出表格勢能：每列「網格值 能量」，withForce 時多一欄 F = -dV/dx。
// 外部引擎的 run script 以路徑引用這個檔案。
func WriteTable(w io.Writer, grid, v []float64, dx float64, withForce bool) error {
	if len(grid) != len(v) {
		return errs.Dataf("write table: grid len %d != potential len %d", len(grid), len(v))
	}
	var f []float64
	if withForce {
		f = Gradient(v, dx)
		for i := range f {
			f[i] = -f[i]
		}
	}
	bw := bufio.NewWriter(w)
	for i := range grid {
		var err error
		if withForce {
			_, err = fmt.Fprintf(bw, "%.12e %.12e %.12e\n", grid[i], v[i], f[i])
		} else {
			_, err = fmt.Fprintf(bw, "%.12e %.12e\n", grid[i], v[i])
		}
		if err != nil {
			return errs.Wrap(err, "write table")
		}
	}
	if err := bw.Flush(); err != nil {
		return errs.Wrap(err, "write table: flush")
	}
	return nil
}

// ReadTable 讀回前兩欄（網格值、能量），忽略空行與 # 註解。
func ReadTable(r io.Reader) (grid, v []float64, err error) {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		fields := strings.Fields(s)
		if len(fields) < 2 {
			return nil, nil, errs.Dataf("read table: line %d has %d columns, want >= 2", line, len(fields))
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, errs.WrapData(err, fmt.Sprintf("read table: line %d", line))
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, errs.WrapData(err, fmt.Sprintf("read table: line %d", line))
		}
		grid = append(grid, x)
		v = append(v, y)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, errs.WrapData(err, "read table")
	}
	return grid, v, nil
}
