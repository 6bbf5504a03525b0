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
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/msibi/dist"
	"github.com/zintix-labs/msibi/errs"
)

// TextSource 讀取外部後處理工具輸出的原始樣本檔：
//
//	{trajectory}.{kind}.{A-B[-C]}.txt      或加上 .zst 壓縮
//
// 每列「frame value [bonded]」，bonded 為 0/1，只對 pair 有意義。
// 軌跡格式的解析（gsd/dcd/...）不在本包範圍內。
type TextSource struct{}

// SamplePath 回傳某軌跡、某 type 組合的樣本檔路徑（不含 .zst）
func SamplePath(req dist.Request) string {
	return fmt.Sprintf("%s.%s.%s.txt", req.Path, req.Kind, strings.Join(req.Types, "-"))
}

type row struct {
	frame  int
	value  float64
	bonded bool
}

func (TextSource) Samples(ctx context.Context, req dist.Request) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "hist: sampling canceled")
	}
	if req.Path == "" {
		return nil, errs.Dataf("hist: trajectory path is empty for %v", req.Types)
	}
	rows, err := readRows(SamplePath(req))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.Dataf("hist: %s has no samples for %v", req.Path, req.Types)
	}
	keep := frameWindow(rows, req.Frames)
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.frame < keep {
			continue
		}
		if req.ExcludeBonded && r.bonded {
			continue
		}
		out = append(out, r.value)
	}
	return out, nil
}

// frameWindow 回傳要保留的最小 frame 編號（最後 n 個 frame）
func frameWindow(rows []row, n int) int {
	if n <= 0 {
		return math.MinInt
	}
	seen := make(map[int]struct{}, 64)
	for _, r := range rows {
		seen[r.frame] = struct{}{}
	}
	frames := make([]int, 0, len(seen))
	for f := range seen {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	if n >= len(frames) {
		return frames[0]
	}
	return frames[len(frames)-n]
}

func readRows(path string) ([]row, error) {
	var (
		f   *os.File
		err error
		r   io.Reader
	)
	if f, err = os.Open(path); err == nil {
		r = f
	} else if f, err = os.Open(path + ".zst"); err == nil {
		zr, zerr := zstd.NewReader(f)
		if zerr != nil {
			_ = f.Close()
			return nil, errs.WrapData(zerr, "hist: open zstd "+path+".zst")
		}
		defer zr.Close()
		r = zr
	} else {
		return nil, errs.WrapData(err, "hist: trajectory samples missing: "+path)
	}
	defer func() { _ = f.Close() }()

	rows := make([]row, 0, 4096)
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
			return nil, errs.Dataf("hist: %s line %d: want 'frame value [bonded]'", path, line)
		}
		fr, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errs.WrapData(err, fmt.Sprintf("hist: %s line %d frame", path, line))
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errs.WrapData(err, fmt.Sprintf("hist: %s line %d value", path, line))
		}
		rw := row{frame: fr, value: v}
		if len(fields) > 2 {
			rw.bonded = fields[2] == "1"
		}
		rows = append(rows, rw)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.WrapData(err, "hist: read "+path)
	}
	return rows, nil
}
