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
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/msibi/engine"
	"github.com/zintix-labs/msibi/errs"
)

// QueryPool 以固定數量的 worker 執行每個 state 的查詢模擬。
//
// RunAll 是一個 barrier：全部 state 完成才返回。任一 state 失敗（error 或 panic）時，
// 取消其餘仍在執行的 state，並回傳第一個失敗（ExternalFailure），整個 iteration 中止。
type QueryPool struct {
	runner   engine.Runner
	size     int
	done     chan struct{} // 關閉後不再接受 RunAll
	once     sync.Once
	inflight atomic.Int32 // 執行中
	runs     atomic.Int64 // 成功次數
	fails    atomic.Int64 // 失敗次數
	panics   atomic.Int32 // panic 次數
	batches  atomic.Int64 // RunAll 次數
	lastErr  atomic.Value // string: 最近一次失敗
}

func newQueryPool(r engine.Runner, n int) *QueryPool {
	p := &QueryPool{
		runner: r,
		size:   max(1, n),
		done:   make(chan struct{}),
	}
	p.lastErr.Store("")
	return p
}

// Close 進入關閉狀態，之後的 RunAll 直接失敗
func (p *QueryPool) Close() {
	p.once.Do(func() { close(p.done) })
}

func (p *QueryPool) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// RunAll 執行所有 job 並等待全部結束
func (p *QueryPool) RunAll(ctx context.Context, jobs []engine.Job) error {
	if p.Closed() {
		return errs.NewFatal("query pool closed")
	}
	if len(jobs) == 0 {
		return nil
	}
	p.batches.Add(1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		first error
		fail  sync.Once
	)
	ch := make(chan engine.Job)
	for w := 0; w < min(p.size, len(jobs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range ch {
				if err := p.run(ctx, j); err != nil {
					fail.Do(func() {
						first = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case ch <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(ch)
	wg.Wait()

	if first != nil {
		return first
	}
	return ctx.Err()
}

func (p *QueryPool) run(ctx context.Context, j engine.Job) (err error) {
	p.inflight.Add(1)
	defer func() {
		p.inflight.Add(-1)
		if r := recover(); r != nil {
			p.panics.Add(1)
			err = errs.External(fmt.Errorf("panic: %v", r), "query simulation panic", "state="+j.State)
		}
		if err != nil {
			p.fails.Add(1)
			p.lastErr.Store(err.Error())
			return
		}
		p.runs.Add(1)
	}()

	if err := p.runner.Run(ctx, j); err != nil {
		if errs.IsKind(err, errs.KindExternal) {
			return err
		}
		return errs.External(err, "query simulation failed", "state="+j.State)
	}
	return nil
}

// QueryPoolMetrics 拉取式的觀測快照
type QueryPoolMetrics struct {
	Size     int    `json:"size"`
	Inflight int    `json:"inflight"`
	Runs     int64  `json:"runs"`
	Fails    int64  `json:"fails"`
	Panics   int    `json:"panics"`
	Batches  int64  `json:"batches"`
	Closed   bool   `json:"closed"`
	LastErr  string `json:"last_err,omitempty"`
}

func (p *QueryPool) Metrics() QueryPoolMetrics {
	m := QueryPoolMetrics{
		Size:     p.size,
		Inflight: int(p.inflight.Load()),
		Runs:     p.runs.Load(),
		Fails:    p.fails.Load(),
		Panics:   int(p.panics.Load()),
		Batches:  p.batches.Load(),
		Closed:   p.Closed(),
	}
	if s, ok := p.lastErr.Load().(string); ok {
		m.LastErr = s
	}
	return m
}
