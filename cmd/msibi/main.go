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

// Command msibi 依設定檔跑一次 MS-IBI 優化。
//
//	go run ./cmd/msibi -config run.yaml
//	go run ./cmd/msibi -config run.yaml -serve 127.0.0.1:5808 -hold
//
// 結束時把每輪分數寫到 optimize.history_file，並輸出擬合報表。
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zintix-labs/msibi"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/logger"
	"github.com/zintix-labs/msibi/perf"
	"github.com/zintix-labs/msibi/recorder"
	"github.com/zintix-labs/msibi/report"
	"github.com/zintix-labs/msibi/server"
	"github.com/zintix-labs/msibi/server/app"
	"github.com/zintix-labs/msibi/server/svrcfg"
	"github.com/zintix-labs/msibi/spec"
)

type config struct {
	Config   string
	LogMode  string
	Serve    string
	Hold     bool
	PB       bool
	Format   string
	PProf    string
	PProfDir string
}

func main() {
	if err := run(parseFlags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags() *config {
	cfg := new(config)
	flag.StringVar(&cfg.Config, "config", "msibi.yaml", "run setting file (.yaml / .yml / .json)")
	flag.StringVar(&cfg.LogMode, "log", "dev", "log mode: dev|prod|silence")
	flag.StringVar(&cfg.Serve, "serve", "", "serve read-only status API on this address while optimizing")
	flag.BoolVar(&cfg.Hold, "hold", false, "keep serving after the optimization finishes (needs -serve)")
	flag.BoolVar(&cfg.PB, "pb", true, "show progress bar")
	flag.StringVar(&cfg.Format, "format", "text", "report format: text|json|yaml")
	flag.StringVar(&cfg.PProf, "pprof", "", "profile the run: cpu|heap|allocs")
	flag.StringVar(&cfg.PProfDir, "pprof-dir", perf.DefaultDir, "profile output directory")
	flag.Parse()
	return cfg
}

func run(cfg *config) error {
	mode, err := logger.ParseLogMode(cfg.LogMode)
	if err != nil {
		return err
	}
	render, ok := report.RenderFor(cfg.Format)
	if !ok {
		return errs.Configf("report format %q not supported: want text, json or yaml", cfg.Format)
	}
	log, ah := logger.NewAsync(4096, mode)
	defer ah.Close()

	setting, err := spec.LoadFile(cfg.Config)
	if err != nil {
		return err
	}
	rec := recorder.NewFitRecorder()
	sess, err := setting.Build(
		msibi.WithLogger(log),
		msibi.WithObserver(rec),
		msibi.WithProgressBar(cfg.PB),
	)
	if err != nil {
		return err
	}
	req, err := setting.Request()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exe := func() error {
		if cfg.Serve == "" {
			return sess.Optimize(ctx, req)
		}
		job := app.NewJob(func(jctx context.Context) error {
			if err := sess.Optimize(jctx, req); err != nil {
				return err
			}
			if cfg.Hold {
				log.Info("[msibi] optimization finished; still serving, interrupt to exit")
				<-jctx.Done()
			}
			return nil
		})
		return server.Run(ctx, &svrcfg.SvrCfg{Log: log, Addr: cfg.Serve, Recorder: rec, Session: sess}, job)
	}
	runErr := perf.RunPProf(exe, cfg.PProf, cfg.PProfDir)

	if path := setting.Optimize.HistoryFile; path != "" {
		if err := rec.SaveHistoryFile(path); err != nil {
			log.Error("[msibi] save history", slog.Any("err", err))
		}
	}
	if err := render.Write(os.Stdout, report.FromRecorder(rec)); err != nil {
		log.Error("[msibi] write report", slog.Any("err", err))
	}
	return runErr
}
