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

// Package server 組裝唯讀的優化狀態伺服器：驗證 SvrCfg、建立 HTTP server、註冊路由，
// 並與呼叫端的背景工作（通常是 Session.Optimize）一起交給 app.App 管理。
package server

import (
	"context"

	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/server/api"
	"github.com/zintix-labs/msibi/server/app"
	"github.com/zintix-labs/msibi/server/netsvr"
	"github.com/zintix-labs/msibi/server/svrcfg"
)

// Run 以內建的 ChiAdapter 監聽 sCfg.Addr。
// 任一 jobs 返回或 ctx 結束時關閉 server，回傳值為 job 的錯誤。
func Run(ctx context.Context, sCfg *svrcfg.SvrCfg, jobs ...app.Component) error {
	if err := sCfg.Valid(); err != nil {
		return err
	}
	return RunWithSvr(ctx, sCfg, netsvr.NewChiServer(sCfg.Addr), jobs...)
}

// RunWithSvr 與 Run 相同，但使用呼叫端注入的 NetSvr。
func RunWithSvr(ctx context.Context, sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr, jobs ...app.Component) error {
	if err := sCfg.Valid(); err != nil {
		return err
	}
	if svr == nil {
		return errs.Configf("server: svr is required")
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		return errs.Configf("server: chi adapter is not ready")
	}
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		return err
	}
	a := app.NewWith(sCfg.Log, svr)
	for _, j := range jobs {
		a.Register(j)
	}
	if c, ok := svr.(*netsvr.ChiAdapter); ok {
		sCfg.Log.Info("[msibi] status server listening on http://" + c.Address())
	}
	return a.Run(ctx)
}
