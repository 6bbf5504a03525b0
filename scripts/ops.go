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

// ops 是開發用的小工具：
//
//	go run ./scripts test            # 只列出每個套件 ok / FAIL
//	go run ./scripts test-detail     # verbose，略過沒有測試的套件
//	go run ./scripts history FILE    # 印出 history.json.zst 的每輪平均分數
package main

import (
	"fmt"
	"os"
)

type color string

const (
	colorYellow color = "\033[33m"
	colorGreen  color = "\033[32m"
	colorRed    color = "\033[31m"
	colorReset        = "\033[0m"
)

func printc(c color, msg string) { fmt.Printf("%s%s%s\n", c, msg, colorReset) }

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts [test|test-detail|history FILE]")
		os.Exit(1)
	}
	var err error
	switch task := os.Args[1]; task {
	case "test":
		err = runTest(false)
	case "test-detail":
		err = runTest(true)
	case "history":
		if len(os.Args) < 3 {
			err = fmt.Errorf("history needs a file argument")
			break
		}
		err = printHistory(os.Args[2])
	default:
		err = fmt.Errorf("unknown task: %s", task)
	}
	if err != nil {
		printc(colorRed, err.Error())
		os.Exit(1)
	}
}
