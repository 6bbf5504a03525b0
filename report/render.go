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

package report

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// Render 報表輸出格式
type Render interface {
	Write(w io.Writer, r *FitReport) error
}

// JSONRender JSON 輸出
type JSONRender struct{}

func (JSONRender) Write(w io.Writer, r *FitReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// YAMLRender YAML 輸出；最內層的一維陣列（曲線、history）用 flow style。
type YAMLRender struct{}

func (YAMLRender) Write(w io.Writer, r *FitReport) error {
	var node yaml.Node
	if err := node.Encode(r); err != nil {
		return err
	}
	flowInnerSequences(&node)
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

// TextRender 文字表格
type TextRender struct{}

func (TextRender) Write(w io.Writer, r *FitReport) error {
	_, err := io.WriteString(w, r.Table())
	return err
}

// RenderFor 依名稱取輸出格式：text / json / yaml
func RenderFor(name string) (Render, bool) {
	switch name {
	case "", "text":
		return TextRender{}, true
	case "json":
		return JSONRender{}, true
	case "yaml", "yml":
		return YAMLRender{}, true
	}
	return nil, false
}

// flowInnerSequences 沒有子 sequence 的 sequence 改成 [a, b, c]；外層維持展開
func flowInnerSequences(n *yaml.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			flowInnerSequences(c)
		}
	case yaml.SequenceNode:
		inner := true
		for _, c := range n.Content {
			if c != nil && (c.Kind == yaml.SequenceNode || c.Kind == yaml.MappingNode) {
				inner = false
			}
			flowInnerSequences(c)
		}
		if inner {
			n.Style = yaml.FlowStyle
		}
	}
}
