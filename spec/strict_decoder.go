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

package spec

import (
	"bytes"
	"encoding/json"

	"github.com/zintix-labs/msibi/errs"
	"gopkg.in/yaml.v3"
)

// DecodeYAML 嚴格解碼：多寫或拼錯欄位就報錯
func DecodeYAML[T any](data []byte, out *T) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return errs.WrapWithExtra(err, "spec: decode yaml failed", "config")
	}
	return nil
}

// DecodeJSON 與 DecodeYAML 相同的嚴格規則
func DecodeJSON[T any](data []byte, out *T) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return errs.WrapWithExtra(err, "spec: decode json failed", "config")
	}
	return nil
}
