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

package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapKeepsKindAndLevel(t *testing.T) {
	base := Dataf("bins mismatch: %d != %d", 10, 11)
	w := Wrap(base, "update bond A-B")
	if w.Kind != KindData {
		t.Fatalf("kind got %v want data", w.Kind)
	}
	if w.ErrLv != Fatal {
		t.Fatalf("level got %v want fatal", w.ErrLv)
	}
	if !IsKind(w, KindData) {
		t.Fatalf("IsKind data should be true")
	}
	if IsKind(w, KindConfig) {
		t.Fatalf("IsKind config should be false")
	}
	if !errors.Is(w, base) {
		t.Fatalf("errors.Is should reach the cause")
	}
}

func TestWrapForeignErrorIsFatal(t *testing.T) {
	w := Wrap(errors.New("disk full"), "write table")
	if w.ErrLv != Fatal || w.Kind != KindNone {
		t.Fatalf("got lv=%v kind=%v", w.ErrLv, w.Kind)
	}
	if IsKind(w, KindData) {
		t.Fatalf("foreign error must not carry a kind")
	}
	d := WrapData(errors.New("no such file"), "read trajectory")
	if !IsKind(d, KindData) {
		t.Fatalf("WrapData must tag data kind")
	}
}

func TestExternalMessage(t *testing.T) {
	e := External(errors.New("exit status 1"), "query simulation failed", "state=A")
	msg := e.Error()
	for _, want := range []string{"kind=external", "state=A", "exit status 1"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
	if !IsKind(WrapWithExtra(e, "iteration 3", "pool"), KindExternal) {
		t.Fatalf("wrapped external error lost its kind")
	}
}

func TestConfigfIsWarn(t *testing.T) {
	e := Configf("integrator %s not supported", "nve")
	if e.ErrLv != Warn || e.Kind != KindConfig {
		t.Fatalf("got lv=%v kind=%v", e.ErrLv, e.Kind)
	}
	if got, ok := AsErr(e); !ok || got != e {
		t.Fatalf("AsErr failed")
	}
}
