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

// Package report 把優化結果整理成擬合報表，並以文字表格、JSON 或 YAML 輸出。
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/msibi"
	"github.com/zintix-labs/msibi/recorder"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// FitReport 一次 Optimize 的結果
type FitReport struct {
	Kind       string            `json:"kind" yaml:"kind"`
	Start      int               `json:"start" yaml:"start"`
	End        int               `json:"end" yaml:"end"`
	Iteration  int               `json:"iteration" yaml:"iteration"`
	Elapsed    string            `json:"elapsed" yaml:"elapsed"`
	Err        string            `json:"err,omitempty" yaml:"err,omitempty"`
	Potentials []PotentialReport `json:"potentials" yaml:"potentials"`
}

// PotentialReport 單一勢能的擬合情況
type PotentialReport struct {
	Name    string        `json:"name" yaml:"name"`
	MeanFit float64       `json:"mean_fit" yaml:"mean_fit"`
	States  []StateReport `json:"states" yaml:"states"`
}

// StateReport 單一 state：最終分數、最佳分數與出現的 iteration
type StateReport struct {
	State    string    `json:"state" yaml:"state"`
	Fit      float64   `json:"fit" yaml:"fit"`
	Best     float64   `json:"best" yaml:"best"`
	BestIter int       `json:"best_iter" yaml:"best_iter"`
	History  []float64 `json:"history" yaml:"history"`
}

// FromRecorder 由 FitRecorder 的最新快照與狀態建立報表
func FromRecorder(r *recorder.FitRecorder) *FitReport {
	st := r.Status()
	rep := New(r.Latest(), st.Elapsed)
	rep.Err = st.Err
	return rep
}

// New 由快照建立報表；BestIter 以快照的起始 iteration 為基準
func New(s msibi.Snapshot, elapsed time.Duration) *FitReport {
	rep := &FitReport{
		Kind:      s.Kind.Plural(),
		Start:     s.Start,
		End:       s.End,
		Iteration: s.Iteration,
		Elapsed:   elapsed.Round(time.Millisecond).String(),
	}
	for _, p := range s.Potentials {
		pr := PotentialReport{Name: p.Name, MeanFit: p.MeanFit()}
		for _, st := range p.States {
			sr := StateReport{State: st.State, Fit: st.Fit, History: st.History, BestIter: -1}
			for i, f := range st.History {
				if sr.BestIter < 0 || f > sr.Best {
					sr.Best = f
					sr.BestIter = s.Start + i
				}
			}
			pr.States = append(pr.States, sr)
		}
		rep.Potentials = append(rep.Potentials, pr)
	}
	return rep
}

// Table 文字表格：每個勢能 × state 一列
func (r *FitReport) Table() string {
	p := message.NewPrinter(lang)
	title := p.Sprintf("MS-IBI %s  iterations %d..%d", r.Kind, r.Start, r.End-1)
	header := []string{"Potential", "State", "Fit", "Best", "Best Iter"}
	rows := make([][]string, 0, 8)
	for _, pr := range r.Potentials {
		for _, st := range pr.States {
			best := "-"
			if st.BestIter >= 0 {
				best = p.Sprintf("%d", st.BestIter)
			}
			rows = append(rows, []string{
				pr.Name,
				st.State,
				p.Sprintf("%.4f", st.Fit),
				p.Sprintf("%.4f", st.Best),
				best,
			})
		}
	}
	return fmtTable(title, header, rows)
}

// StdOut 印出耗時與表格
func (r *FitReport) StdOut(w io.Writer) {
	p := message.NewPrinter(lang)
	p.Fprintf(w, "used: %s\n", r.Elapsed)
	if r.Err != "" {
		p.Fprintf(w, "err : %s\n", r.Err)
	}
	fmt.Fprint(w, r.Table())
}

func fmtTable(title string, header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h) + 2
	}
	for _, row := range rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c) + 2; w > widths[i] {
				widths[i] = w
			}
		}
	}
	inner := len(widths) - 1
	for _, w := range widths {
		inner += w
	}
	if tw := runewidth.StringWidth(title) + 2; tw > inner {
		widths[len(widths)-1] += tw - inner
		inner = tw
	}

	var b strings.Builder
	divider := "+"
	for _, w := range widths {
		divider += strings.Repeat("-", w) + "+"
	}
	divider += "\n"

	left := (inner - runewidth.StringWidth(title)) / 2
	right := inner - runewidth.StringWidth(title) - left
	b.WriteString("+" + strings.Repeat("-", inner) + "+\n")
	b.WriteString("|" + blank(left) + title + blank(right) + "|\n")
	b.WriteString(divider)
	writeRow(&b, header, widths)
	b.WriteString(divider)
	for _, row := range rows {
		writeRow(&b, row, widths)
	}
	b.WriteString(divider)
	return b.String()
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	b.WriteString("|")
	for i, c := range cells {
		b.WriteString(" " + c + blank(widths[i]-1-runewidth.StringWidth(c)) + "|")
	}
	b.WriteString("\n")
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
