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

package recorder

import (
	"fmt"

	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/spec"
	"github.com/zintix-labs/distlab/stats"
)

// DrawRecorder 抽樣紀錄員
//
// DrawRecorder 負責紀錄抽樣結果，並透過Done輸出統計報表。
// 紀錄過程只累積 int 計數，換算浮點統計量交給報表。
type DrawRecorder struct {
	DistName string
	DistId   spec.DID
	Sampler  spec.SamplerKey
	Labels   []string
	Expected []float64 // 理論 pmf（已正規化）
	Basic    *BasicRecord
	Freq     *FreqRecord
}

// BasicRecord 基本抽樣資料紀錄
type BasicRecord struct {
	SumDraw   int
	SumDrawSq int // 平方和
	Rounds    int
}

// FreqRecord 各類別落點統計
type FreqRecord struct {
	Counts []int
}

func NewDrawRecorder(name string, id spec.DID, sampler spec.SamplerKey, labels []string, expected []float64) (*DrawRecorder, error) {
	s := new(DrawRecorder)

	if len(expected) == 0 {
		return s, errs.NewFatal(fmt.Sprintf("expected pmf err %v", expected))
	}
	if len(labels) != len(expected) {
		return s, errs.NewFatal(fmt.Sprintf("labels length %d != pmf length %d", len(labels), len(expected)))
	}
	// 通過valid
	s.DistName = name
	s.DistId = id
	s.Sampler = sampler
	s.Labels = labels
	s.Expected = expected
	s.Basic = new(BasicRecord)
	s.Freq = &FreqRecord{Counts: make([]int, len(expected))}

	return s, nil
}

// MergeDrawRecorder 合併多個 worker 的紀錄（必須來自相同的分布設定）
func MergeDrawRecorder(r []*DrawRecorder) (*DrawRecorder, error) {
	r0 := r[0]
	s, err := NewDrawRecorder(r0.DistName, r0.DistId, r0.Sampler, r0.Labels, r0.Expected)
	if err != nil {
		return s, err
	}
	for _, v := range r {
		if v.DistName != r0.DistName {
			return s, errs.NewFatal("merge draw record err : different dist name")
		}
		if v.DistId != r0.DistId {
			return s, errs.NewFatal("merge draw record err : different dist id")
		}
		if v.Sampler != r0.Sampler {
			return s, errs.NewFatal("merge draw record err : different sampler")
		}
		if len(v.Freq.Counts) != len(r0.Freq.Counts) {
			return s, errs.NewFatal("merge draw record err : different category count")
		}
		s.Basic.SumDraw += v.Basic.SumDraw
		s.Basic.SumDrawSq += v.Basic.SumDrawSq
		s.Basic.Rounds += v.Basic.Rounds

		// 整合Freq
		for i := range len(v.Freq.Counts) {
			s.Freq.Counts[i] += v.Freq.Counts[i]
		}
	}
	return s, nil
}

// Record 紀錄單次抽樣結果
//
// idx 超出類別範圍代表抽樣引擎違約，直接 panic。
func (s *DrawRecorder) Record(idx int) {
	if idx < 0 || idx >= len(s.Freq.Counts) {
		panic(fmt.Sprintf("draw index %d outside [0, %d)", idx, len(s.Freq.Counts)))
	}
	s.Freq.Counts[idx]++
	s.Basic.SumDraw += idx
	s.Basic.SumDrawSq += idx * idx
	s.Basic.Rounds++
}

func (s *DrawRecorder) Done() *stats.FreqReport {
	report := &stats.FreqReport{
		Summary: &stats.SummaryReport{
			DistName:  s.DistName,
			DistId:    s.DistId,
			Sampler:   s.Sampler,
			K:         len(s.Freq.Counts),
			Rounds:    s.Basic.Rounds,
			SumDraw:   s.Basic.SumDraw,
			SumDrawSq: s.Basic.SumDrawSq,
			ExpMean:   s.expMean(),
		},
		Freq: &stats.FreqDetail{
			Labels:   s.Labels,
			Counts:   s.Freq.Counts,
			Expected: s.Expected,
		},
	}
	report.Done()
	return report
}

func (s *DrawRecorder) expMean() float64 {
	m := 0.0
	for i, p := range s.Expected {
		m += float64(i) * p
	}
	return m
}
