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

package recorder_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/zintix-labs/distlab/recorder"
	"github.com/zintix-labs/distlab/spec"
)

func newTestRecorder(t *testing.T) *recorder.DrawRecorder {
	t.Helper()
	rec, err := recorder.NewDrawRecorder(
		"TestDist", spec.DID("test"), spec.SamplerLinear,
		[]string{"a", "b", "c"},
		[]float64{0.5, 0.25, 0.25},
	)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return rec
}

func TestDrawRecorderDone(t *testing.T) {
	rec := newTestRecorder(t)
	for _, idx := range []int{0, 0, 1, 2} {
		rec.Record(idx)
	}

	rep := rec.Done()
	if rep.Summary.Rounds != 4 {
		t.Fatalf("rounds got %d want 4", rep.Summary.Rounds)
	}
	if rep.Summary.SumDraw != 3 || rep.Summary.SumDrawSq != 5 {
		t.Fatalf("sums got (%d,%d) want (3,5)", rep.Summary.SumDraw, rep.Summary.SumDrawSq)
	}
	// ExpMean = 0*0.5 + 1*0.25 + 2*0.25
	if math.Abs(rep.Summary.ExpMean-0.75) > 1e-12 {
		t.Fatalf("ExpMean got %.4f want 0.75", rep.Summary.ExpMean)
	}
	if rep.Freq.Counts[0] != 2 || rep.Freq.Counts[1] != 1 || rep.Freq.Counts[2] != 1 {
		t.Fatalf("counts got %v", rep.Freq.Counts)
	}
}

func TestDrawRecorderRecordPanicsOutOfRange(t *testing.T) {
	rec := newTestRecorder(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on out-of-range index")
		}
	}()
	rec.Record(3)
}

func TestMergeDrawRecorder(t *testing.T) {
	a := newTestRecorder(t)
	b := newTestRecorder(t)
	a.Record(0)
	a.Record(2)
	b.Record(1)
	b.Record(2)

	m, err := recorder.MergeDrawRecorder([]*recorder.DrawRecorder{a, b})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if m.Basic.Rounds != 4 {
		t.Fatalf("merged rounds got %d want 4", m.Basic.Rounds)
	}
	if m.Freq.Counts[2] != 2 {
		t.Fatalf("merged counts got %v", m.Freq.Counts)
	}

	other, _ := recorder.NewDrawRecorder("Other", spec.DID("other"), spec.SamplerAlias,
		[]string{"a", "b", "c"}, []float64{0.5, 0.25, 0.25})
	if _, err := recorder.MergeDrawRecorder([]*recorder.DrawRecorder{a, other}); err == nil {
		t.Fatalf("merge of mismatched recorders should fail")
	}
}

func TestDrawLogRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	lw, err := recorder.NewDrawLogWriter(&buf)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	draws := []int{0, 2, 1, 1, 0, 2, 2, 0}
	for _, d := range draws {
		if err := lw.Append(d); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := lw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	lr, err := recorder.NewDrawLogReader(&buf)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer lr.Close()

	rec := newTestRecorder(t)
	if err := lr.Replay(rec); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if rec.Basic.Rounds != len(draws) {
		t.Fatalf("replayed rounds got %d want %d", rec.Basic.Rounds, len(draws))
	}
	if rec.Freq.Counts[2] != 3 {
		t.Fatalf("replayed counts got %v", rec.Freq.Counts)
	}
}

func TestDrawLogAppendRejectsNegative(t *testing.T) {
	var buf bytes.Buffer
	lw, err := recorder.NewDrawLogWriter(&buf)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer lw.Close()
	if err := lw.Append(-1); err == nil {
		t.Fatalf("negative index should be rejected")
	}
}
