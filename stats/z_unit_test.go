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

package stats_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/zintix-labs/distlab/spec"
	"github.com/zintix-labs/distlab/stats"
)

// buildFreqReport constructs a FreqReport from a list of observed category
// indices against the given expected pmf.
func buildFreqReport(expected []float64, draws []int) *stats.FreqReport {
	k := len(expected)
	counts := make([]int, k)
	labels := make([]string, k)
	for i := range labels {
		labels[i] = "cat"
	}

	var sum, sumSq int
	for _, d := range draws {
		counts[d]++
		sum += d
		sumSq += d * d
	}

	expMean := 0.0
	for i, p := range expected {
		expMean += float64(i) * p
	}

	report := &stats.FreqReport{
		Summary: &stats.SummaryReport{
			DistName:  "TestDist",
			DistId:    spec.DID("test"),
			Sampler:   spec.SamplerLinear,
			K:         k,
			Rounds:    len(draws),
			SumDraw:   sum,
			SumDrawSq: sumSq,
			ExpMean:   expMean,
		},
		Freq: &stats.FreqDetail{
			Labels:   labels,
			Counts:   counts,
			Expected: expected,
		},
	}
	report.Done()
	return report
}

func TestFreqReportCoreMetrics(t *testing.T) {
	// [0, 1, 1, 2] over a uniform 3-category pmf
	rep := buildFreqReport([]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, []int{0, 1, 1, 2})

	wantMean := 1.0
	if got := rep.Mean(); math.Abs(got-wantMean) > 1e-12 {
		t.Fatalf("Mean got %.12f want %.12f", got, wantMean)
	}

	// Sample variance of {0,1,1,2} = (0+1+1+4 - 4*1)/3 = 2/3
	wantStd := math.Sqrt(2.0 / 3.0)
	if got := rep.Std(); math.Abs(got-wantStd) > 1e-12 {
		t.Fatalf("Std got %.12f want %.12f", got, wantStd)
	}

	wantCV := wantStd / wantMean
	if got := rep.Cv(); math.Abs(got-wantCV) > 1e-12 {
		t.Fatalf("CV got %.12f want %.12f", got, wantCV)
	}

	ci := rep.Summary.MeanCI
	if ci.Lo > wantMean || ci.Hi < wantMean {
		t.Fatalf("mean CI [%.4f,%.4f] does not contain the observed mean", ci.Lo, ci.Hi)
	}

	if len(rep.Freq.Empirical) != 3 || len(rep.Freq.PmfCI) != 3 {
		t.Fatalf("frequency detail length mismatch")
	}
	if math.Abs(rep.Freq.Empirical[1]-0.5) > 1e-12 {
		t.Fatalf("empirical pmf[1] got %.4f want 0.5", rep.Freq.Empirical[1])
	}

	total := 0
	for _, c := range rep.Freq.Counts {
		total += c
	}
	if total != rep.Summary.Rounds {
		t.Fatalf("counts total %d != rounds %d", total, rep.Summary.Rounds)
	}

	rep.Done() // idempotent
	if rep.Summary.MeanHat != wantMean {
		t.Fatalf("MeanHat changed after second Done")
	}
}

func TestFreqReportFit(t *testing.T) {
	// A well-behaved sample should not be rejected.
	draws := make([]int, 0, 1000)
	for i := 0; i < 250; i++ {
		draws = append(draws, 0, 1, 2, 3)
	}
	rep := buildFreqReport([]float64{0.25, 0.25, 0.25, 0.25}, draws)
	if rep.Fit.Broken {
		t.Fatalf("fit marked broken on a clean sample")
	}
	if rep.Fit.DoF != 3 {
		t.Fatalf("DoF got %d want 3", rep.Fit.DoF)
	}
	if rep.Fit.PValue < 0.05 {
		t.Fatalf("uniform draws rejected: p=%.4f", rep.Fit.PValue)
	}

	// A count in a zero-expected category breaks the sampling contract.
	bad := buildFreqReport([]float64{0.5, 0, 0.5}, []int{0, 1, 2, 2})
	if !bad.Fit.Broken {
		t.Fatalf("zero-expected category with counts not marked broken")
	}
	if bad.Fit.PValue != 0 {
		t.Fatalf("broken fit expected p=0, got %.4f", bad.Fit.PValue)
	}

	// Zero-expected category with no counts is simply excluded.
	ok := buildFreqReport([]float64{0.5, 0, 0.5}, []int{0, 2, 0, 2})
	if ok.Fit.Broken {
		t.Fatalf("empty zero-expected category wrongly marked broken")
	}
	if ok.Fit.DoF != 1 {
		t.Fatalf("DoF got %d want 1", ok.Fit.DoF)
	}
}

func TestEstimatorSimRuns(t *testing.T) {
	// Build 100 single-draw reports with means 0..99 over a 100-category pmf.
	k := 100
	expected := make([]float64, k)
	for i := range expected {
		expected[i] = 1.0 / float64(k)
	}
	reports := make([]*stats.FreqReport, 0, 100)
	for i := 0; i < 100; i++ {
		reports = append(reports, buildFreqReport(expected, []int{i}))
	}

	est := stats.EstimatorSimRuns(reports)
	if math.Abs(est.MeanStat.MeanMedian.Hat-50.0) > 2.0 {
		t.Fatalf("median mean expected ~50, got %.3f", est.MeanStat.MeanMedian.Hat)
	}
	if math.Abs(est.MeanStat.MeanPerc.MeanP90.Hat-90.0) > 2.0 {
		t.Fatalf("P90 mean expected ~90, got %.3f", est.MeanStat.MeanPerc.MeanP90.Hat)
	}

	// ExpMean of the uniform pmf is 49.5, so exactly 50 of the means 0..99 sit below it.
	if est.MeanStat.MeanBelowExp.Hat != 0.5 {
		t.Fatalf("below-expected proportion got %.2f want 0.50", est.MeanStat.MeanBelowExp.Hat)
	}

	if len(est.CoverStat.Cover) != k {
		t.Fatalf("coverage length got %d want %d", len(est.CoverStat.Cover), k)
	}
}

func TestEstimatorSimRunsEmpty(t *testing.T) {
	est := stats.EstimatorSimRuns(nil)
	if est == nil {
		t.Fatalf("nil estimator for empty input")
	}
	if est.FitStat.Broken != 0 {
		t.Fatalf("empty input reported broken runs")
	}
}

func TestRenderers(t *testing.T) {
	rep := buildFreqReport([]float64{0.5, 0.5}, []int{0, 1, 0, 1})

	var jb bytes.Buffer
	if err := rep.WriteWith(&jb, &stats.JsonFreqReportRender{}); err != nil {
		t.Fatalf("json render: %v", err)
	}
	if !strings.Contains(jb.String(), `"DistName":"TestDist"`) {
		t.Fatalf("json output missing dist name: %s", jb.String())
	}

	var yb bytes.Buffer
	if err := rep.WriteWith(&yb, &stats.YAMLFreqReportRender{}); err != nil {
		t.Fatalf("yaml render: %v", err)
	}
	// Innermost numeric sequences render in flow style.
	if !strings.Contains(yb.String(), "[") {
		t.Fatalf("yaml output missing flow-style lists: %s", yb.String())
	}
}

func TestProportionHelpersViaFreq(t *testing.T) {
	// Clopper–Pearson CI for the empirical pmf must contain the point estimate
	// and stay inside [0, 1].
	rep := buildFreqReport([]float64{0.9, 0.1}, []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 1})
	for i, ci := range rep.Freq.PmfCI {
		p := rep.Freq.Empirical[i]
		if ci.Lo < 0 || ci.Hi > 1 {
			t.Fatalf("pmf CI out of [0,1]: [%.4f,%.4f]", ci.Lo, ci.Hi)
		}
		if p < ci.Lo || p > ci.Hi {
			t.Fatalf("pmf CI [%.4f,%.4f] does not contain p=%.4f", ci.Lo, ci.Hi, p)
		}
	}
}
