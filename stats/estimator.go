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

package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// 多次模擬運行的整體評估
type EstimatorRuns struct {
	MeanStat  MeanStat
	FitStat   FitStat
	CoverStat CoverStat
}

// 觀測平均值敘事
type MeanStat struct {
	ExpMean      float64   // 理論平均值（各 run 相同設定）
	MeanMedian   PointStat // 各 run 觀測平均的中位數
	MeanPerc     MeanPerc  // 各 run 觀測平均的分位數
	MeanBelowExp PointStat // 觀測平均落在理論值以下的 run 比例
}

// 用分位數視角看各 run 的觀測平均: 最低10% 的觀測平均 ...
type MeanPerc struct {
	MeanP10 PointStat
	MeanP33 PointStat
	MeanP67 PointStat
	MeanP90 PointStat
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64
	CI  CI
}

// 卡方檢定敘事：在正確實作下，p < α 的 run 比例應接近 α
type FitStat struct {
	RejectAt05 PointStat
	RejectAt01 PointStat
	Broken     int // 抽樣合約被打破的 run 數（任一零權重類別出現觀測值）
}

// 各類別 CI 覆蓋敘事：理論 pmf 落在該 run 95% CI 內的 run 比例
type CoverStat struct {
	Labels []string
	Cover  []PointStat
}

// ============================================================
// ** 對外 : 多次運行評估 **
// ============================================================

// EstimatorSimRuns 多次模擬運行的整體評估
//
// 1. Mean 敘事 : 描述各 run 觀測平均值的分布與理論值的關係
//
// 2. Fit 敘事 : 描述卡方檢定的拒絕率（校準良好時應接近顯著水準）
//
// 3. Cover 敘事 : 描述各類別 95% CI 覆蓋理論 pmf 的比例
func EstimatorSimRuns(reps []*FreqReport) *EstimatorRuns {
	// 0. 防禦：空輸入
	n := len(reps)
	out := &EstimatorRuns{}
	if n == 0 {
		return out
	}
	for _, r := range reps {
		r.Done()
	}

	// ------------------------------------------------------------
	// 1) Mean 敘事：收集每個 run 的觀測平均並做分位/CI
	// ------------------------------------------------------------
	means := make([]float64, n)
	for i, r := range reps {
		means[i] = r.Summary.MeanHat
	}
	expMean := reps[0].Summary.ExpMean

	medHat := quantilePoint(means, 0.5)
	medLo, medHi := quantileCI(means, 0.5, 0.95)

	p10Hat := quantilePoint(means, 0.10)
	p10Lo, p10Hi := quantileCI(means, 0.10, 0.95)

	p33Hat := quantilePoint(means, 1.0/3.0)
	p33Lo, p33Hi := quantileCI(means, 1.0/3.0, 0.95)

	p67Hat := quantilePoint(means, 2.0/3.0)
	p67Lo, p67Hi := quantileCI(means, 2.0/3.0, 0.95)

	p90Hat := quantilePoint(means, 0.90)
	p90Lo, p90Hi := quantileCI(means, 0.90, 0.95)

	belowHat, belowCI := percentileCIForValue(means, expMean, 0.95)

	out.MeanStat = MeanStat{
		ExpMean:    expMean,
		MeanMedian: PointStat{Hat: medHat, CI: CI{Lo: medLo, Hi: medHi}},
		MeanPerc: MeanPerc{
			MeanP10: PointStat{Hat: p10Hat, CI: CI{Lo: p10Lo, Hi: p10Hi}},
			MeanP33: PointStat{Hat: p33Hat, CI: CI{Lo: p33Lo, Hi: p33Hi}},
			MeanP67: PointStat{Hat: p67Hat, CI: CI{Lo: p67Lo, Hi: p67Hi}},
			MeanP90: PointStat{Hat: p90Hat, CI: CI{Lo: p90Lo, Hi: p90Hi}},
		},
		MeanBelowExp: PointStat{Hat: belowHat, CI: belowCI},
	}

	// ------------------------------------------------------------
	// 2) Fit 敘事：卡方檢定拒絕率
	// ------------------------------------------------------------
	var rej05, rej01, broken int
	for _, r := range reps {
		if r.Fit == nil {
			continue
		}
		if r.Fit.Broken {
			broken++
			continue
		}
		if r.Fit.PValue < 0.05 {
			rej05++
		}
		if r.Fit.PValue < 0.01 {
			rej01++
		}
	}
	hat05, ci05 := proportionCICP(rej05, n, 0.95)
	hat01, ci01 := proportionCICP(rej01, n, 0.95)
	out.FitStat = FitStat{
		RejectAt05: PointStat{Hat: hat05, CI: ci05},
		RejectAt01: PointStat{Hat: hat01, CI: ci01},
		Broken:     broken,
	}

	// ------------------------------------------------------------
	// 3) Cover 敘事：各類別 95% CI 覆蓋理論 pmf 的比例
	// ------------------------------------------------------------
	labels := reps[0].Freq.Labels
	L := len(labels)
	out.CoverStat = CoverStat{Labels: labels, Cover: make([]PointStat, L)}

	for bi := 0; bi < L; bi++ {
		covered := 0
		for _, r := range reps {
			if bi >= len(r.Freq.PmfCI) || bi >= len(r.Freq.Expected) {
				continue
			}
			ci := r.Freq.PmfCI[bi]
			exp := r.Freq.Expected[bi]
			if exp >= ci.Lo && exp <= ci.Hi {
				covered++
			}
		}
		hat, ci := proportionCICP(covered, n, 0.95)
		out.CoverStat.Cover[bi] = PointStat{Hat: hat, CI: ci}
	}

	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 問題：給定樣本 data 與門檻 x0，估計 p = P(X ≤ x0) 的點估計與 CI 區間
// 回傳 (pHat, CI)
func percentileCIForValue(data []float64, x0 float64, confidence float64) (pHat float64, ci CI) {
	n := len(data)
	if n == 0 {
		return 0, CI{Lo: 0, Hi: 0}
	}
	// k = 數到 <= x0 的個數
	k := 0
	for _, v := range data {
		if v <= x0 {
			k++
		}
	}
	return proportionCICP(k, n, confidence)
}

// 想估「第 q 分位」的上下界。做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
// 回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	// 以 CP 思想反推 p 範圍
	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	if li < 0 {
		li = 0
	}
	if li > n-1 {
		li = n - 1
	}
	if ui < 0 {
		ui = 0
	}
	if ui > n-1 {
		ui = n - 1
	}
	return cp[li], cp[ui]
}

// quantilePoint returns the empirical quantile point estimate at q.
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	// 最近秩法
	idx := int(q * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return cp[idx]
}

// ============================================================
// ** 輸出函數 **
// ============================================================

func (est *EstimatorRuns) Out() {
	// 1) Observed Mean across runs
	meanKeys := []string{
		"Expected Mean",
		"Median Mean",
		"P10 Mean",
		"P33 Mean",
		"P67 Mean",
		"P90 Mean",
		"≤Expected (runs)",
	}
	meanMsg := map[string]string{
		"Expected Mean":    fmt.Sprintf("%.4f", est.MeanStat.ExpMean),
		"Median Mean":      fmtHatCI(est.MeanStat.MeanMedian.Hat, est.MeanStat.MeanMedian.CI),
		"P10 Mean":         fmtHatCI(est.MeanStat.MeanPerc.MeanP10.Hat, est.MeanStat.MeanPerc.MeanP10.CI),
		"P33 Mean":         fmtHatCI(est.MeanStat.MeanPerc.MeanP33.Hat, est.MeanStat.MeanPerc.MeanP33.CI),
		"P67 Mean":         fmtHatCI(est.MeanStat.MeanPerc.MeanP67.Hat, est.MeanStat.MeanPerc.MeanP67.CI),
		"P90 Mean":         fmtHatCI(est.MeanStat.MeanPerc.MeanP90.Hat, est.MeanStat.MeanPerc.MeanP90.CI),
		"≤Expected (runs)": fmtHatCIpct01(est.MeanStat.MeanBelowExp.Hat, est.MeanStat.MeanBelowExp.CI),
	}
	printTable("Observed Mean (across runs)", meanKeys, meanMsg)

	// 2) Goodness-of-fit rejection rates
	fitKeys := []string{"p < 0.05", "p < 0.01", "Broken runs"}
	fitMsg := map[string]string{
		"p < 0.05":    fmtHatCIpct01(est.FitStat.RejectAt05.Hat, est.FitStat.RejectAt05.CI),
		"p < 0.01":    fmtHatCIpct01(est.FitStat.RejectAt01.Hat, est.FitStat.RejectAt01.CI),
		"Broken runs": fmt.Sprintf("%d", est.FitStat.Broken),
	}
	printTable("Goodness-of-fit rejection rates", fitKeys, fitMsg)

	// 3) Per-category CI coverage
	fmt.Println("=== Per-category CI coverage ===")
	for i, label := range est.CoverStat.Labels {
		ps := est.CoverStat.Cover[i]
		fmt.Printf("%-20s : %s\n", label, fmtHatCIpct01(ps.Hat, ps.CI))
	}
}

func printTable(title string, keys []string, msg map[string]string) {
	fmt.Printf("=== %s ===\n", title)
	maxKeyLen := 0
	for _, k := range keys {
		if len(k) > maxKeyLen {
			maxKeyLen = len(k)
		}
	}
	for _, k := range keys {
		fmt.Printf("  %-*s : %s\n", maxKeyLen, k, msg[k])
	}
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}

func fmtHatCI(hat float64, ci CI) string {
	return fmt.Sprintf("%.4f [%.4f, %.4f]", hat, ci.Lo, ci.Hi)
}
