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

package sampler

import (
	"crypto/rand"
	"math"
	"math/big"
	"slices"
	"testing"

	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/spec"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// assertPanic 驗證函數是否如預期觸發 panic
func assertPanic(t *testing.T, f func(), msg string) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for %s, but got none", msg)
		}
	}()
	f()
}

// cryptoCore 以加密隨機 seed 建立 core
func cryptoCore() *core.Core {
	seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	return core.New(core.Default().New(seed.Int64()))
}

// checkDistribution 驗證抽樣結果的分佈是否符合預期權重
func checkDistribution(t *testing.T, name string, weights []float64, samples []int, tolerance float64) {
	t.Helper()
	totalW := 0.0
	for _, w := range weights {
		totalW += w
	}
	if totalW == 0 {
		return
	}

	counts := make(map[int]int)
	for _, idx := range samples {
		counts[idx]++
	}

	totalSamples := len(samples)
	for i, w := range weights {
		if w == 0 {
			if counts[i] > 0 {
				t.Errorf("[%s] expected 0 samples for index %d (weight 0), got %d", name, i, counts[i])
			}
			continue
		}
		expectedProb := w / totalW
		actualProb := float64(counts[i]) / float64(totalSamples)
		diff := math.Abs(expectedProb - actualProb)

		if diff > tolerance {
			t.Errorf("[%s] index %d: expected prob %.3f, got %.3f (diff %.3f > tol %.3f)",
				name, i, expectedProb, actualProb, diff, tolerance)
		}
	}
}

// setEqual 檢查兩個 slice 是否包含相同的元素（不考慮順序）
func setEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Tests for engine agreement
// -----------------------------------------------------------------------------

// TestEngines_AgreeOnDistribution 驗證三種引擎對同一組權重產生相同分佈
// 檢查項目: linear / alias / lut 的抽樣比例皆符合權重
func TestEngines_AgreeOnDistribution(t *testing.T) {
	weights := []float64{10, 20, 0, 70}
	reg := NewDefaultRegistry()

	for _, key := range []spec.SamplerKey{spec.SamplerLinear, spec.SamplerAlias, spec.SamplerLUT} {
		d, err := reg.Build(key, weights)
		if err != nil {
			t.Fatalf("[%s] build failed: %v", key, err)
		}
		if d.K() != len(weights) {
			t.Fatalf("[%s] K() = %d, want %d", key, d.K(), len(weights))
		}

		c := cryptoCore()
		trials := 100000
		samples := make([]int, trials)
		for i := 0; i < trials; i++ {
			samples[i] = d.Draw(c)
		}
		checkDistribution(t, string(key), weights, samples, 0.01)
	}
}

// -----------------------------------------------------------------------------
// Tests for Linear
// -----------------------------------------------------------------------------

// TestLinear_InvalidWeights 驗證非法權重的建構失敗
func TestLinear_InvalidWeights(t *testing.T) {
	cases := map[string][]float64{
		"empty":    {},
		"negative": {1, -1},
		"all-zero": {0, 0},
	}
	for name, weights := range cases {
		if _, err := BuildLinear(weights); err == nil {
			t.Errorf("[%s] expected error", name)
		}
	}
}

// -----------------------------------------------------------------------------
// Tests for AliasTable
// -----------------------------------------------------------------------------

// TestAliasTable_Distribution 驗證 Alias Table 的抽樣分佈（浮點權重）
func TestAliasTable_Distribution(t *testing.T) {
	c := cryptoCore()
	weights := []float64{1.5, 3.0, 10.5}
	at, err := BuildAliasTable(weights)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	trials := 100000
	samples := make([]int, trials)
	for i := 0; i < trials; i++ {
		samples[i] = at.Draw(c)
	}
	checkDistribution(t, "AliasTable", weights, samples, 0.01)
}

// TestAliasTable_ZeroWeightNeverDrawn 驗證零權重類別永不被抽中
func TestAliasTable_ZeroWeightNeverDrawn(t *testing.T) {
	c := cryptoCore()
	at, err := BuildAliasTable([]float64{0, 5, 0, 5})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	for i := 0; i < 100000; i++ {
		idx := at.Draw(c)
		if idx == 0 || idx == 2 {
			t.Fatalf("drew zero-weight index %d", idx)
		}
	}
}

// TestAliasTable_Errors 驗證 Alias Table 的各種錯誤情境
// 檢查項目: 空陣列、全零權重、負權重、NaN 權重應回傳錯誤
func TestAliasTable_Errors(t *testing.T) {
	cases := map[string][]float64{
		"empty":    {},
		"all-zero": {0, 0, 0},
		"negative": {10, -1},
		"nan":      {1, math.NaN()},
	}
	for name, weights := range cases {
		if _, err := BuildAliasTable(weights); err == nil {
			t.Errorf("[%s] expected error", name)
		}
	}
}

// -----------------------------------------------------------------------------
// Tests for Look-Up Table (LUT)
// -----------------------------------------------------------------------------

// TestLUT_Distribution 驗證 LUT 的抽樣分佈
func TestLUT_Distribution(t *testing.T) {
	c := cryptoCore()
	weights := []int{1, 2, 7} // 適合 LUT 的小權重
	lut, err := BuildLUT(weights)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	trials := 10000
	samples := make([]int, trials)
	for i := 0; i < trials; i++ {
		samples[i] = lut.Draw(c)
	}
	checkDistribution(t, "LUT", []float64{1, 2, 7}, samples, 0.015)
}

// TestLUT_Errors 驗證 LUT 的各種錯誤情境
// 檢查項目: 超過容量上限、負權重、全零權重應回傳錯誤
func TestLUT_Errors(t *testing.T) {
	if _, err := BuildLUT([]int{int(maxLUTCap) + 1}); err == nil {
		t.Errorf("expected error for exceeding capacity")
	}
	if _, err := BuildLUT([]int{10, -10}); err == nil {
		t.Errorf("expected error for negative weight")
	}
	if _, err := BuildLUT([]int{0, 0}); err == nil {
		t.Errorf("expected error for all-zero weights")
	}
}

// TestBuildLUTEngine_RejectsFractional 驗證非整數值權重被拒絕
func TestBuildLUTEngine_RejectsFractional(t *testing.T) {
	if _, err := BuildLUTEngine([]float64{1.5, 2.0}); err == nil {
		t.Errorf("expected error for fractional weight")
	}
	e, err := BuildLUTEngine([]float64{3.0, 5.0, 0.0})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if e.K() != 3 {
		t.Errorf("K() = %d, want 3 (trailing zero weight counts)", e.K())
	}
}

// -----------------------------------------------------------------------------
// Tests for Registry
// -----------------------------------------------------------------------------

// TestRegistry_UnknownKey 驗證未註冊的 sampler key 回傳 Fatal 錯誤
func TestRegistry_UnknownKey(t *testing.T) {
	reg := NewDefaultRegistry()
	if _, err := reg.Build("nope", []float64{1, 2}); err == nil {
		t.Errorf("expected error for unknown key")
	}
	if reg.IsExist("nope") {
		t.Errorf("IsExist should be false for unknown key")
	}
	if !reg.IsExist(spec.SamplerLinear) {
		t.Errorf("IsExist should be true for builtin key")
	}
}

// TestRegistry_DuplicateAndMerge 驗證重複註冊與合併的錯誤處理
func TestRegistry_DuplicateAndMerge(t *testing.T) {
	r1 := NewRegistry()
	if err := r1.Register("custom", func(w []float64) (Drawer, error) { return BuildLinear(w) }); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := r1.Register("custom", func(w []float64) (Drawer, error) { return BuildLinear(w) }); err == nil {
		t.Fatalf("expected duplicate register error")
	}

	r2 := NewRegistry()
	_ = r2.Register("custom", func(w []float64) (Drawer, error) { return BuildLinear(w) })
	if _, err := MergeRegistry(r1, r2); err == nil {
		t.Fatalf("expected duplicate key error on merge")
	}

	merged, err := MergeRegistry(r1, NewDefaultRegistry())
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !merged.IsExist("custom") || !merged.IsExist(spec.SamplerAlias) {
		t.Fatalf("merged registry missing keys")
	}
}

// -----------------------------------------------------------------------------
// Tests for WeightedShuffle
// -----------------------------------------------------------------------------

// TestWeightedShuffle_Basic 驗證基本的加權洗牌機率分佈
// 檢查項目: 高權重項目排在前面的機率較高
func TestWeightedShuffle_Basic(t *testing.T) {
	c := core.New(core.Default().New(1))
	weights := []float64{10, 90} // Index 1 (權重90) 應該有較高機率排在前面
	trials := 10000
	firstIdxCount := 0

	for i := 0; i < trials; i++ {
		res := WeightedShuffle(c, weights)
		if len(res) != 2 {
			t.Fatalf("expected length 2, got %d", len(res))
		}
		if res[0] == 1 {
			firstIdxCount++
		}
	}

	rate := float64(firstIdxCount) / float64(trials)
	// 期望機率約為 0.90
	if rate < 0.85 || rate > 0.95 {
		t.Errorf("WeightedShuffle prob mismatch: expected ~0.90, got %.4f", rate)
	}
}

// TestWeightedShuffleZerosAtEnd 驗證權重為 0 的項目是否被排在最後
func TestWeightedShuffleZerosAtEnd(t *testing.T) {
	c := core.New(core.Default().New(1))
	weights := []float64{0, 3, 0, 2}

	got := WeightedShuffle(c, weights)
	if len(got) != len(weights) {
		t.Fatalf("length mismatch, got %d want %d", len(got), len(weights))
	}

	seen := map[int]bool{}
	for _, idx := range got {
		if idx < 0 || idx >= len(weights) {
			t.Fatalf("index out of range: %d", idx)
		}
		if seen[idx] {
			t.Fatalf("duplicate index: %d", idx)
		}
		seen[idx] = true
	}

	// 前 2 個元素應該是正權重項目 (index 1 和 3)
	prefix := got[:2]
	for _, idx := range prefix {
		if idx == 0 || idx == 2 {
			t.Fatalf("zero-weight index appeared before positives: %v", got)
		}
	}
}

// TestWeightedShuffle_NegativePanic 驗證負權重是否觸發 panic
func TestWeightedShuffle_NegativePanic(t *testing.T) {
	c := cryptoCore()
	assertPanic(t, func() {
		WeightedShuffle(c, []float64{10, -1})
	}, "Negative Weight")
}

// -----------------------------------------------------------------------------
// Tests for WeightedShuffleWithFilter
// -----------------------------------------------------------------------------

// TestWeightedShuffleWithFilterSkipsZeros 驗證過濾零權重的加權洗牌
func TestWeightedShuffleWithFilterSkipsZeros(t *testing.T) {
	c := core.New(core.Default().New(2))
	weights := []float64{0, 1, 0, 2}

	got := WeightedShuffleWithFilter(c, weights)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if !setEqual(got, []int{1, 3}) {
		t.Fatalf("unexpected indices: %v", got)
	}
}

// -----------------------------------------------------------------------------
// Tests for WeightedSample
// -----------------------------------------------------------------------------

// TestWeightedSample_Basic 驗證加權 K 抽樣的分佈
func TestWeightedSample_Basic(t *testing.T) {
	c := cryptoCore()
	weights := []float64{10, 10, 80}
	trials := 100000
	samples := make([]int, 0, trials)

	// 每次取 Top-1
	for i := 0; i < trials; i++ {
		res := WeightedSample(c, weights, 1)
		if len(res) > 0 {
			samples = append(samples, res[0])
		}
	}
	checkDistribution(t, "WeightedSample K=1", weights, samples, 0.01)
}

// TestWeightedSampleMatchesFilteredShuffle 驗證 WeightedSample 與 FilteredShuffle 的一致性
// 檢查項目: 在相同 Seed 下，WeightedSample 取出的前 K 個應與 WeightedShuffleWithFilter 的前 K 個相同
func TestWeightedSampleMatchesFilteredShuffle(t *testing.T) {
	weights := []float64{5, 0, 1, 4}
	const seed = 7

	// 使用相同的 seed 建立兩個 core，確保隨機數序列一致
	order := WeightedShuffleWithFilter(core.New(core.Default().New(seed)), weights)
	got := WeightedSample(core.New(core.Default().New(seed)), weights, 2)

	expected := order[:2]
	if !slices.Equal(expected, got) {
		t.Fatalf("expected %v, got %v (WeightedSample should pick top-k of shuffle order)", expected, got)
	}
}

// TestWeightedSampleKExceedsPositives 驗證 K 大於有效權重數量的處理
func TestWeightedSampleKExceedsPositives(t *testing.T) {
	weights := []float64{0, 2, 0}
	// 請求 5 個項目，但只有 1 個權重 > 0
	got := WeightedSample(core.New(core.Default().New(11)), weights, 5)

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only index 1, got %v", got)
	}
}

// TestWeightedSampleAllZero 驗證所有權重為 0 的情況
func TestWeightedSampleAllZero(t *testing.T) {
	got := WeightedSample(core.New(core.Default().New(13)), []float64{0, 0, 0}, 3)
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
