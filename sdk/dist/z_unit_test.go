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

package dist

import (
	"crypto/rand"
	"math"
	"math/big"
	"testing"

	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/core"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

const floatTol = 1e-12

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

// floatEq 驗證兩浮點數在容許誤差內相等
func floatEq(a, b float64) bool {
	return math.Abs(a-b) <= floatTol
}

// cryptoCore 以加密隨機 seed 建立 core，讓分佈測試每次走不同序列
func cryptoCore() *core.Core {
	seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	return core.New(core.Default().New(seed.Int64()))
}

// fixedSource 回傳固定值的 UniformSource，用於逼出邊界 draw
type fixedSource struct {
	v float64
}

func (s *fixedSource) Float64() float64 { return s.v }

// -----------------------------------------------------------------------------
// Tests for New
// -----------------------------------------------------------------------------

// TestNew_NormPmfSumsToOne 驗證正規化機率質量總和為 1
// 檢查項目: 任意合法權重建構後 sum(normPmf) ≈ 1.0
func TestNew_NormPmfSumsToOne(t *testing.T) {
	cases := [][]float64{
		{1, 2, 3, 4, 5, 6, 7, 8, 9},
		{0.0, 0.25, 0.5, 0.25},
		{4.0, 2.5, 2.5, 1.0},
		{1e-9, 1e-9},
		{42},
	}
	for _, weights := range cases {
		c, err := New(weights)
		if err != nil {
			t.Fatalf("New(%v) failed: %v", weights, err)
		}
		sum := 0.0
		for _, p := range c.NormPmf() {
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("New(%v): normPmf sums to %v, want 1.0", weights, sum)
		}
	}
}

// TestNew_InvalidWeights 驗證非法權重的建構失敗
// 檢查項目: 空陣列、負值、NaN、非有限值、全零皆回傳 Warn 等級錯誤
func TestNew_InvalidWeights(t *testing.T) {
	cases := map[string][]float64{
		"empty":    {},
		"negative": {1.0, -0.5, 2.0},
		"nan":      {1.0, math.NaN()},
		"inf":      {1.0, math.Inf(1)},
		"all-zero": {0.0, 0.0, 0.0},
	}
	for name, weights := range cases {
		c, err := New(weights)
		if err == nil {
			t.Errorf("[%s] expected error, got distribution %+v", name, c)
			continue
		}
		if c != nil {
			t.Errorf("[%s] expected nil distribution on failure", name)
		}
		e, ok := errs.AsErr(err)
		if !ok || e.ErrLv != errs.Warn {
			t.Errorf("[%s] expected Warn level error, got %v", name, err)
		}
	}
}

// TestMustNew_Panics 驗證 MustNew 在參數錯誤時觸發 panic
func TestMustNew_Panics(t *testing.T) {
	assertPanic(t, func() {
		MustNew([]float64{})
	}, "empty weights")
}

// -----------------------------------------------------------------------------
// Tests for summary statistics
// -----------------------------------------------------------------------------

// TestMean_Concrete 驗證期望值的具體數值
func TestMean_Concrete(t *testing.T) {
	cases := []struct {
		weights []float64
		want    float64
	}{
		{[]float64{0.0, 0.25, 0.5, 0.25}, 2.0},
		{[]float64{0.75, 0.25}, 0.25},
	}
	for _, tc := range cases {
		c := MustNew(tc.weights)
		if got := c.Mean(); !floatEq(got, tc.want) {
			t.Errorf("Mean(%v) = %v, want %v", tc.weights, got, tc.want)
		}
	}
}

// TestMean_ScaleInvariant 驗證期望值對權重等比縮放不變
func TestMean_ScaleInvariant(t *testing.T) {
	base := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	scaled := make([]float64, len(base))
	for i, w := range base {
		scaled[i] = w * 3.5
	}
	m1 := MustNew(base).Mean()
	m2 := MustNew(scaled).Mean()
	if math.Abs(m1-m2) > 1e-9 {
		t.Errorf("mean not scale-invariant: %v vs %v", m1, m2)
	}
}

// TestMinMax 驗證支撐集邊界
// 檢查項目: Min 恆為 0、Max 恆為 k-1
func TestMinMax(t *testing.T) {
	c := MustNew([]float64{4.0, 2.5, 2.5, 1.0})
	if c.Min() != 0 {
		t.Errorf("Min() = %d, want 0", c.Min())
	}
	if c.Max() != 3 {
		t.Errorf("Max() = %d, want 3", c.Max())
	}
	if c.K() != 4 {
		t.Errorf("K() = %d, want 4", c.K())
	}

	single := MustNew([]float64{7.0})
	if single.Min() != 0 || single.Max() != 0 {
		t.Errorf("single category: Min=%d Max=%d, want 0/0", single.Min(), single.Max())
	}
}

// -----------------------------------------------------------------------------
// Tests for CDF
// -----------------------------------------------------------------------------

// TestCDF_Concrete 驗證 CDF 的具體數值
func TestCDF_Concrete(t *testing.T) {
	c := MustNew([]float64{4.0, 2.5, 2.5, 1.0})
	cases := []struct {
		x    float64
		want float64
	}{
		{0.8, 0.4},
		{3.2, 1.0},
		{4.0, 1.0},
	}
	for _, tc := range cases {
		if got := c.CDF(tc.x); !floatEq(got, tc.want) {
			t.Errorf("CDF(%v) = %v, want %v", tc.x, got, tc.want)
		}
	}

	uniform := MustNew([]float64{1.0, 1.0, 1.0, 1.0})
	if got := uniform.CDF(0.0); !floatEq(got, 0.25) {
		t.Errorf("uniform CDF(0) = %v, want 0.25", got)
	}

	leadingZero := MustNew([]float64{0.0, 3.0, 1.0, 1.0})
	if got := leadingZero.CDF(1.5); !floatEq(got, 0.6) {
		t.Errorf("CDF(1.5) = %v, want 0.6", got)
	}
}

// TestCDF_StepFunction 驗證 CDF 為非遞減的右連續階梯函數
// 檢查項目: 整數點之間取值恆定，整數點處跳躍
func TestCDF_StepFunction(t *testing.T) {
	c := MustNew([]float64{4.0, 2.5, 2.5, 1.0})
	prev := 0.0
	for x := 0.0; x <= 4.0; x += 0.1 {
		got := c.CDF(x)
		if got < prev {
			t.Fatalf("CDF decreasing at %v: %v < %v", x, got, prev)
		}
		prev = got
	}
	// 右連續: (i, i+1) 區間內的值與整數點 i 相同
	if c.CDF(1.0) != c.CDF(1.999) {
		t.Errorf("CDF not constant on (1,2): %v vs %v", c.CDF(1.0), c.CDF(1.999))
	}
}

// TestCDF_OutOfDomainPanics 驗證定義域外的輸入觸發 panic
// 檢查項目: x < 0 與 x > k 皆為合約違反，不回傳哨兵值
func TestCDF_OutOfDomainPanics(t *testing.T) {
	c := MustNew([]float64{4.0, 2.5, 2.5, 1.0})
	assertPanic(t, func() {
		c.CDF(-1.0)
	}, "CDF below domain")
	assertPanic(t, func() {
		c.CDF(4.5)
	}, "CDF above domain")
}

// TestPmf_OutOfRangePanics 驗證 Pmf 索引越界觸發 panic
func TestPmf_OutOfRangePanics(t *testing.T) {
	c := MustNew([]float64{1.0, 2.0})
	if !floatEq(c.Pmf(1), 2.0/3.0) {
		t.Errorf("Pmf(1) = %v, want 2/3", c.Pmf(1))
	}
	assertPanic(t, func() {
		c.Pmf(2)
	}, "Pmf index out of range")
	assertPanic(t, func() {
		c.Pmf(-1)
	}, "Pmf negative index")
}

// -----------------------------------------------------------------------------
// Tests for Sample
// -----------------------------------------------------------------------------

// TestSample_Distribution 驗證抽樣分佈符合權重比例
func TestSample_Distribution(t *testing.T) {
	c := cryptoCore()
	weights := []float64{1.0, 2.0, 7.0}
	d := MustNew(weights)

	trials := 100000
	counts := make([]int, len(weights))
	for i := 0; i < trials; i++ {
		idx := d.Sample(c)
		if idx < 0 || idx >= len(weights) {
			t.Fatalf("sample out of range: %d", idx)
		}
		counts[idx]++
	}
	for i, w := range weights {
		expected := w / 10.0
		actual := float64(counts[i]) / float64(trials)
		if math.Abs(expected-actual) > 0.01 {
			t.Errorf("index %d: expected prob %.3f, got %.3f", i, expected, actual)
		}
	}
}

// TestSample_NeverPicksZeroWeight 驗證零權重類別永遠不被抽中
// 檢查項目: 大量隨機抽樣下，權重 0 的索引出現次數為 0
func TestSample_NeverPicksZeroWeight(t *testing.T) {
	c := cryptoCore()
	d := MustNew([]float64{0.0, 3.0, 0.0, 2.0})

	for i := 0; i < 100000; i++ {
		idx := d.Sample(c)
		if idx == 0 || idx == 2 {
			t.Fatalf("sampled zero-weight index %d at trial %d", idx, i)
		}
	}
}

// TestSample_ZeroDrawSkipsLeadingZeros 驗證 draw 恰為 0 時跳過前導零權重
// 檢查項目: 強制 u = 0 的抽樣必須落在第一個正權重類別
func TestSample_ZeroDrawSkipsLeadingZeros(t *testing.T) {
	d := MustNew([]float64{0.0, 0.0, 5.0, 1.0})
	got := d.Sample(&fixedSource{v: 0.0})
	if got != 2 {
		t.Errorf("zero draw sampled index %d, want 2", got)
	}
}

// TestSample_Deterministic 驗證相同 seed 下抽樣序列一致
func TestSample_Deterministic(t *testing.T) {
	d := MustNew([]float64{1.0, 2.0, 3.0})
	c1 := core.New(core.Default().New(5))
	c2 := core.New(core.Default().New(5))
	for i := 0; i < 100; i++ {
		if d.Sample(c1) != d.Sample(c2) {
			t.Fatalf("sample sequences diverged at %d", i)
		}
	}
}

// TestSample_SingleCategory 驗證單一類別分布恆回傳 0
func TestSample_SingleCategory(t *testing.T) {
	c := cryptoCore()
	d := MustNew([]float64{3.3})
	for i := 0; i < 100; i++ {
		if got := d.Sample(c); got != 0 {
			t.Fatalf("single category sampled %d, want 0", got)
		}
	}
}
