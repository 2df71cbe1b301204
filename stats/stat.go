package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/distlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat/distuv"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// FreqReport 抽樣統計報告
//
// 紀錄過程只累積 int 計數，Done() 時才一次換算浮點統計量。
type FreqReport struct {
	Summary *SummaryReport `json:"Summary"`
	Freq    *FreqDetail    `json:"Freq"`
	Fit     *FitReport     `json:"Fit"`
	isDone  bool
}

type SummaryReport struct {
	DistName  string          `json:"DistName"`
	DistId    spec.DID        `json:"DistId"`
	Sampler   spec.SamplerKey `json:"Sampler"`
	K         int             `json:"K"`
	Rounds    int             `json:"Rounds"`
	SumDraw   int             `json:"SumDraw"`
	SumDrawSq int             `json:"SumDrawSq"` // 平方和
	ExpMean   float64         `json:"ExpMean"`
	MeanHat   float64         `json:"MeanHat"`
	MeanCI    CI              `json:"MeanCI"`
	Std       float64         `json:"Std"`
	Cv        float64         `json:"Cv"`
}

// FreqDetail 各類別落點統計
type FreqDetail struct {
	Labels    []string  `json:"Labels"`
	Counts    []int     `json:"Counts"`
	Empirical []float64 `json:"Empirical"`
	Expected  []float64 `json:"Expected"`
	PmfCI     []CI      `json:"PmfCI"`
	MaxAbsErr float64   `json:"MaxAbsErr"`
}

// FitReport 卡方適合度檢定
//
// 統計量只計入期望機率 > 0 的類別；零權重類別若出現任何觀測值，
// 代表抽樣合約被打破，直接標記 p = 0。
type FitReport struct {
	ChiSquare float64 `json:"ChiSquare"`
	DoF       int     `json:"DoF"`
	PValue    float64 `json:"PValue"`
	Broken    bool    `json:"Broken"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 所有抽樣統計過程因為性能原因只處理int的紀錄，所以統計完成後
//
// 請使用 Done 來通知報告，可以一次性計算統計結果
func (s *FreqReport) Done() {
	if s.isDone {
		return
	}

	// Summary
	s.Summary.MeanHat = s.Mean()
	s.Summary.Std = s.Std()
	s.Summary.Cv = s.Cv()
	s.Summary.MeanCI = s.Ci()

	// Freq
	s.fillFreq()

	// Fit
	s.fillFit()

	s.isDone = true
}

// Mean 回傳觀測平均值（Σ draw / rounds）
func (s *FreqReport) Mean() float64 {
	if s.Summary.Rounds == 0 {
		return 0
	}
	return float64(s.Summary.SumDraw) / float64(s.Summary.Rounds)
}

// Std 回傳單次抽樣結果的樣本標準差
func (s *FreqReport) Std() float64 {
	if s.Summary.Rounds < 2 {
		return 0
	}
	rounds := float64(s.Summary.Rounds)
	sum := float64(s.Summary.SumDraw)

	variance := (float64(s.Summary.SumDrawSq) - sum*sum/rounds) / (rounds - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Cv 回傳抽樣結果的變異係數
func (s *FreqReport) Cv() float64 {
	mean := s.Mean()
	std := s.Std()
	if mean <= 0 {
		return 0
	}
	return std / mean
}

// Ci 回傳(95% Mean)信賴區間
func (s *FreqReport) Ci() CI {
	mean := s.Mean()
	std := s.Std()
	se := float64(0)
	if s.Summary.Rounds > 1 {
		se = std / math.Sqrt(float64(s.Summary.Rounds))
	}
	ci := CI{
		Lo: max(mean-1.96*se, 0.0),
		Hi: mean + 1.96*se,
	}
	return ci
}

func (s *FreqReport) WriteWith(w io.Writer, rep FreqReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func (s *FreqReport) StdOut(ut time.Duration) {
	formatDuration(ut, s.Summary.Rounds)
	sk, sm := s.fmtBasic()
	str := fmtTable(s.Summary.DistName, sk, sm)
	fmt.Println(str)
}

// ============================================================
// ** 內部方法 **
// ============================================================

func (s *FreqReport) fillFreq() {
	f := s.Freq
	if f == nil || s.Summary.Rounds == 0 {
		return
	}
	rf := float64(s.Summary.Rounds)

	f.Empirical = make([]float64, len(f.Counts))
	f.PmfCI = make([]CI, len(f.Counts))
	maxErr := 0.0
	for i, c := range f.Counts {
		f.Empirical[i] = float64(c) / rf
		_, f.PmfCI[i] = proportionCICP(c, s.Summary.Rounds, 0.95)
		if i < len(f.Expected) {
			if d := math.Abs(f.Empirical[i] - f.Expected[i]); d > maxErr {
				maxErr = d
			}
		}
	}
	f.MaxAbsErr = maxErr
}

func (s *FreqReport) fillFit() {
	f := s.Freq
	if f == nil || s.Summary.Rounds == 0 {
		return
	}
	rf := float64(s.Summary.Rounds)

	chi2 := 0.0
	dof := -1 // 自由度 = 有效類別數 - 1
	broken := false
	for i, c := range f.Counts {
		exp := 0.0
		if i < len(f.Expected) {
			exp = f.Expected[i] * rf
		}
		if exp == 0 {
			if c > 0 {
				// 零權重類別不該有任何觀測值
				broken = true
			}
			continue
		}
		d := float64(c) - exp
		chi2 += d * d / exp
		dof++
	}

	fit := &FitReport{ChiSquare: chi2, DoF: dof, Broken: broken}
	switch {
	case broken:
		fit.PValue = 0
	case dof < 1:
		// 單一有效類別沒有可檢定的自由度
		fit.PValue = 1
	default:
		fit.PValue = distuv.ChiSquared{K: float64(dof)}.Survival(chi2)
	}
	s.Fit = fit
}

func formatDuration(d time.Duration, draws int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	dps := int(float64(draws) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\ndps : %d draws/sec\n", sec, dps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		s = s % 60
		p.Printf("used: %dm %ds\ndps : %d draws/sec\n", m, s, dps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\ndps : %d draws/sec\n", h, m, s, dps)
}

// StdOut

func (s *FreqReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Dist Name":    p.Sprintf("%s", s.Summary.DistName),
		"Dist ID":      fmt.Sprintf("%s", s.Summary.DistId),
		"Sampler":      fmt.Sprintf("%s", s.Summary.Sampler),
		"Categories":   p.Sprintf("%d", s.Summary.K),
		"Total Rounds": p.Sprintf("%d", s.Summary.Rounds),
		"Exp Mean":     p.Sprintf("%.4f", s.Summary.ExpMean),
		"Obs Mean":     p.Sprintf("%.4f", s.Summary.MeanHat),
		"Mean 95% CI":  p.Sprintf("[%.4f,%.4f]", s.Summary.MeanCI.Lo, s.Summary.MeanCI.Hi),
		"STD":          p.Sprintf("%.3f", s.Summary.Std),
		"CV":           p.Sprintf("%.3f", s.Summary.Cv),
		"Max |Δpmf|":   p.Sprintf("%.5f", s.Freq.MaxAbsErr),
		"Chi-Square":   p.Sprintf("%.3f (dof %d)", s.Fit.ChiSquare, s.Fit.DoF),
		"p-value":      p.Sprintf("%.4f", s.Fit.PValue),
	}
	keys := []string{"Dist Name", "Dist ID", "Sampler", "Categories", "Total Rounds", "Exp Mean", "Obs Mean", "Mean 95% CI", "STD", "CV", "Max |Δpmf|", "Chi-Square", "p-value"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
