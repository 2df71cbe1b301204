package v1

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/zintix-labs/distlab/recorder"
	"github.com/zintix-labs/distlab/spec"
)

// DistStat 是離線重算用的輸入：一段原始抽樣索引序列 + 理論權重。
// 用途：客戶端自己存了 draw log（或來自其他系統），想借用伺服器的
// 統計管線（均值 CI、卡方檢定、各類別 CP 區間）重算一份報表。
type DistStat struct {
	DistName string    `json:"dist_name"`
	Weights  []float64 `json:"weights"`
	Labels   []string  `json:"labels"`
	Draws    []int     `json:"draws"`
}

func Stat(w http.ResponseWriter, r *http.Request) {
	// Post方法限定
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// 嘗試解析
	dst := new(DistStat)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	k := len(dst.Weights)
	if k < 1 {
		http.Error(w, "weights must not be empty", http.StatusBadRequest)
		return
	}
	if len(dst.Draws) < 1 {
		http.Error(w, "draws must not be empty", http.StatusBadRequest)
		return
	}

	// 正規化權重成 expected pmf；負值/NaN 會讓 total 無效
	total := 0.0
	for _, wt := range dst.Weights {
		if wt < 0 || math.IsNaN(wt) {
			http.Error(w, "weights must be non-negative numbers", http.StatusBadRequest)
			return
		}
		total += wt
	}
	if total <= 0 {
		http.Error(w, "weights must contain a positive value", http.StatusBadRequest)
		return
	}
	expected := make([]float64, k)
	for i, wt := range dst.Weights {
		expected[i] = wt / total
	}

	// 補齊 labels（可省略）
	labels := dst.Labels
	if len(labels) != k {
		labels = make([]string, k)
		for i := range labels {
			labels[i] = fmt.Sprintf("%d", i)
		}
	}

	// 邊界層先擋越界索引；Recorder.Record 對越界是 panic（抽樣引擎違約才會發生）
	for _, d := range dst.Draws {
		if d < 0 || d >= k {
			http.Error(w, fmt.Sprintf("draw index %d outside [0, %d)", d, k), http.StatusBadRequest)
			return
		}
	}

	rec, err := recorder.NewDrawRecorder(dst.DistName, spec.DID("offline"), spec.SamplerKey("offline"), labels, expected)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, d := range dst.Draws {
		rec.Record(d)
	}
	st := rec.Done()
	if err := json.NewEncoder(w).Encode(st); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
}
