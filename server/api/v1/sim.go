package v1

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strconv"

	"github.com/zintix-labs/distlab"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/server/httperr"
	"github.com/zintix-labs/distlab/spec"
	"github.com/zintix-labs/distlab/stats"
)

type SimHandler struct {
	Distlab *distlab.Distlab
}

func NewSimHandler(lab *distlab.Distlab) (*SimHandler, error) {
	return &SimHandler{Distlab: lab}, nil
}

func (sh *SimHandler) Sim(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimRequestBody struct {
		DID   spec.DID `json:"did"`
		Round int      `json:"round"`
		Seed  *int64   `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type SimResponse struct {
		Stats    *stats.FreqReport `json:"stats"`
		UsedTime int64             `json:"used_ms"`
	}
	// ---
	req := new(SimRequestBody)
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if q.Method == http.MethodGet {
		// did
		if s := q.URL.Query().Get("did"); s != "" {
			req.DID = spec.DID(s)
		} else {
			// 直接空值
			httperr.Errs(w, errs.NewWarn("did is required"))
			return
		}

		// round
		if r := q.URL.Query().Get("round"); r != "" {
			u, err := strconv.ParseInt(r, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("round must be integer"))
				return
			}
			req.Round = int(u)
		} else {
			httperr.Errs(w, errs.NewWarn("round is required"))
			return
		}

		// seed
		if s := q.URL.Query().Get("seed"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed must be int64"))
				return
			}
			v := u
			req.Seed = &v
		}
	}
	if q.Method == http.MethodPost {
		if err := json.NewDecoder(q.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務檢驗
	_, ok := sh.Distlab.EntryById(req.DID)
	if !ok {
		httperr.Errs(w, errs.NewWarn("did not found"))
		return
	}
	if req.Round < 1 || req.Round > 1000000 {
		httperr.Errs(w, errs.NewWarn("round must be between 1 to 1,000,000"))
		return
	}
	if req.Seed == nil {
		v, err := randomSeed()
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		req.Seed = &v
	}
	sim, err := sh.Distlab.NewSimulatorWithSeed(req.DID, *req.Seed)
	if err != nil {
		// 這裡的錯誤來自 distlab 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build simulator err: %s", req.DID)))
		return
	}
	st, used, err := sim.Sim(req.Round, false)
	if err != nil {
		// 這裡的錯誤來自 simulator 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, "simulate err"))
		return
	}
	resp := SimResponse{
		Stats:    st,
		UsedTime: used.Milliseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (sh *SimHandler) SimRuns(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimRunsRequestBody struct {
		DID   spec.DID `json:"did"`
		Runs  int      `json:"runs"`
		Round int      `json:"round"`
		Seed  *int64   `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type SimRunsResponse struct {
		StatsReport *stats.FreqReport    `json:"stats"`
		Estimator   *stats.EstimatorRuns `json:"est"`
		UsedTime    int64                `json:"used_ms"`
	}
	// ---
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(SimRunsRequestBody)
	if r.Method == http.MethodGet {
		did := r.URL.Query().Get("did")
		runsStr := r.URL.Query().Get("runs")
		roundStr := r.URL.Query().Get("round")

		// did
		if did != "" {
			req.DID = spec.DID(did)
		} else {
			httperr.Errs(w, errs.NewWarn("did is required"))
			return
		}

		// runs
		if runsStr != "" {
			runs, err := strconv.Atoi(runsStr)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("runs must be integer"))
				return
			}
			req.Runs = runs
		} else {
			httperr.Errs(w, errs.NewWarn("runs is required"))
			return
		}

		// round
		if roundStr != "" {
			rounds, err := strconv.Atoi(roundStr)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("round must be integer"))
				return
			}
			req.Round = rounds
		} else {
			httperr.Errs(w, errs.NewWarn("round is required"))
			return
		}

		// seed
		if s := r.URL.Query().Get("seed"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed must be int64"))
				return
			}
			v := u
			req.Seed = &v
		}
	}
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務邏輯判斷
	if _, ok := sh.Distlab.EntryById(req.DID); !ok {
		httperr.Errs(w, errs.NewWarn("did not found"))
		return
	}
	if req.Runs < 1 || req.Runs > 100000 {
		httperr.Errs(w, errs.NewWarn("runs must be between 1 and 100,000"))
		return
	}
	if req.Round < 1 || req.Round > 15000 {
		httperr.Errs(w, errs.NewWarn("round must be between 1 and 15,000"))
		return
	}
	if req.Seed == nil {
		v, err := randomSeed()
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		req.Seed = &v
	}
	// 取得sim
	sim, err := sh.Distlab.NewSimulatorWithSeed(req.DID, *req.Seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build simulator err: %s", req.DID)))
		return
	}
	st, est, used, err := sim.SimRuns(4, req.Runs, req.Round, false)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("simulator err: %s", req.DID)))
		return
	}
	resp := &SimRunsResponse{
		StatsReport: st,
		Estimator:   est,
		UsedTime:    used.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// randomSeed 使用 crypto/rand 產生 [0, MaxInt64) 的種子。
func randomSeed() (int64, error) {
	rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.NewWarn("seed generate failed")
	}
	return rnd.Int64(), nil
}
