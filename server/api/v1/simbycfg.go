package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/server/httperr"
)

// SetByJson 傳入 JSON 設定格式 以及希望模擬的局數
func (sh *SimHandler) SetByJson(w http.ResponseWriter, r *http.Request) {
	type SimRequestByJson struct {
		Rounds      int             `json:"round"`
		DistSetting json.RawMessage `json:"cfg"`
		Seed        *int64          `json:"seed,omitempty"`
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. decode request
	req := new(SimRequestByJson)
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20) // 5MB
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httperr.Errs(w, errs.Wrap(err, "json decode failed"))
		return
	}

	// 2. vaild rounds
	if req.Rounds < 1 {
		httperr.Errs(w, errs.NewWarn("round must be at least 1"))
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

	// 3. NewSimulator
	sim, err := sh.Distlab.NewSimulatorByJSON(req.DistSetting, *req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	result, _, err := sim.Sim(req.Rounds, false)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	// 4. 回傳Json
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
