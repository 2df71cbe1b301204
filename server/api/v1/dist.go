package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/zintix-labs/distlab"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/dist"
	"github.com/zintix-labs/distlab/server/httperr"
	"github.com/zintix-labs/distlab/spec"
)

type DistHandler struct {
	Distlab *distlab.Distlab
}

func NewDistHandler(lab *distlab.Distlab) (*DistHandler, error) {
	return &DistHandler{Distlab: lab}, nil
}

// Dist 回傳一個分布的「數學事實」：正規化 pmf、支撐集、期望值，
// 以及（可選）在查詢點 x 的 CDF 值。
//
// 這個 endpoint 不抽樣、不碰 PRNG；它只對 catalog 裡的設定做純函數查詢。
func (dh *DistHandler) Dist(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type DistRequestBody struct {
		DID  spec.DID `json:"did"`
		Name string   `json:"name"`
		X    *float64 `json:"x,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type DistResponse struct {
		DID     spec.DID        `json:"did"`
		Name    string          `json:"name"`
		Sampler spec.SamplerKey `json:"sampler"`
		K       int             `json:"k"`
		Labels  []string        `json:"labels"`
		Pmf     []float64       `json:"pmf"`
		Mean    float64         `json:"mean"`
		Min     int             `json:"min"`
		Max     int             `json:"max"`
		X       *float64        `json:"x,omitempty"`
		CdfAtX  *float64        `json:"cdf_at_x,omitempty"`
	}
	// ---
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(DistRequestBody)
	if q.Method == http.MethodGet {
		req.DID = spec.DID(q.URL.Query().Get("did"))
		req.Name = q.URL.Query().Get("name")
		if s := q.URL.Query().Get("x"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("x must be a number"))
				return
			}
			req.X = &v
		}
	}
	if q.Method == http.MethodPost {
		if err := json.NewDecoder(q.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}

	// 解析 did/name → Entry
	ent, ok := dh.Distlab.EntryById(req.DID)
	if !ok && req.Name != "" {
		ent, ok = dh.Distlab.EntryByName(req.Name)
	}
	if !ok {
		httperr.Errs(w, errs.NewWarn("dist not found"))
		return
	}
	ds, err := dh.Distlab.SettingById(ent.DID)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "load dist setting failed"))
		return
	}
	d, err := dist.New(ds.Weights)
	if err != nil {
		// catalog 裡的設定理應已通過驗證；到這裡是組裝問題
		httperr.Errs(w, errs.Wrap(err, "build categorical failed"))
		return
	}

	resp := &DistResponse{
		DID:     ds.DistID,
		Name:    ds.DistName,
		Sampler: ds.SamplerKey,
		K:       d.K(),
		Pmf:     d.NormPmf(),
		Mean:    d.Mean(),
		Min:     d.Min(),
		Max:     d.Max(),
	}
	resp.Labels = make([]string, d.K())
	for i := range resp.Labels {
		resp.Labels[i] = ds.Label(i)
	}
	if req.X != nil {
		x := *req.X
		// CDF 的定義域是 [0, k]；越界在核心層是 panic（caller bug），
		// 但 HTTP 邊界要擋下使用者輸入，轉成 400。
		if x < 0 || x > float64(d.K()) {
			httperr.Errs(w, errs.NewWarn(fmt.Sprintf("x must be within [0, %d]", d.K())))
			return
		}
		v := d.CDF(x)
		resp.X = req.X
		resp.CdfAtX = &v
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
