package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/zintix-labs/distlab"
	"github.com/zintix-labs/distlab/dto"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/server/httperr"
	"github.com/zintix-labs/distlab/server/svrcfg"
	"github.com/zintix-labs/distlab/spec"
)

func (c *DrawHandler) Draw(w http.ResponseWriter, q *http.Request) {
	// 請求方法、結構體校驗
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := decodeDrawRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// 請求解析完成，設置超時 context
	ctx := q.Context()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 開始 Draw
	result, err := c.rt.Draw(ctx, req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// decodeDrawRequest 解析 GET query 或 POST JSON body 成 dto.DrawRequest。
func decodeDrawRequest(q *http.Request) (*dto.DrawRequest, error) {
	req := new(dto.DrawRequest)
	if q.Method == http.MethodPost {
		if err := json.NewDecoder(q.Body).Decode(req); err != nil {
			return nil, errs.NewWarn("invalid json:" + err.Error())
		}
		return req, nil
	}
	qs := q.URL.Query()
	req.DistName = qs.Get("name")
	req.DistId = spec.DID(qs.Get("did"))
	if r := qs.Get("rounds"); r != "" {
		n, err := strconv.Atoi(r)
		if err != nil {
			return nil, errs.NewWarn("rounds must be integer")
		}
		req.Rounds = n
	}
	req.CoreSnap = qs.Get("snap")
	// runtime pools are keyed by id; name alone cannot address a pool
	if req.DistId == "" {
		return nil, errs.NewWarn("did is required")
	}
	return req, nil
}

// ============================================================
// ** DrawHandler **
// ============================================================

type DrawHandler struct {
	rt *distlab.DrawRuntime
}

func NewDrawHandler(sCfg *svrcfg.SvrCfg) (*DrawHandler, error) {
	rt, err := sCfg.Distlab.BuildRuntime(sCfg.PoolSize)
	if err != nil {
		return nil, errs.Wrap(err, "build draw handler error")
	}
	return &DrawHandler{rt: rt}, nil
}

// Runtime exposes the underlying DrawRuntime (metrics, shutdown).
func (c *DrawHandler) Runtime() *distlab.DrawRuntime {
	return c.rt
}
