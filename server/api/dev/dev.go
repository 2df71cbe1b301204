// Package dev 提供 DistLab 的「內部 Dev Panel」HTTP endpoints。
//
// 目的：
//   - 給數學家 / 後端在開發期快速驗證：指定 Distribution、Seed / Snap，然後執行 Draw 或 Sim。
//   - 支援可回放（replay）：把 Snapshot（Snap）以字串形式在前端顯示，並可貼回後端做 Restore。
//
// 注意（contract）：
//   - 這不是 production API；它偏向 debug / tooling，行為允許更寬鬆，但仍需維持 deterministic concludes。
//   - 這裡的錯誤處理走 `httperr.Errs`（以 errs.Warn/errs.Fatal 對應 HTTP response）。
//   - Seed/Snap 的互斥與優先級由前端 + 後端共同保證（Snap takes precedence）。
package dev

import (
	"crypto/rand"
	"embed"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/distlab"
	"github.com/zintix-labs/distlab/catalog"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/server/httperr"
	"github.com/zintix-labs/distlab/server/netsvr"
	"github.com/zintix-labs/distlab/server/svrcfg"
	"github.com/zintix-labs/distlab/spec"
)

// devRequest 是 Dev Panel 的「輸入 payload」。
//
// 兼容性：
//   - 同時保留 `rounds` 與舊欄位 `round`。
//   - `did` 與 `dist` 兩者擇一即可；若兩者同時存在，後端優先使用 did 解析。
//
// Seed / Snap：
//   - Seed（int64 string）用於 deterministic 起始；若為空字串則自動生成（crypto/rand）。
//   - Snap（base64url string）代表 core snapshot；若提供 Snap，後端以 Snap Restore 為準。
//
// 注意：
//   - 這個 struct 是 API 邊界用的 DTO；不要把它滲透到 distribution math domain。
type devRequest struct {
	DID    string `json:"did"`
	Dist   string `json:"dist"`
	Rounds int    `json:"rounds"`
	Round  int    `json:"round"`
	Seed   string `json:"seed"`
	Snap   string `json:"snap"`
}

// round() 將 rounds/round 做兼容合併：優先 rounds，其次 round；若都未提供則回 0。
func (r devRequest) round() int {
	if r.Rounds > 0 {
		return r.Rounds
	}
	if r.Round > 0 {
		return r.Round
	}
	return 0
}

// Register 註冊 Dev Panel 的 routes。
//
// Routes：
//   - GET  /dev       ：Dev Panel HTML（內嵌 JS）。
//   - GET  /dev/meta  ：回傳 Catalog summary（供前端下拉選單）。
//   - POST /dev/draw  ：執行 N 次 Draw 並回傳每回合結果（含 start/after snap）。
//   - POST /dev/sim   ：執行 N 次 Sim 並回傳統計報表（不回傳逐回合 results）。
//
// 依賴：
//   - 需要 cfg.Distlab 已被上層組裝完成並注入；否則會回 errs.Fatal。
func Register(svr netsvr.NetRouter, cfg *svrcfg.SvrCfg) {
	svr.Get("/dev", devPage)
	svr.Get("/favicon.svg", favicon)
	svr.Get("/dev/meta", devMeta(cfg))
	svr.Post("/dev/draw", devDraw(cfg))
	svr.Post("/dev/sim", devSim(cfg))
}

// devPageHTML 是內嵌的 Dev Panel UI。
//
// UI 行為（contract）：
//   - Distribution：由 /dev/meta 動態載入。
//   - Seed/Snap 互斥：
//   - Snap 非空 → Seed 會被清空並 disable。
//   - Seed 非空 → Snap 會被清空並 disable。
//   - Snap takes precedence（後端也會以 Snap 為準）。
//   - Rounds：
//   - Draw：前端會 cap 在 5,000 以避免回傳 payload 過大。
//   - Sim ：前端會 cap 在 3,000,000 以避免長時間阻塞（仍屬 dev tooling）。
//
// 回傳呈現：
//   - Draw：Summary 區顯示快照與計數；Draw Results 展開後可逐筆查看索引/標籤。
//   - Sim ：僅顯示統計（statistic），不顯示逐回合 results。
const devPageHTML = `<!doctype html>
<html lang="zh-Hant">
<head>
  <meta charset="utf-8" />
  <link rel="icon" type="image/svg+xml" href="/favicon.svg" />
  <title>DistLab Dev</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 980px; margin: 24px auto; padding: 16px 20px; background:#111827; border:1px solid #1f2937; border-radius:12px; box-shadow:0 12px 50px rgba(0,0,0,0.35); }
    h1 { margin: 0 0 16px; font-size: 22px; letter-spacing: 0.3px; }
    .grid { display:grid; grid-template-columns: repeat(auto-fit, minmax(180px,1fr)); gap:12px; margin-bottom:12px; }
    label { display:flex; flex-direction:column; gap:6px; font-size: 13px; color:#cbd5e1; }
    input, select { background:#0b1224; color:#e2e8f0; border:1px solid #1f2738; border-radius:8px; padding:10px 12px; font-size:14px; }
    input:focus, select:focus { outline:1px solid #38bdf8; border-color:#38bdf8; }
    .actions { position:relative; display:flex; gap:10px; align-items:center; justify-content:flex-end; margin: 8px 0 14px; }
    button { cursor:pointer; border:none; border-radius:10px; padding:10px 14px; font-weight:600; letter-spacing:0.2px; }
    #btn-draw { background:#38bdf8; color:#0b1224; }
    #btn-sim { background:#22c55e; color:#0b1224; }
    #btn-clear { background:#1f2937; color:#e2e8f0; border:1px solid #334155; }
    button:disabled { opacity:0.6; cursor:not-allowed; }
    input:disabled, select:disabled { opacity: 0.55; cursor: not-allowed; filter: grayscale(0.25); }
    label.is-disabled { opacity: 0.55; }
    label.is-disabled input, label.is-disabled select { pointer-events: none; }
    .info { position:absolute; left:50%; transform:translateX(-50%); font-size:13px; color:#94a3b8; }
    .info.warn { color:#f87171; font-weight:600; }
    #summary { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:120px; overflow:auto; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; white-space:pre-wrap; margin-bottom:12px; }
    #roundsBox { border:1px solid #1f2737; border-radius:12px; padding:10px; background:#0b1224; margin-bottom:12px; max-height: calc(60vh - 56px); overflow:auto; }
    #roundList { max-height: calc(60vh - 136px); overflow:auto; }
    .round-item { display:grid; grid-template-columns: minmax(3.5em, max-content) minmax(60px, max-content) max-content; align-items:center; column-gap:12px; width:100%; text-align:left; background:none; border:none; padding:6px 10px; color:#e2e8f0; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; cursor:pointer; border-left: 4px solid transparent; }
    .round-item:hover { background:#1f2937; border-left-color:#38bdf8; }
    .round-item.selected { background:#2563eb; border-left-color:#60a5fa; }
    .round-index { color:#94a3b8; text-align:right; justify-self:end; min-width:3.5em; font-variant-numeric: tabular-nums; }
    .round-outcome { text-align:right; justify-self:end; font-variant-numeric: tabular-nums; }
    .round-label { color:#22c55e; }
    #detail { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:120px; overflow:auto; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; white-space:pre-wrap; display:none; }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>DistLab Dev Panel</h1>
    <div class="grid">
      <label>Distribution
        <select id="dist"></select>
      </label>
      <label>Seed (int64)
        <input id="seed" type="text" inputmode="numeric" placeholder="Empty = auto" />
      </label>
      <label>Snap(base64url)
        <input id="snap" type="text" placeholder="Paste snap (base64url)" />
      </label>
      <label>Rounds
        <input id="rounds" type="number" min="1" max="3000000" value="1" />
      </label>
    </div>
    <div class="actions">
      <button id="btn-draw">Draw</button>
      <button id="btn-sim">Sim</button>
      <button id="btn-clear">Clear</button>
      <span class="info" id="info"></span>
    </div>

    <pre id="summary"></pre>

    <details id="roundsBox" style="display:none;">
      <summary>Draw Results</summary>
      <div id="roundList"></div>
    </details>

    <pre id="detail" style="display:none;"></pre>
  </div>
<script>
const state = { meta: null, results: [] };
const distSel = document.getElementById('dist');
const seedInput = document.getElementById('seed');
const snapInput = document.getElementById('snap');
const roundsInput = document.getElementById('rounds');
const summary = document.getElementById('summary');
const roundsBox = document.getElementById('roundsBox');
const roundList = document.getElementById('roundList');
const detail = document.getElementById('detail');
const infoEl = document.getElementById('info');
const btnDraw = document.getElementById('btn-draw');
const btnSim = document.getElementById('btn-sim');
const btnClear = document.getElementById('btn-clear');

function setDisabled(el, disabled) {
  el.disabled = disabled;
  const label = el.closest('label');
  if (label) label.classList.toggle('is-disabled', disabled);
}

function syncInputLocks() {
  const seedValue = seedInput.value.trim();
  const snapValue = snapInput.value.trim();

  if (snapValue !== '') {
    seedInput.value = '';
    setDisabled(seedInput, true);
    setDisabled(snapInput, false);
    return;
  }
  if (seedValue !== '') {
    snapInput.value = '';
    setDisabled(snapInput, true);
    setDisabled(seedInput, false);
    return;
  }
  setDisabled(seedInput, false);
  setDisabled(snapInput, false);
}

async function loadMeta() {
  try {
    const res = await fetch('/dev/meta');
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    const dists = Array.isArray(data) ? data : (data.dists || data.summary || []);
    state.meta = { dists };
    distSel.innerHTML = '';
    state.meta.dists.forEach((d) => {
      const opt = document.createElement('option');
      opt.value = d.did != null ? String(d.did) : (d.name || '');
      opt.textContent = (d.name || String(opt.value)) + ' [' + (d.sampler || '?') + ', k=' + (d.k ?? '?') + ']';
      distSel.appendChild(opt);
    });
    summary.textContent = '';
    roundsBox.style.display = 'none';
    detail.style.display = 'none';
    setInfo('', false);
  } catch (err) {
    summary.textContent = 'Failed to load meta: ' + err.message;
  }
}

function setInfo(text, isWarn) {
  infoEl.textContent = text;
  infoEl.classList.toggle('warn', !!isWarn);
}

function setLoading(isLoading) {
  btnDraw.disabled = isLoading;
  btnSim.disabled = isLoading;
  if (isLoading) setInfo('Running…', false);
}

function clearSelection() {
  summary.textContent = '';
  roundsBox.style.display = 'none';
  detail.style.display = 'none';
  roundList.innerHTML = '';
  state.results = [];
}

function renderDetail(index) {
  if (!state.results || !state.results[index]) {
    detail.textContent = '';
    detail.style.display = 'none';
    return;
  }
  detail.textContent = JSON.stringify(state.results[index], null, 2);
  detail.style.display = 'block';
  const buttons = roundList.querySelectorAll('.round-item');
  buttons.forEach((btn, idx) => btn.classList.toggle('selected', idx === index));
}

function buildPayload(cap) {
  const inputRounds = Number(roundsInput.value) || 1;
  const safeRounds = Math.min(inputRounds, cap);
  const payload = { rounds: safeRounds, round: safeRounds, did: distSel.value };
  const snap = snapInput.value.trim();
  const seed = seedInput.value.trim();
  if (snap) {
    payload.snap = snap;
  } else if (seed) {
    payload.seed = seed;
  }
  return { payload, inputRounds };
}

async function runDraw() {
  setLoading(true);
  clearSelection();
  const { payload, inputRounds } = buildPayload(5000);
  try {
    const res = await fetch('/dev/draw', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(payload),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();

    const summaryObj = { ...data };
    delete summaryObj.results;
    summary.textContent = JSON.stringify(summaryObj, null, 2);

    setInfo(inputRounds > 5000 ? 'Draw records are capped at 5,000 rounds.' : '', inputRounds > 5000);

    const results = Array.isArray(data.results) ? data.results : [];
    if (results.length > 0) {
      state.results = results;
      roundList.innerHTML = '';
      results.forEach((dto, idx) => {
        const btn = document.createElement('button');
        btn.type = 'button';
        btn.className = 'round-item';
        const idxSpan = document.createElement('span');
        idxSpan.className = 'round-index';
        idxSpan.textContent = '#' + (idx + 1);
        const outSpan = document.createElement('span');
        outSpan.className = 'round-outcome';
        outSpan.textContent = String(dto.index ?? '?');
        const labelSpan = document.createElement('span');
        labelSpan.className = 'round-label';
        labelSpan.textContent = dto.label || '';
        btn.appendChild(idxSpan);
        btn.appendChild(outSpan);
        btn.appendChild(labelSpan);
        btn.addEventListener('click', () => renderDetail(idx));
        roundList.appendChild(btn);
      });
      roundsBox.style.display = 'block';
      renderDetail(0);
    }
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

async function runSim() {
  setLoading(true);
  clearSelection();
  const { payload, inputRounds } = buildPayload(3000000);
  try {
    const res = await fetch('/dev/sim', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(payload),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    const summaryObj = data.statistic || data.stats || data;
    summary.textContent = JSON.stringify(summaryObj, null, 2);
    setInfo(inputRounds > 3000000 ? 'Sim statistics are capped at 3,000,000 rounds.' : '', inputRounds > 3000000);
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

btnDraw.addEventListener('click', runDraw);
btnSim.addEventListener('click', runSim);
btnClear.addEventListener('click', () => {
  clearSelection();
  setInfo('', false);
});
seedInput.addEventListener('input', syncInputLocks);
snapInput.addEventListener('input', syncInputLocks);

syncInputLocks();
loadMeta();
</script>
</body>
</html>`

// devPage 回傳內嵌 HTML（single page）。這裡不做 templating，降低 dev tool 維護成本。
func devPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(devPageHTML))
}

// favicon 提供 Dev Panel 的 favicon.svg。
func favicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(faviconSVG))
}

// devMeta 回傳 Catalog summary（JSON）。
//
// 前端依賴欄位：did / name / sampler / k。
func devMeta(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lab, ok := getDistlab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("distlab is required"))
			return
		}
		sum, err := lab.Summary()
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sum)
	}
}

// devDraw 執行「可回放」的 Draw。
//
// 流程（high level）：
//  1. decode devRequest（JSON body）
//  2. resolve dist（did/name）→ catalog.Summary
//  3. resolve seed（empty = auto）
//  4. 建立 DevSimulator → Draws() 或 RestoreDraws()
//
// Snap precedence：若 snap 非空，會走 RestoreDraws(snap, ...)。
func devDraw(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(devRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
		lab, ok := getDistlab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("distlab is required"))
			return
		}
		sum, err := resolveSummary(lab, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		round := req.round()
		if round < 1 {
			httperr.Errs(w, errs.NewWarn("round is required"))
			return
		}
		snap := strings.TrimSpace(req.Snap)
		seed, err := resolveSeed(req.Seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		sim, err := lab.NewDevSimulator(sum.DID, seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		var report distlab.DevDrawReport
		if snap != "" {
			report, err = sim.RestoreDraws(snap, round)
		} else {
			report, err = sim.Draws(round)
		}
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}
}

// devSim 執行統計模擬（simulation）。
//
// 和 devDraw 的差異：
//   - devSim 不回逐回合 results（降低 response size），僅回 DevSimReport（statistic）。
//   - 若提供 snap，會走 RestoreSim(snap, ...)。
func devSim(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(devRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
		lab, ok := getDistlab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("distlab is required"))
			return
		}
		sum, err := resolveSummary(lab, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		round := req.round()
		if round < 1 {
			httperr.Errs(w, errs.NewWarn("round is required"))
			return
		}
		snap := strings.TrimSpace(req.Snap)
		seed, err := resolveSeed(req.Seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		sim, err := lab.NewDevSimulator(sum.DID, seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		var report distlab.DevSimReport
		if snap != "" {
			report, err = sim.RestoreSim(snap, round)
		} else {
			report, err = sim.Sim(round)
		}
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}
}

// getDistlab 從 server config 取得已組裝的 Distlab instance。
// Dev routes 不負責組裝（assembler），只負責使用（runtime entry）。
func getDistlab(cfg *svrcfg.SvrCfg) (*distlab.Distlab, bool) {
	if cfg == nil || cfg.Distlab == nil {
		return nil, false
	}
	return cfg.Distlab, true
}

// resolveSummary 解析使用者指定的分布：
//   - 若 did 非空：以 did 精準匹配（fast path）。
//   - 否則若 dist(name) 非空：做 case-insensitive name 匹配。
//
// 回傳 catalog.Summary 作為後續建 simulator 的依據。
func resolveSummary(lab *distlab.Distlab, req *devRequest) (catalog.Summary, error) {
	sums, err := lab.Summary()
	if err != nil {
		return catalog.Summary{}, err
	}
	if did := strings.TrimSpace(req.DID); did != "" {
		sd := spec.DID(did)
		for _, s := range sums {
			if s.DID == sd {
				return s, nil
			}
		}
		return catalog.Summary{}, errs.NewWarn("did not found")
	}
	name := strings.TrimSpace(req.Dist)
	if name != "" {
		for _, s := range sums {
			if strings.EqualFold(s.Name, name) {
				return s, nil
			}
		}
		return catalog.Summary{}, errs.NewWarn("dist not found")
	}
	return catalog.Summary{}, errs.NewWarn("dist is required")
}

// resolveSeed 解析 seed（int64 string）。
//   - 空字串：自動生成 seed（crypto/rand），方便快速測試。
//   - 非空：必須為合法 int64。
func resolveSeed(seed string) (int64, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return randomSeed()
	}
	v, err := strconv.ParseInt(seed, 10, 64)
	if err != nil {
		return 0, errs.NewWarn("seed must be int64")
	}
	return v, nil
}

// randomSeed 使用 crypto/rand 產生 [0, MaxInt64) 的種子。
// 目的：避免 math/rand 的 deterministic 來源造成 seed 品質偏差（dev tool 也要可依賴）。
func randomSeed() (int64, error) {
	rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.NewWarn("seed generate failed")
	}
	return rnd.Int64(), nil
}

//go:embed favicon.svg
var faviconSVG string

// keep embed imported even if only used for directives
var _ embed.FS
