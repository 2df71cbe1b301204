package index

import "net/http"

const indexHTML = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8" /><title>DistLab</title></head>
<body style="font-family:ui-monospace,monospace;background:#0f172a;color:#e2e8f0;padding:24px;">
<h1>DistLab</h1>
<p>categorical distribution laboratory</p>
<ul>
  <li><a href="/dev" style="color:#38bdf8;">/dev</a> — dev panel</li>
  <li>POST /v1/draw — draw from a pooled machine</li>
  <li>GET/POST /v1/dist — distribution facts (pmf/cdf/mean/min/max)</li>
  <li>GET/POST /v1/sim — frequency simulation</li>
  <li>GET/POST /v1/simruns — repeated-run estimator</li>
  <li>POST /v1/simbycfg — simulate an ad-hoc config</li>
  <li>POST /v1/stat — recompute a report from raw draws</li>
</ul>
</body>
</html>`

// IndexHandlerFn serves the plain landing page.
func IndexHandlerFn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}
