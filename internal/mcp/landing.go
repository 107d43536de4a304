package mcp

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Textbook Tutor</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #f8fafc; color: #1e293b; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 640px; width: 90%; background: #ffffff; border-radius: 12px; padding: 2.5rem; box-shadow: 0 10px 30px rgba(15,23,42,0.12); }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; }
  .subtitle { color: #475569; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  a { color: #0369a1; text-decoration: none; }
  a:hover { text-decoration: underline; }
  ul { list-style: none; }
  li { margin-bottom: 0.35rem; }
  code { font-family: "SF Mono", "Fira Code", Menlo, monospace; font-size: 0.9rem; color: #4338ca; }
</style>
</head>
<body>
<div class="card">
  <h1>Textbook Tutor</h1>
  <p class="subtitle">Answers students' questions from the pages of a loaded textbook, over the Model Context Protocol.</p>

  <div class="section">
    <div class="section-title">Tools</div>
    <ul>
      <li><code>load_textbook</code> load a PDF by path, URL or library reference</li>
      <li><code>search_textbook</code> find the passages that match a question</li>
      <li><code>ask_textbook</code> get an answer grounded in those passages</li>
      <li><code>clear_conversation</code> forget a conversation thread</li>
      <li><code>get_status</code> show the loaded textbook</li>
    </ul>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><a href="/mcp"><code>/mcp</code></a> MCP Streamable HTTP</p>
    <p><a href="/health"><code>/health</code></a> Health check</p>
  </div>
</div>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
