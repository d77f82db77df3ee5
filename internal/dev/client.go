package dev

import (
	"encoding/json"
	"strings"
)

// HotRuntimePath is where the dev server exposes the hot-reload client
// runtime module.
const HotRuntimePath = "/-/hot.js"

// WebSocketPath is the default reload websocket endpoint.
const WebSocketPath = "/-/hmr"

// WebSocketURLScript emits the script that tells the client runtime where
// the reload websocket lives. Returns "" when no URL is configured.
func WebSocketURLScript(wsURL string) string {
	if wsURL == "" {
		return ""
	}
	// JSON-encode to get a safely quoted JS string literal.
	quoted, err := json.Marshal(wsURL)
	if err != nil {
		return ""
	}
	return `<script>window.__hotWebSocketUrl=` + string(quoted) + `;</script>`
}

// BootstrapScript emits the template-level hot-reload bootstrap: it connects
// the client runtime and triggers full reloads.
func BootstrapScript() string {
	return `<script type="module">import hot from "` + HotRuntimePath + `";hot("./index.html").accept();</script>`
}

// StyleHotScript emits the per-stylesheet hot-reload bootstrap inserted
// after a stylesheet link in development mode.
func StyleHotScript(specifier string) string {
	quoted, err := json.Marshal(specifier)
	if err != nil {
		quoted = []byte(`""`)
	}
	return `<script type="module">import hot from "` + HotRuntimePath + `";hot(` + string(quoted) + `).accept();</script>`
}

// ClientRuntime is the hot-reload runtime served at HotRuntimePath. It is a
// small hand-written module: it opens the reload websocket, re-fetches
// stylesheets on css messages, and reloads the page otherwise.
const ClientRuntime = `const callbacks = new Map();
let ws;
function connect() {
  const url = window.__hotWebSocketUrl ?? ("ws://" + location.host + "` + WebSocketPath + `");
  ws = new WebSocket(url);
  ws.onmessage = (e) => {
    const msg = JSON.parse(e.data);
    if (msg.type === "css" && callbacks.has(msg.specifier)) {
      callbacks.get(msg.specifier)();
      return;
    }
    if (msg.type === "reload") {
      location.reload();
    }
  };
  ws.onclose = () => setTimeout(connect, 1000);
}
connect();
export default function hot(specifier) {
  return {
    accept() {
      callbacks.set(specifier, () => {
        const link = document.querySelector('link[data-module-id=' + JSON.stringify(specifier) + ']');
        if (link) {
          const next = link.cloneNode();
          next.href = link.href.split("?")[0] + "?t=" + Date.now();
          link.replaceWith(next);
        } else {
          location.reload();
        }
      });
    },
  };
}
`

// ServeRuntime reports whether a request path is the client runtime.
func ServeRuntime(path string) bool {
	return strings.TrimSuffix(path, "/") == HotRuntimePath
}
