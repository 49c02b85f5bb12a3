package web

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/monokrome/astrogonia/internal/transform"
)

const liveReloadScript = `<script>
  (function() {
    var socket = new WebSocket("ws://" + window.location.host + "/ws");
    socket.onmessage = function(event) {
      if (event.data === "reload") {
        window.location.reload();
      }
    };
  })();
</script>
`

// transformMiddleware buffers HTML responses, renders any directive
// markup in hydrate mode and injects the live-reload client. Rendering
// is best effort: when it fails the buffered original is served as-is.
func (s *Server) transformMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		if !wantsHTML(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		iw := newInterceptingWriter(w)
		next.ServeHTTP(iw, r)

		for key, values := range iw.Header() {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}

		body := iw.body.Bytes()
		if iw.statusCode != http.StatusOK || !isHTMLResponse(iw.Header()) {
			w.WriteHeader(iw.statusCode)
			_, _ = w.Write(body)
			return
		}

		if bytes.Contains(body, []byte("g-")) {
			engine, registry, templates, scope := s.transformStack()
			out, err := transform.Document(r.Context(), string(body), transform.Options{
				Scope:     scope,
				Registry:  registry,
				Engine:    engine,
				Templates: templates,
				Mode:      transform.ModeHydrate,
			})
			if err != nil {
				s.logger.Warn("render failed, serving original", "path", r.URL.Path, "error", err)
			} else {
				body = []byte(out)
			}
		}

		body = injectLiveReload(body)

		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(iw.statusCode)
		_, _ = w.Write(body)
	})
}

func wantsHTML(path string) bool {
	return strings.HasSuffix(path, ".html") || strings.HasSuffix(path, "/")
}

func isHTMLResponse(h http.Header) bool {
	ct := h.Get("Content-Type")
	return ct == "" || strings.Contains(ct, "text/html")
}

func injectLiveReload(body []byte) []byte {
	if bytes.Contains(body, []byte("</body>")) {
		return bytes.Replace(body, []byte("</body>"), []byte(liveReloadScript+"</body>"), 1)
	}
	return append(body, []byte(liveReloadScript)...)
}

// interceptingWriter buffers the downstream response so the middleware
// can rewrite the body before anything reaches the client.
type interceptingWriter struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	header     http.Header
}

func newInterceptingWriter(w http.ResponseWriter) *interceptingWriter {
	return &interceptingWriter{
		ResponseWriter: w,
		body:           new(bytes.Buffer),
		header:         make(http.Header),
		statusCode:     http.StatusOK,
	}
}

func (iw *interceptingWriter) Header() http.Header {
	return iw.header
}

func (iw *interceptingWriter) Write(b []byte) (int, error) {
	return iw.body.Write(b)
}

func (iw *interceptingWriter) WriteHeader(statusCode int) {
	iw.statusCode = statusCode
}
