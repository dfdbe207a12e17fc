package handlers

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"factorview/internal/logging"

	"github.com/gin-gonic/gin"
)

// APIPrefix is the path prefix forwarded to the backend.
const APIPrefix = "/api"

// ProxyHandler forwards /api requests to the backend, optionally removing
// the /api prefix first.
type ProxyHandler struct {
	target      *url.URL
	stripPrefix bool
	proxy       *httputil.ReverseProxy
}

// NewProxyHandler creates a reverse proxy to target.
func NewProxyHandler(target string, stripPrefix bool) (*ProxyHandler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy target: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q: must be absolute", target)
	}
	h := &ProxyHandler{target: u, stripPrefix: stripPrefix}
	h.proxy = &httputil.ReverseProxy{
		Rewrite: h.rewrite,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.Warn().Err(err).Str("path", r.URL.Path).Str("target", u.String()).Msg("proxy request failed")
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = fmt.Fprintf(w, `{"error":{"code":"BAD_GATEWAY","message":%q}}`, "backend unavailable")
		},
	}
	return h, nil
}

// rewrite points the request at the target, changing Host like a
// changeOrigin dev proxy.
func (h *ProxyHandler) rewrite(pr *httputil.ProxyRequest) {
	if h.stripPrefix {
		pr.Out.URL.Path = StripAPIPrefix(pr.In.URL.Path)
		pr.Out.URL.RawPath = StripAPIPrefix(pr.In.URL.RawPath)
	}
	pr.SetURL(h.target)
	pr.SetXForwarded()
}

// StripAPIPrefix removes a leading /api from path. The result is never
// empty unless path was.
func StripAPIPrefix(path string) string {
	if path == "" {
		return ""
	}
	if path == APIPrefix {
		return "/"
	}
	if strings.HasPrefix(path, APIPrefix+"/") {
		return path[len(APIPrefix):]
	}
	return path
}

// Forward handles /api and /api/*path.
func (h *ProxyHandler) Forward(c *gin.Context) {
	h.proxy.ServeHTTP(c.Writer, c.Request)
}
