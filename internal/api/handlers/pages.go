package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"factorview/internal/api/middleware"
	"factorview/internal/api/models"
	"factorview/internal/logging"
	"factorview/internal/routes"

	"github.com/gin-gonic/gin"
)

// PageHandler serves dashboard pages. With a built front-end in staticDir it
// returns index.html for every page route (the browser router takes over);
// without one it answers with the resolved view as JSON.
type PageHandler struct {
	table     *routes.Table
	staticDir string
}

// NewPageHandler creates a page handler. staticDir is ignored unless it
// contains index.html.
func NewPageHandler(table *routes.Table, staticDir string) *PageHandler {
	h := &PageHandler{table: table}
	if staticDir != "" {
		if info, err := os.Stat(filepath.Join(staticDir, "index.html")); err == nil && !info.IsDir() {
			h.staticDir = staticDir
		} else {
			logging.Info().Str("static_dir", staticDir).Msg("no index.html found, serving page routes as JSON")
		}
	}
	return h
}

// StaticDir returns the directory serving the front-end, or "".
func (h *PageHandler) StaticDir() string { return h.staticDir }

// Serve is the NoRoute handler.
func (h *PageHandler) Serve(c *gin.Context) {
	path := c.Request.URL.Path
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		c.Set(middleware.RouteKey, "api:unmatched")
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "METHOD_NOT_ALLOWED", Message: c.Request.Method + " not allowed"},
		})
		return
	}

	m, ok := h.table.Resolve(c.Request.URL.EscapedPath())
	if !ok {
		m = routes.Match{Route: routes.Route{Name: routes.NotFound}, Params: map[string]string{}}
	}
	c.Set(middleware.RouteKey, "page:"+m.Route.Name)

	status := http.StatusOK
	if m.Route.Name == routes.NotFound {
		status = http.StatusNotFound
	}

	if h.staticDir != "" {
		index, err := os.ReadFile(filepath.Join(h.staticDir, "index.html"))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: models.ErrorDetail{Code: "INDEX_UNAVAILABLE", Message: "index.html could not be read"},
			})
			return
		}
		c.Data(status, "text/html; charset=utf-8", index)
		return
	}
	c.JSON(status, models.PageResponse{Name: m.Route.Name, Path: path, Params: m.Params})
}
