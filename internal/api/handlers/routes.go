package handlers

import (
	"net/http"

	"factorview/internal/api/models"
	"factorview/internal/routes"

	"github.com/gin-gonic/gin"
)

// RouteHandler lists the page-route table.
type RouteHandler struct {
	table *routes.Table
}

// NewRouteHandler creates a route handler
func NewRouteHandler(table *routes.Table) *RouteHandler {
	return &RouteHandler{table: table}
}

// ListRoutes handles GET /routes
func (h *RouteHandler) ListRoutes(c *gin.Context) {
	rs := h.table.Routes()
	out := make([]models.RouteInfo, len(rs))
	for i, r := range rs {
		out[i] = models.RouteInfo{Path: r.Path, Name: r.Name}
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}

// ResolveRoute handles GET /routes/resolve?path=... where path is given in
// its escaped form, as it appears in the address bar.
func (h *RouteHandler) ResolveRoute(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "MISSING_PARAM",
				Message: "path query parameter is required",
			},
		})
		return
	}
	m, ok := h.table.Resolve(path)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NO_ROUTE", Message: "no route matches " + path},
		})
		return
	}
	c.JSON(http.StatusOK, models.PageResponse{Name: m.Route.Name, Path: path, Params: m.Params})
}
