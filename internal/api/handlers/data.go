package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"factorview/internal/api/models"
	"factorview/internal/data"

	"github.com/gin-gonic/gin"
)

// DataHandler exposes the backend client to the dashboard: each route makes
// exactly one backend call and relays the payload untouched.
type DataHandler struct {
	client *data.Client
}

// NewDataHandler creates a data handler
func NewDataHandler(client *data.Client) *DataHandler {
	return &DataHandler{client: client}
}

// Register mounts the data routes on g.
func (h *DataHandler) Register(g *gin.RouterGroup) {
	g.GET("/factor", h.plain(h.client.FactorInfo))
	g.GET("/factor/stats", h.plain(h.client.FactorStats))
	g.GET("/factor/stats/backtest", h.plain(h.client.FactorStatsBacktest))
	g.GET("/factor/stats/group", h.plain(h.client.FactorStatsGroup))
	g.GET("/factor/stats/ic", h.plain(h.client.FactorStatsIC))
	g.GET("/factor/update", h.plain(h.client.FactorUpdate))
	g.GET("/factor/name/:name", h.named(h.client.FactorPerf))
	g.GET("/strategy", h.plain(h.client.Strategies))
	g.GET("/strategy/name/:name", h.named(h.client.StrategyPerf))
	g.GET("/strategy/name/:name/factors", h.named(h.client.StrategyFactorPerf))
}

type plainCall func(ctx context.Context, p data.Params) (data.Payload, error)

type namedCall func(ctx context.Context, name string, p data.Params) (data.Payload, error)

func (h *DataHandler) plain(call plainCall) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := call(c.Request.Context(), ParamsFromQuery(c.Request.URL.Query()))
		h.respond(c, payload, err)
	}
}

func (h *DataHandler) named(call namedCall) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := call(c.Request.Context(), c.Param("name"), ParamsFromQuery(c.Request.URL.Query()))
		h.respond(c, payload, err)
	}
}

func (h *DataHandler) respond(c *gin.Context, payload data.Payload, err error) {
	if err == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
		return
	}
	_ = c.Error(err)

	var apiErr *data.APIError
	switch {
	case errors.As(err, &apiErr):
		c.JSON(apiErr.StatusCode, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "BACKEND_ERROR",
				Message: apiErr.Status,
				Details: map[string]interface{}{
					"status_code": apiErr.StatusCode,
					"body":        string(apiErr.Body),
				},
			},
		})
	case errors.Is(err, data.ErrEmptyName), errors.Is(err, data.ErrInvalidName):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_NAME", Message: err.Error()},
		})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "DATA_FETCH_ERROR", Message: err.Error()},
		})
	}
}

// ParamsFromQuery converts request query values into a backend query bag,
// keeping lists for repeated keys.
func ParamsFromQuery(q url.Values) data.Params {
	out := make(data.Params, len(q))
	for k, vs := range q {
		if len(vs) == 1 {
			out[k] = vs[0]
		} else {
			out[k] = vs
		}
	}
	return out
}
