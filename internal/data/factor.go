package data

import "context"

// FactorInfo fetches factor metadata (GET /api/factor).
func (c *Client) FactorInfo(ctx context.Context, params Params) (Payload, error) {
	return c.Get(ctx, FactorInfoPath, params)
}

// FactorStats fetches aggregate factor statistics (GET /api/factor/stats).
func (c *Client) FactorStats(ctx context.Context, params Params) (Payload, error) {
	return c.Get(ctx, FactorStatsPath, params)
}

// FactorStatsBacktest fetches per-factor backtest return series
// (GET /api/factor/stats/backtest).
func (c *Client) FactorStatsBacktest(ctx context.Context, params Params) (Payload, error) {
	return c.Get(ctx, FactorStatsBacktestPath, params)
}

// FactorStatsGroup fetches per-factor group PnL series (GET /api/factor/stats/group).
func (c *Client) FactorStatsGroup(ctx context.Context, params Params) (Payload, error) {
	return c.Get(ctx, FactorStatsGroupPath, params)
}

// FactorStatsIC fetches per-factor information coefficient series
// (GET /api/factor/stats/ic).
func (c *Client) FactorStatsIC(ctx context.Context, params Params) (Payload, error) {
	return c.Get(ctx, FactorStatsICPath, params)
}

// FactorPerf fetches the IC, group and backtest series of one factor
// (GET /api/factor/{factorName}).
func (c *Client) FactorPerf(ctx context.Context, factorName string, params Params) (Payload, error) {
	path, err := namedPath(FactorInfoPath, factorName, "")
	if err != nil {
		return nil, err
	}
	return c.get(ctx, FactorPerfPath, path, params)
}

// FactorUpdate fetches factor update status (GET /api/factor/update).
func (c *Client) FactorUpdate(ctx context.Context, params Params) (Payload, error) {
	return c.Get(ctx, FactorUpdatePath, params)
}
