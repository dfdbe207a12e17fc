package data

import "context"

// Strategies fetches strategy metadata (GET /api/strategy).
func (c *Client) Strategies(ctx context.Context, params Params) (Payload, error) {
	return c.Get(ctx, StrategyPath, params)
}

// StrategyPerf fetches the backtest series of one strategy
// (GET /api/strategy/{strategyName}).
func (c *Client) StrategyPerf(ctx context.Context, strategyName string, params Params) (Payload, error) {
	path, err := namedPath(StrategyPath, strategyName, "")
	if err != nil {
		return nil, err
	}
	return c.get(ctx, StrategyPerfPath, path, params)
}

// StrategyFactorPerf fetches factor statistics for the factors a strategy is
// built from (GET /api/strategy/{strategyName}/factors).
func (c *Client) StrategyFactorPerf(ctx context.Context, strategyName string, params Params) (Payload, error) {
	path, err := namedPath(StrategyPath, strategyName, "/factors")
	if err != nil {
		return nil, err
	}
	return c.get(ctx, StrategyFactorPerfPath, path, params)
}
