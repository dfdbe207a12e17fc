package data

// Backend endpoint paths. The templated paths are used as metric labels;
// requests substitute the escaped name.
const (
	FactorInfoPath          = "/api/factor"
	FactorStatsPath         = "/api/factor/stats"
	FactorStatsBacktestPath = "/api/factor/stats/backtest"
	FactorStatsGroupPath    = "/api/factor/stats/group"
	FactorStatsICPath       = "/api/factor/stats/ic"
	FactorUpdatePath        = "/api/factor/update"

	FactorPerfPath = "/api/factor/{factorName}"

	StrategyPath           = "/api/strategy"
	StrategyPerfPath       = "/api/strategy/{strategyName}"
	StrategyFactorPerfPath = "/api/strategy/{strategyName}/factors"
)
