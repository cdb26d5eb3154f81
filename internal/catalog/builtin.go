package catalog

func fp(v float64) *float64 { return &v }

// builtinDefinitions is the indicator set compiled into the binary.
// Deployments extend or override it with a JSON catalog file.
var builtinDefinitions = []IndicatorDefinition{
	{
		ID:          "rsi",
		Name:        "RSI",
		Description: "Relative Strength Index momentum oscillator",
		Category:    "momentum",
		Inputs: []InputSpec{
			{Name: "period", Type: "number", Default: float64(14), Min: fp(2), Max: fp(100), Step: fp(1)},
			{Name: "oversold_level", Type: "number", Default: float64(30), Min: fp(1), Max: fp(50), Step: fp(1)},
			{Name: "overbought_level", Type: "number", Default: float64(70), Min: fp(50), Max: fp(99), Step: fp(1)},
		},
		Outputs: []OutputSpec{
			{Name: "value", Type: "number", Description: "RSI value in [0, 100]"},
			{Name: "oversold", Type: "boolean", Description: "true while RSI is below the oversold level"},
			{Name: "overbought", Type: "boolean", Description: "true while RSI is above the overbought level"},
		},
		Calculation: "100 - 100 / (1 + RS)",
		Icon:        "pulse",
	},
	{
		ID:          "sma",
		Name:        "SMA",
		Description: "Simple Moving Average",
		Category:    "trend",
		Inputs: []InputSpec{
			{Name: "period", Type: "number", Default: float64(20), Min: fp(1), Max: fp(500), Step: fp(1)},
			{Name: "source", Type: "string", Default: "close"},
		},
		Outputs: []OutputSpec{
			{Name: "value", Type: "number", Description: "average of the last period closes"},
		},
		Calculation: "sum(source, period) / period",
		Icon:        "trending-up",
	},
	{
		ID:          "ema",
		Name:        "EMA",
		Description: "Exponential Moving Average",
		Category:    "trend",
		Inputs: []InputSpec{
			{Name: "period", Type: "number", Default: float64(20), Min: fp(1), Max: fp(500), Step: fp(1)},
			{Name: "smoothing", Type: "number", Default: float64(2), Min: fp(1), Max: fp(10), Step: fp(0.5)},
		},
		Outputs: []OutputSpec{
			{Name: "value", Type: "number", Description: "exponentially weighted average"},
		},
		Calculation: "price * k + ema_prev * (1 - k)",
		Icon:        "trending-up",
	},
	{
		ID:          "macd",
		Name:        "MACD",
		Description: "Moving Average Convergence Divergence",
		Category:    "momentum",
		Inputs: []InputSpec{
			{Name: "fast_period", Type: "number", Default: float64(12), Min: fp(1), Max: fp(100), Step: fp(1)},
			{Name: "slow_period", Type: "number", Default: float64(26), Min: fp(1), Max: fp(100), Step: fp(1)},
			{Name: "signal_period", Type: "number", Default: float64(9), Min: fp(1), Max: fp(100), Step: fp(1)},
		},
		Outputs: []OutputSpec{
			{Name: "macd", Type: "number", Description: "fast EMA minus slow EMA"},
			{Name: "signal_line", Type: "number", Description: "EMA of the MACD line"},
			{Name: "histogram", Type: "number", Description: "MACD minus signal line"},
			{Name: "crossover", Type: "boolean", Description: "true when MACD crosses above the signal line"},
		},
		Calculation: "EMA(fast) - EMA(slow)",
		Icon:        "activity",
	},
	{
		ID:          "bollinger",
		Name:        "Bollinger Bands",
		Description: "Volatility bands around a moving average",
		Category:    "volatility",
		Inputs: []InputSpec{
			{Name: "period", Type: "number", Default: float64(20), Min: fp(1), Max: fp(200), Step: fp(1)},
			{Name: "deviations", Type: "number", Default: float64(2), Min: fp(0.5), Max: fp(5), Step: fp(0.5)},
		},
		Outputs: []OutputSpec{
			{Name: "upper", Type: "number", Description: "upper band"},
			{Name: "middle", Type: "number", Description: "middle band (SMA)"},
			{Name: "lower", Type: "number", Description: "lower band"},
			{Name: "squeeze", Type: "boolean", Description: "true when band width is contracting"},
		},
		Calculation: "SMA(period) ± deviations * stddev",
		Icon:        "align-vertical-distribute-center",
	},
	{
		ID:          "stochastic",
		Name:        "Stochastic",
		Description: "Stochastic oscillator comparing close to recent range",
		Category:    "momentum",
		Inputs: []InputSpec{
			{Name: "k_period", Type: "number", Default: float64(14), Min: fp(1), Max: fp(100), Step: fp(1)},
			{Name: "d_period", Type: "number", Default: float64(3), Min: fp(1), Max: fp(50), Step: fp(1)},
		},
		Outputs: []OutputSpec{
			{Name: "k", Type: "number", Description: "%K line"},
			{Name: "d", Type: "number", Description: "%D line"},
			{Name: "oversold", Type: "boolean", Description: "true while %K is below 20"},
		},
		Calculation: "(close - low_n) / (high_n - low_n) * 100",
		Icon:        "wave",
	},
	{
		ID:          "atr",
		Name:        "ATR",
		Description: "Average True Range volatility measure",
		Category:    "volatility",
		Inputs: []InputSpec{
			{Name: "period", Type: "number", Default: float64(14), Min: fp(1), Max: fp(100), Step: fp(1)},
		},
		Outputs: []OutputSpec{
			{Name: "value", Type: "number", Description: "smoothed true range"},
		},
		Calculation: "EMA(true_range, period)",
		Icon:        "bar-chart",
	},
	{
		ID:          "volume",
		Name:        "Volume",
		Description: "Traded volume with moving-average comparison",
		Category:    "volume",
		Inputs: []InputSpec{
			{Name: "ma_period", Type: "number", Default: float64(20), Min: fp(1), Max: fp(200), Step: fp(1)},
		},
		Outputs: []OutputSpec{
			{Name: "value", Type: "number", Description: "raw volume"},
			{Name: "above_average", Type: "boolean", Description: "true when volume exceeds its moving average"},
		},
		Calculation: "volume vs SMA(volume, ma_period)",
		Icon:        "bar-chart-2",
	},
}
