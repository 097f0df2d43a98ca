package features

import (
	"math"

	"PhiTrade/internal/domain/models"
)

// Defaults for the indicator set.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerWidth  = 2.0
	VolWindow       = 20
)

// ComputeLogReturns computes log returns r_t = ln(p_t / p_{t-1}).
// It returns a slice of length len(prices)-1, or nil if insufficient data.
func ComputeLogReturns(prices []models.PricePoint) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1].Price
		cur := prices[i].Price
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the latest
// rolling window using the provided number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// RSI computes the Wilder relative strength index over the trailing period.
// Returns 50 (neutral) when the series is too short.
func RSI(prices []models.PricePoint, period int) float64 {
	if period <= 0 || len(prices) <= period {
		return 50
	}
	gains, losses := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := prices[i].Price - prices[i-1].Price
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	for i := period + 1; i < len(prices); i++ {
		d := prices[i].Price - prices[i-1].Price
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func ema(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	k := 2.0 / (float64(period) + 1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// MACD returns the MACD line minus its signal line (the histogram value)
// for the latest bar, using the standard 12/26/9 EMAs.
func MACD(prices []models.PricePoint) float64 {
	if len(prices) < MACDSlow+MACDSignal {
		return 0
	}
	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Price
	}
	fast := ema(closes, MACDFast)
	slow := ema(closes, MACDSlow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal := ema(line, MACDSignal)
	last := len(closes) - 1
	return line[last] - signal[last]
}

// Bollinger computes the 20-period bands at +/- 2 standard deviations
// around the simple moving average.
func Bollinger(prices []models.PricePoint, period int, width float64) models.BollingerBands {
	if period <= 1 || len(prices) < period {
		var last float64
		if len(prices) > 0 {
			last = prices[len(prices)-1].Price
		}
		return models.BollingerBands{Upper: last, Middle: last, Lower: last}
	}
	sum, sum2 := 0.0, 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		p := prices[i].Price
		sum += p
		sum2 += p * p
	}
	n := float64(period)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	sd := math.Sqrt(variance)
	return models.BollingerBands{
		Upper:  mean + width*sd,
		Middle: mean,
		Lower:  mean - width*sd,
	}
}

// BarsPerYearForTF returns the approximate number of bars per year for a
// timeframe.
func BarsPerYearForTF(tf string) float64 {
	switch tf {
	case "1s":
		return 365 * 24 * 60 * 60
	case "1m":
		return 365 * 24 * 60
	case "5m":
		return 365 * 24 * 12
	case "1d":
		return 252
	default:
		return 365 * 24 * 60
	}
}

// BuildMarketState assembles the immutable per-call snapshot from an
// ascending price series plus the latest volume. Returns an error when the
// series cannot support return computation.
func BuildMarketState(symbol string, prices []models.PricePoint, volume float64, tf string) (models.MarketState, error) {
	if len(prices) < 2 {
		return models.MarketState{}, &models.InsufficientDataError{Op: "market state", Need: 2, Got: len(prices)}
	}
	returns := ComputeLogReturns(prices)
	window := VolWindow
	if len(returns) < window {
		window = len(returns)
	}
	last := prices[len(prices)-1]
	return models.MarketState{
		Symbol:     symbol,
		Price:      last.Price,
		Volume:     volume,
		Volatility: RealizedVolatility(returns, window, BarsPerYearForTF(tf)),
		RSI:        RSI(prices, RSIPeriod),
		MACD:       MACD(prices),
		Bollinger:  Bollinger(prices, BollingerPeriod, BollingerWidth),
		Timestamp:  last.Timestamp,
	}, nil
}
