package decision

import (
	"math"

	"PhiTrade/internal/domain/models"
	"PhiTrade/internal/services/encoding"
)

// SizerFunc maps an already risk-scaled notional to the notional actually
// committed for one action variant. Options variants size down in φ-powers
// of their leg count so multi-leg structures never outweigh the underlying.
type SizerFunc func(notional float64, state models.MarketState) float64

func equitySizer(notional float64, _ models.MarketState) float64 {
	return notional
}

func optionSizer(legs int) SizerFunc {
	factor := math.Pow(encoding.PhiInverse, float64(legs))
	return func(notional float64, _ models.MarketState) float64 {
		return notional * factor
	}
}

func defaultSizers() map[models.Action]SizerFunc {
	return map[models.Action]SizerFunc{
		models.ActionBuy:  equitySizer,
		models.ActionSell: equitySizer,
		models.ActionHold: func(float64, models.MarketState) float64 { return 0 },

		models.ActionBuyCall:  optionSizer(1),
		models.ActionSellCall: optionSizer(1),
		models.ActionBuyPut:   optionSizer(1),
		models.ActionSellPut:  optionSizer(1),

		models.ActionBullCallSpread: optionSizer(2),
		models.ActionBearCallSpread: optionSizer(2),
		models.ActionBullPutSpread:  optionSizer(2),
		models.ActionBearPutSpread:  optionSizer(2),
		models.ActionStraddle:       optionSizer(2),
		models.ActionStrangle:       optionSizer(2),

		models.ActionIronCondor: optionSizer(4),
		models.ActionButterfly:  optionSizer(3),
	}
}
