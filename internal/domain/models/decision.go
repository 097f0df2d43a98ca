package models

import "time"

// Action is the bounded trading action set. Options actions are opaque enum
// values; their payoff/sizing model is pluggable per variant.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"

	ActionBuyCall       Action = "BUY_CALL"
	ActionSellCall      Action = "SELL_CALL"
	ActionBuyPut        Action = "BUY_PUT"
	ActionSellPut       Action = "SELL_PUT"
	ActionBullCallSpread Action = "BULL_CALL_SPREAD"
	ActionBearCallSpread Action = "BEAR_CALL_SPREAD"
	ActionBullPutSpread  Action = "BULL_PUT_SPREAD"
	ActionBearPutSpread  Action = "BEAR_PUT_SPREAD"
	ActionStraddle      Action = "STRADDLE"
	ActionStrangle      Action = "STRANGLE"
	ActionIronCondor    Action = "IRON_CONDOR"
	ActionButterfly     Action = "BUTTERFLY"
)

// Actions lists every recognized action, HOLD included.
func Actions() []Action {
	return []Action{
		ActionBuy, ActionSell, ActionHold,
		ActionBuyCall, ActionSellCall, ActionBuyPut, ActionSellPut,
		ActionBullCallSpread, ActionBearCallSpread, ActionBullPutSpread, ActionBearPutSpread,
		ActionStraddle, ActionStrangle, ActionIronCondor, ActionButterfly,
	}
}

// IsOption reports whether a is an options-strategy action.
func (a Action) IsOption() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return false
	default:
		return true
	}
}

// RiskProfile bounds what the engine may do with a signal.
type RiskProfile struct {
	MaxPositionSizePct float64
	MaxLeverage        float64
	MinNashConfidence  float64
	EnableOptions      bool
}

// TradingDecision is an auditable, immutable record of one decide() call.
type TradingDecision struct {
	Action         Action
	Symbol         string
	Quantity       int64
	Price          float64
	Confidence     float64
	Equilibrium    NashEquilibriumResult
	ReasoningTrace []string
	Risk           VaRComparison
	Encoding       ZeckendorfDecomposition
	Timestamp      time.Time
}

// Position is one holding in the in-memory portfolio ledger.
type Position struct {
	Symbol   string
	Quantity int64
	AvgCost  float64
}

// DecisionStats summarizes the bounded decision history.
type DecisionStats struct {
	TotalDecisions int
	NashDecisions  int
	ByAction       map[Action]int
	AvgConfidence  float64
	// EquilibriumRate is the share of decisions taken at a strict
	// equilibrium verdict.
	EquilibriumRate float64
}
