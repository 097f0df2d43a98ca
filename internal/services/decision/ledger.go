package decision

import (
	"sort"
	"sync"

	"PhiTrade/internal/domain/models"
)

// Ledger is the in-memory portfolio: cash plus a position map keyed by
// instrument. Options positions live under "SYMBOL:ACTION" keys so one
// underlying can carry several structures at once.
type Ledger struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]*models.Position
}

func NewLedger(startingCash float64) *Ledger {
	return &Ledger{
		cash:      startingCash,
		positions: make(map[string]*models.Position),
	}
}

func instrumentKey(symbol string, action models.Action) string {
	if action.IsOption() {
		return symbol + ":" + string(action)
	}
	return symbol
}

// Buy debits cash and folds the fill into the weighted average cost basis.
// Returns false on insufficient funds.
func (l *Ledger) Buy(key string, quantity int64, price float64) bool {
	cost := float64(quantity) * price
	l.mu.Lock()
	defer l.mu.Unlock()
	if cost > l.cash || quantity <= 0 {
		return false
	}
	l.cash -= cost
	pos, ok := l.positions[key]
	if !ok {
		l.positions[key] = &models.Position{Symbol: key, Quantity: quantity, AvgCost: price}
		return true
	}
	total := float64(pos.Quantity)*pos.AvgCost + cost
	pos.Quantity += quantity
	pos.AvgCost = total / float64(pos.Quantity)
	return true
}

// Sell credits cash and removes the entry when the position reaches zero.
// Returns false on insufficient shares.
func (l *Ledger) Sell(key string, quantity int64, price float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[key]
	if !ok || pos.Quantity < quantity || quantity <= 0 {
		return false
	}
	l.cash += float64(quantity) * price
	pos.Quantity -= quantity
	if pos.Quantity == 0 {
		delete(l.positions, key)
	}
	return true
}

func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// Value marks every position at the supplied price function and adds cash.
func (l *Ledger) Value(mark func(key string) float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := l.cash
	for key, pos := range l.positions {
		p := mark(key)
		if p <= 0 {
			p = pos.AvgCost
		}
		total += float64(pos.Quantity) * p
	}
	return total
}

// Positions returns a sorted snapshot of current holdings.
func (l *Ledger) Positions() []models.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
