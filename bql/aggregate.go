package bql

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Aggregator accumulates one aggregate function's state across a group's
// rows.
type Aggregator interface {
	Step(v Value)
	Result() Value
}

// NewAggregator constructs the aggregator for a named aggregate function.
func NewAggregator(name string) (Aggregator, error) {
	switch name {
	case "sum":
		return &sumAggregator{}, nil
	case "count":
		return &countAggregator{}, nil
	case "first":
		return &firstAggregator{}, nil
	case "last":
		return &lastAggregator{}, nil
	case "min":
		return &minAggregator{}, nil
	case "max":
		return &maxAggregator{}, nil
	default:
		return nil, fmt.Errorf("unknown aggregate function %q", name)
	}
}

// sumAggregator implements BQL's polymorphic SUM: decimals add, amounts of
// a shared currency add, amounts of differing currency promote to an
// inventory, positions accumulate into an inventory merged by (currency,
// cost), and inventories merge with each other the same way.
type sumAggregator struct {
	started bool
	inv     Inventory
	// pureDecimal tracks whether every step so far has been a bare
	// decimal/int, in which case the result stays a decimal instead of
	// promoting to an inventory of one position.
	pureDecimal bool
	decTotal    decimal.Decimal
	// pureAmount tracks a single shared currency across amount-only steps.
	pureAmount  bool
	amountCur   string
	amountTotal decimal.Decimal
}

func (a *sumAggregator) Step(v Value) {
	if v.IsNull() {
		return
	}
	if !a.started {
		a.started = true
		switch v.Kind {
		case KindInt, KindDecimal:
			a.pureDecimal = true
			a.decTotal, _ = v.AsDecimal()
			return
		case KindAmount:
			a.pureAmount = true
			a.amountCur = v.Amount.Currency
			a.amountTotal = v.Amount.Number
			return
		}
	}
	if a.pureDecimal {
		if v.Kind == KindInt || v.Kind == KindDecimal {
			d, _ := v.AsDecimal()
			a.decTotal = a.decTotal.Add(d)
			return
		}
		// Incompatible kind joins the decimal total into the inventory.
		a.mergeIntoInventory(PositionValue(Position{Units: Amount{Number: a.decTotal, Currency: ""}}))
		a.pureDecimal = false
	}
	if a.pureAmount {
		if v.Kind == KindAmount && v.Amount.Currency == a.amountCur {
			a.amountTotal = a.amountTotal.Add(v.Amount.Number)
			return
		}
		a.mergeIntoInventory(AmountValue(Amount{Number: a.amountTotal, Currency: a.amountCur}))
		a.pureAmount = false
	}
	a.mergeIntoInventory(v)
}

func (a *sumAggregator) mergeIntoInventory(v Value) {
	switch v.Kind {
	case KindAmount:
		a.addPosition(Position{Units: v.Amount})
	case KindPosition:
		a.addPosition(v.Position)
	case KindInventory:
		for _, p := range v.Inventory.Positions {
			a.addPosition(p)
		}
	}
}

func (a *sumAggregator) addPosition(p Position) {
	for i, existing := range a.inv.Positions {
		if sameLotKey(existing, p) {
			a.inv.Positions[i].Units.Number = existing.Units.Number.Add(p.Units.Number)
			return
		}
	}
	a.inv.Positions = append(a.inv.Positions, p)
}

func sameLotKey(a, b Position) bool {
	if a.Units.Currency != b.Units.Currency {
		return false
	}
	if (a.Cost == nil) != (b.Cost == nil) {
		return false
	}
	if a.Cost == nil {
		return true
	}
	return a.Cost.Currency == b.Cost.Currency && a.Cost.Number.Equal(b.Cost.Number)
}

func (a *sumAggregator) Result() Value {
	if !a.started {
		return DecimalValue(decimal.Zero)
	}
	if a.pureDecimal {
		return DecimalValue(a.decTotal)
	}
	if a.pureAmount {
		return AmountValue(Amount{Number: a.amountTotal, Currency: a.amountCur})
	}
	sortPositions(a.inv.Positions)
	if len(a.inv.Positions) == 1 {
		return PositionValue(a.inv.Positions[0])
	}
	return InventoryValue(a.inv)
}

// countAggregator counts non-NULL rows.
type countAggregator struct{ n int64 }

func (a *countAggregator) Step(v Value) {
	if !v.IsNull() {
		a.n++
	}
}
func (a *countAggregator) Result() Value { return IntValue(a.n) }

// firstAggregator keeps the first non-NULL value seen.
type firstAggregator struct {
	v  Value
	ok bool
}

func (a *firstAggregator) Step(v Value) {
	if !a.ok && !v.IsNull() {
		a.v, a.ok = v, true
	}
}
func (a *firstAggregator) Result() Value {
	if !a.ok {
		return Null()
	}
	return a.v
}

// lastAggregator keeps the last non-NULL value seen.
type lastAggregator struct {
	v  Value
	ok bool
}

func (a *lastAggregator) Step(v Value) {
	if !v.IsNull() {
		a.v, a.ok = v, true
	}
}
func (a *lastAggregator) Result() Value {
	if !a.ok {
		return Null()
	}
	return a.v
}

// minAggregator keeps the smallest comparable non-NULL value seen.
type minAggregator struct {
	v  Value
	ok bool
}

func (a *minAggregator) Step(v Value) {
	if v.IsNull() {
		return
	}
	if !a.ok {
		a.v, a.ok = v, true
		return
	}
	if cmp, ok := ValueCompare(v, a.v); ok && cmp < 0 {
		a.v = v
	}
}
func (a *minAggregator) Result() Value {
	if !a.ok {
		return Null()
	}
	return a.v
}

// maxAggregator keeps the largest comparable non-NULL value seen.
type maxAggregator struct {
	v  Value
	ok bool
}

func (a *maxAggregator) Step(v Value) {
	if v.IsNull() {
		return
	}
	if !a.ok {
		a.v, a.ok = v, true
		return
	}
	if cmp, ok := ValueCompare(v, a.v); ok && cmp > 0 {
		a.v = v
	}
}
func (a *maxAggregator) Result() Value {
	if !a.ok {
		return Null()
	}
	return a.v
}
