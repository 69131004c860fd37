package bql

import (
	"fmt"
	"strings"

	"github.com/robinvdvleuten/beancount/ast"
	"github.com/robinvdvleuten/beancount/ledger"
)

// evalContext carries the state a scalar function needs beyond its
// arguments: the ledger (for price lookups) and the row being evaluated
// (for the default date in value()).
type evalContext struct {
	ledger *ledger.Ledger
	row    *Row
}

// scalarFunc is a non-aggregate BQL function.
type scalarFunc func(ctx *evalContext, args []Value) (Value, error)

var scalarFunctions = map[string]scalarFunc{
	"units":   fnUnits,
	"cost":    fnCost,
	"weight":  fnWeight,
	"value":   fnValue,
	"year":    fnYear,
	"month":   fnMonth,
	"day":     fnDay,
	"quarter": fnQuarter,
	"weekday": fnWeekday,
	"root":    fnRoot,
	"leaf":    fnLeaf,
	"parent":  fnParent,
}

// toAmount coerces a position/amount/inventory-shaped value to a single
// Amount, for functions that project onto amounts.
func toAmount(v Value) (Amount, bool) {
	switch v.Kind {
	case KindAmount:
		return v.Amount, true
	case KindPosition:
		return v.Position.Units, true
	default:
		return Amount{}, false
	}
}

// fnUnits projects a position to its raw units amount, discarding cost.
func fnUnits(ctx *evalContext, args []Value) (Value, error) {
	if len(args) != 1 {
		return Null(), fmt.Errorf("units() takes exactly one argument")
	}
	amt, ok := toAmount(args[0])
	if !ok {
		return Null(), nil
	}
	return AmountValue(amt), nil
}

// fnCost resolves a position to its cost basis amount (units × per-unit
// cost in the cost currency); positions without a cost are returned
// unchanged, matching value()'s documented no-price behavior.
func fnCost(ctx *evalContext, args []Value) (Value, error) {
	if len(args) != 1 {
		return Null(), fmt.Errorf("cost() takes exactly one argument")
	}
	v := args[0]
	if v.Kind != KindPosition || v.Position.Cost == nil {
		return v, nil
	}
	total := v.Position.Units.Number.Mul(v.Position.Cost.Number)
	return AmountValue(Amount{Number: total, Currency: v.Position.Cost.Currency}), nil
}

// fnWeight returns the amount a posting contributes to its transaction's
// balance: units × cost-per-unit when a cost is attached, units otherwise.
// A bare @price conversion isn't visible here since it's never carried on
// the evaluated Position value; the row's own "weight" column (computed
// directly from the posting) handles that case.
func fnWeight(ctx *evalContext, args []Value) (Value, error) {
	if len(args) != 1 {
		return Null(), fmt.Errorf("weight() takes exactly one argument")
	}
	return fnCost(ctx, args)
}

// fnValue looks up the market price at the given date (default: the
// current row's posting date) and yields units × price; if no price is
// known, the position is returned unchanged.
func fnValue(ctx *evalContext, args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return Null(), fmt.Errorf("value() takes one or two arguments")
	}
	amt, ok := toAmount(args[0])
	if !ok {
		return args[0], nil
	}

	date := ctx.row.Date
	if len(args) == 2 && args[1].Kind == KindDate {
		date = args[1].Date
	}
	if ctx.ledger == nil || date == nil {
		return args[0], nil
	}

	// value() needs a target currency; without one specified, BQL resolves
	// against whichever currency the ledger has a known price edge to. Both
	// "currency" (implicit) and "commodity" (explicitly declared) node
	// kinds are candidates.
	candidates := append(ctx.ledger.Graph().GetNodesByKind("currency"), ctx.ledger.Graph().GetNodesByKind("commodity")...)
	for _, candidate := range candidates {
		if candidate.ID == amt.Currency {
			continue
		}
		if rate, found := ctx.ledger.GetPrice(date, amt.Currency, candidate.ID); found {
			return AmountValue(Amount{Number: amt.Number.Mul(rate), Currency: candidate.ID}), nil
		}
	}
	return args[0], nil
}

func fnYear(ctx *evalContext, args []Value) (Value, error) {
	d, err := requireDate(args, "year")
	if err != nil {
		return Null(), err
	}
	if d == nil {
		return Null(), nil
	}
	return IntValue(int64(d.Year())), nil
}

func fnMonth(ctx *evalContext, args []Value) (Value, error) {
	d, err := requireDate(args, "month")
	if err != nil {
		return Null(), err
	}
	if d == nil {
		return Null(), nil
	}
	return IntValue(int64(d.Month())), nil
}

func fnDay(ctx *evalContext, args []Value) (Value, error) {
	d, err := requireDate(args, "day")
	if err != nil {
		return Null(), err
	}
	if d == nil {
		return Null(), nil
	}
	return IntValue(int64(d.Day())), nil
}

func fnQuarter(ctx *evalContext, args []Value) (Value, error) {
	d, err := requireDate(args, "quarter")
	if err != nil {
		return Null(), err
	}
	if d == nil {
		return Null(), nil
	}
	return IntValue(int64((d.Month()-1)/3 + 1)), nil
}

// fnWeekday returns the ISO-ish weekday index with Monday == 0.
func fnWeekday(ctx *evalContext, args []Value) (Value, error) {
	d, err := requireDate(args, "weekday")
	if err != nil {
		return Null(), err
	}
	if d == nil {
		return Null(), nil
	}
	// time.Weekday has Sunday == 0; shift so Monday == 0.
	wd := (int(d.Weekday()) + 6) % 7
	return IntValue(int64(wd)), nil
}

func requireDate(args []Value, name string) (*ast.Date, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s() takes exactly one argument", name)
	}
	if args[0].Kind != KindDate {
		return nil, nil
	}
	return args[0].Date, nil
}

func accountArg(args []Value, name string) (string, bool, error) {
	if len(args) < 1 {
		return "", false, fmt.Errorf("%s() requires an account argument", name)
	}
	switch args[0].Kind {
	case KindAccount:
		return string(args[0].Account), true, nil
	case KindString:
		return args[0].Str, true, nil
	default:
		return "", false, nil
	}
}

// fnRoot returns the first n colon-separated components of an account.
func fnRoot(ctx *evalContext, args []Value) (Value, error) {
	acc, ok, err := accountArg(args, "root")
	if err != nil {
		return Null(), err
	}
	if !ok {
		return Null(), nil
	}
	if len(args) != 2 || args[1].Kind != KindInt {
		return Null(), fmt.Errorf("root() requires (account, n)")
	}
	parts := strings.Split(acc, ":")
	n := int(args[1].Int)
	if n < 0 {
		n = 0
	}
	if n > len(parts) {
		n = len(parts)
	}
	return StringValue(strings.Join(parts[:n], ":")), nil
}

// fnLeaf returns the last component of an account.
func fnLeaf(ctx *evalContext, args []Value) (Value, error) {
	acc, ok, err := accountArg(args, "leaf")
	if err != nil {
		return Null(), err
	}
	if !ok {
		return Null(), nil
	}
	parts := strings.Split(acc, ":")
	return StringValue(parts[len(parts)-1]), nil
}

// fnParent returns all but the last component of an account, or NULL for a
// single-component account.
func fnParent(ctx *evalContext, args []Value) (Value, error) {
	acc, ok, err := accountArg(args, "parent")
	if err != nil {
		return Null(), err
	}
	if !ok {
		return Null(), nil
	}
	parts := strings.Split(acc, ":")
	if len(parts) < 2 {
		return Null(), nil
	}
	return StringValue(strings.Join(parts[:len(parts)-1], ":")), nil
}
