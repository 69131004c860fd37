package bql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robinvdvleuten/beancount/ast"
	"github.com/shopspring/decimal"
)

// Kind tags the dynamic type carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDecimal
	KindString
	KindDate
	KindAccount
	KindAmount
	KindPosition
	KindInventory
)

// Amount pairs a decimal number with a currency, mirroring ast.Amount but
// carrying an evaluated decimal instead of source text.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Number.String(), a.Currency)
}

// Position is a resolved (amount, optional cost) pair, the query-level
// mirror of ledger lots.
type Position struct {
	Units    Amount
	Cost     *Amount
	CostDate *ast.Date
	Label    string
}

func (p Position) String() string {
	if p.Cost == nil {
		return p.Units.String()
	}
	return fmt.Sprintf("%s {%s}", p.Units.String(), p.Cost.String())
}

// Inventory is a multiset of positions, the query-level mirror of
// ledger.Inventory used as the result of merging incompatible SUMs.
type Inventory struct {
	Positions []Position
}

func (inv Inventory) String() string {
	parts := make([]string, len(inv.Positions))
	for i, p := range inv.Positions {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// Value is a dynamically-typed BQL runtime value.
type Value struct {
	Kind      Kind
	Bool      bool
	Int       int64
	Dec       decimal.Decimal
	Str       string
	Date      *ast.Date
	Account   ast.Account
	Amount    Amount
	Position  Position
	Inventory Inventory
}

// Null returns the NULL value.
func Null() Value { return Value{Kind: KindNull} }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.Kind == KindNull }

func BoolValue(b bool) Value       { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value       { return Value{Kind: KindInt, Int: i} }
func DecimalValue(d decimal.Decimal) Value { return Value{Kind: KindDecimal, Dec: d} }
func StringValue(s string) Value   { return Value{Kind: KindString, Str: s} }
func DateValue(d *ast.Date) Value  { return Value{Kind: KindDate, Date: d} }
func AccountValue(a ast.Account) Value { return Value{Kind: KindAccount, Account: a} }
func AmountValue(a Amount) Value   { return Value{Kind: KindAmount, Amount: a} }
func PositionValue(p Position) Value { return Value{Kind: KindPosition, Position: p} }
func InventoryValue(inv Inventory) Value { return Value{Kind: KindInventory, Inventory: inv} }

// AsDecimal extracts a decimal.Decimal from numeric or amount-shaped
// values, for arithmetic and comparisons.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	switch v.Kind {
	case KindInt:
		return decimal.NewFromInt(v.Int), true
	case KindDecimal:
		return v.Dec, true
	case KindAmount:
		return v.Amount.Number, true
	default:
		return decimal.Zero, false
	}
}

// String renders a Value for display in a result table.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindDecimal:
		return v.Dec.String()
	case KindString:
		return v.Str
	case KindDate:
		if v.Date == nil {
			return ""
		}
		return v.Date.Format("2006-01-02")
	case KindAccount:
		return string(v.Account)
	case KindAmount:
		return v.Amount.String()
	case KindPosition:
		return v.Position.String()
	case KindInventory:
		return v.Inventory.String()
	default:
		return ""
	}
}

// ValueEqual implements BQL's binary NULL semantics: NULL = NULL is TRUE,
// NULL compared to anything else is FALSE. Non-NULL values compare by kind:
// numeric kinds compare numerically across Int/Decimal/Amount, everything
// else compares by rendered string.
func ValueEqual(a, b Value) bool {
	if a.IsNull() && b.IsNull() {
		return true
	}
	if a.IsNull() || b.IsNull() {
		return false
	}
	if ad, ok := a.AsDecimal(); ok {
		if bd, ok := b.AsDecimal(); ok {
			return ad.Equal(bd)
		}
	}
	return a.String() == b.String()
}

// ValueCompare orders two non-NULL values for ORDER BY and <, <=, >, >=.
// Returns (cmp, ok); ok is false if the values aren't comparable (e.g. one
// is NULL, per spec comparisons other than =/!= with NULL yield FALSE).
func ValueCompare(a, b Value) (int, bool) {
	if a.IsNull() || b.IsNull() {
		return 0, false
	}
	if ad, ok := a.AsDecimal(); ok {
		if bd, ok := b.AsDecimal(); ok {
			return ad.Cmp(bd), true
		}
	}
	if a.Kind == KindDate && b.Kind == KindDate {
		if a.Date.Before(b.Date.Time) {
			return -1, true
		}
		if a.Date.After(b.Date.Time) {
			return 1, true
		}
		return 0, true
	}
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1, true
	case as > bs:
		return 1, true
	default:
		return 0, true
	}
}

// arithmetic applies a numeric binary operator under NULL propagation: any
// NULL operand yields NULL.
func arithmetic(op TokenType, a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	ad, aok := a.AsDecimal()
	bd, bok := b.AsDecimal()
	if !aok || !bok {
		return Null()
	}
	switch op {
	case PLUS:
		return DecimalValue(ad.Add(bd))
	case MINUS:
		return DecimalValue(ad.Sub(bd))
	case STAR:
		return DecimalValue(ad.Mul(bd))
	case SLASH:
		if bd.IsZero() {
			return Null()
		}
		return DecimalValue(ad.Div(bd))
	default:
		return Null()
	}
}

// sortPositions orders positions deterministically by currency then cost
// currency, used when rendering an Inventory.
func sortPositions(positions []Position) {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Units.Currency != positions[j].Units.Currency {
			return positions[i].Units.Currency < positions[j].Units.Currency
		}
		ci, cj := "", ""
		if positions[i].Cost != nil {
			ci = positions[i].Cost.Currency
		}
		if positions[j].Cost != nil {
			cj = positions[j].Cost.Currency
		}
		return ci < cj
	})
}
