package bql

import "github.com/robinvdvleuten/beancount/ast"

// Query is the parsed form of any of the four BQL statement shapes.
type Query interface {
	queryNode()
}

// SelectStmt is a full SELECT query.
type SelectStmt struct {
	Distinct bool
	Targets  []Target // nil (and Wildcard true) for SELECT *
	Wildcard bool
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	OrderBy  []OrderByItem
	Limit    *int
}

func (*SelectStmt) queryNode() {}

// JournalStmt is shorthand for a SELECT projecting a single account's
// posting history in date order.
type JournalStmt struct {
	Account ast.Account
	From    *FromClause
}

func (*JournalStmt) queryNode() {}

// BalancesStmt is shorthand for a SELECT that reports each account's final
// balance as flat (account, balance) rows, optionally scoped by a FROM clause.
type BalancesStmt struct {
	From *FromClause
}

func (*BalancesStmt) queryNode() {}

// PrintStmt is shorthand for listing the (optionally filtered) surviving
// transactions as rows of date, flag, payee, narration and a one-line
// rendering of their postings.
type PrintStmt struct {
	From *FromClause
}

func (*PrintStmt) queryNode() {}

// Target is a single SELECT projection: an expression and its optional
// column alias.
type Target struct {
	Expr  Expr
	Alias string
}

// FromClause is the two-level entry filter: OPEN/CLOSE/CLEAR rewrite the
// entry stream before Filter (if present) drops whole transactions.
type FromClause struct {
	OpenOn  *ast.Date
	CloseOn *ast.Date
	Clear   bool
	Filter  Expr
}

// OrderByItem is one ORDER BY key.
type OrderByItem struct {
	Expr Expr
	Desc bool
}

// Expr is a BQL scalar expression node.
type Expr interface {
	exprNode()
}

// Literal is a constant value: number, string, date, boolean, or NULL.
type Literal struct {
	Value Value
}

func (*Literal) exprNode() {}

// Column references a row column by name (e.g. "account", "position",
// "date", "payee", or any metadata key).
type Column struct {
	Name string
}

func (*Column) exprNode() {}

// FuncCall is a named function applied to zero or more argument
// expressions, or an aggregate function applied to one.
type FuncCall struct {
	Name string
	Args []Expr
}

func (*FuncCall) exprNode() {}

// BinaryExpr is a binary operator expression: arithmetic, comparison, or
// boolean AND/OR.
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr is NOT or unary minus.
type UnaryExpr struct {
	Op      TokenType
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// InExpr tests set membership: expr IN (e1, e2, ...).
type InExpr struct {
	Expr Expr
	Set  []Expr
}

func (*InExpr) exprNode() {}

// MatchExpr tests a regular expression: expr ~ pattern.
type MatchExpr struct {
	Expr    Expr
	Pattern Expr
}

func (*MatchExpr) exprNode() {}

// aggregateFunctions names the functions treated as aggregates, which
// collapse a group's rows into one value rather than being evaluated
// per-row.
var aggregateFunctions = map[string]bool{
	"sum":   true,
	"count": true,
	"first": true,
	"last":  true,
	"min":   true,
	"max":   true,
}

// IsAggregate reports whether expr contains a call to an aggregate
// function anywhere in its tree.
func IsAggregate(expr Expr) bool {
	switch e := expr.(type) {
	case *FuncCall:
		if aggregateFunctions[e.Name] {
			return true
		}
		for _, a := range e.Args {
			if IsAggregate(a) {
				return true
			}
		}
	case *BinaryExpr:
		return IsAggregate(e.Left) || IsAggregate(e.Right)
	case *UnaryExpr:
		return IsAggregate(e.Operand)
	case *InExpr:
		if IsAggregate(e.Expr) {
			return true
		}
		for _, s := range e.Set {
			if IsAggregate(s) {
				return true
			}
		}
	case *MatchExpr:
		return IsAggregate(e.Expr) || IsAggregate(e.Pattern)
	}
	return false
}

// defaultColumns is the fixed column set SELECT * expands to for
// non-aggregate queries, matching the posting-level row shape.
var defaultColumns = []string{"date", "flag", "payee", "narration", "account", "position", "weight", "balance"}

// defaultAggregateColumns is the fixed column set SELECT * expands to when
// the query has any aggregate target or a GROUP BY.
var defaultAggregateColumns = []string{"account", "sum(position)"}
