package bql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robinvdvleuten/beancount/ast"
	"github.com/robinvdvleuten/beancount/ledger"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

// Row is one posting-level result before projection: a single posting
// together with the transaction it belongs to and the running balance of
// its account immediately after this posting is applied.
type Row struct {
	Date      *ast.Date
	Flag      string
	Payee     string
	Narration string
	Tags      []ast.Tag
	Links     []ast.Link
	Account   ast.Account
	Position  Value
	Weight    Value
	Balance   Value
	Metadata  map[string]Value
	Txn       *ast.Transaction
	Posting   *ast.Posting
}

// Result is a query's output: a column list and the rows, already
// projected, deduplicated, ordered, and limited.
type Result struct {
	Columns []string
	Rows    [][]Value
}

// Executor evaluates BQL queries against a processed ledger and the
// directive stream that produced it.
type Executor struct {
	ledger  *ledger.Ledger
	entries []ast.Directive
}

// NewExecutor builds an Executor. entries is the date-sorted directive
// stream that was fed to ledger.Process; it is consulted directly for
// OPEN ON / CLOSE ON / CLEAR entry rewriting, independent of the ledger's
// already-settled internal state.
func NewExecutor(lg *ledger.Ledger, entries []ast.Directive) *Executor {
	return &Executor{ledger: lg, entries: entries}
}

// Execute runs a parsed query and returns its result table.
func (e *Executor) Execute(q Query) (*Result, error) {
	switch stmt := q.(type) {
	case *SelectStmt:
		return e.executeSelect(stmt)
	case *JournalStmt:
		return e.executeJournal(stmt)
	case *BalancesStmt:
		return e.executeBalances(stmt)
	case *PrintStmt:
		return e.executePrint(stmt)
	default:
		return nil, fmt.Errorf("unsupported query type %T", q)
	}
}

// --- Entry-level (FROM) filtering -----------------------------------------

// filterEntries applies OPEN ON / CLOSE ON / CLEAR rewriting and then the
// from_expr's filter_expr, returning the surviving transactions in date
// order. A nil from clause keeps everything.
func (e *Executor) filterEntries(from *FromClause) ([]*ast.Transaction, error) {
	txns := e.sortedTransactions()

	if from == nil {
		return txns, nil
	}

	if from.OpenOn != nil {
		opening := e.synthesizeOpening(from.OpenOn)
		var kept []*ast.Transaction
		for _, t := range txns {
			if !t.Date.Time.Before(from.OpenOn.Time) {
				kept = append(kept, t)
			}
		}
		txns = append([]*ast.Transaction{}, kept...)
		if opening != nil {
			txns = append([]*ast.Transaction{opening}, txns...)
		}
	}

	if from.CloseOn != nil {
		var kept []*ast.Transaction
		for _, t := range txns {
			if !t.Date.Time.After(from.CloseOn.Time) {
				kept = append(kept, t)
			}
		}
		txns = kept
	}

	if from.Clear {
		closingDate := latestDate(txns)
		if closingDate != nil {
			txns = append(txns, e.ledger.CloseBooks(closingDate)...)
		}
	}

	if from.Filter != nil {
		var kept []*ast.Transaction
		for _, t := range txns {
			row := transactionRow(t)
			ctx := &evalContext{ledger: e.ledger, row: row}
			v, err := e.eval(ctx, from.Filter, nil)
			if err != nil {
				return nil, err
			}
			if truthy(v) {
				kept = append(kept, t)
			}
		}
		txns = kept
	}

	return txns, nil
}

// sortedTransactions extracts every transaction directive from the entry
// stream in stable date order.
func (e *Executor) sortedTransactions() []*ast.Transaction {
	var txns []*ast.Transaction
	for _, d := range e.entries {
		if t, ok := d.(*ast.Transaction); ok {
			txns = append(txns, t)
		}
	}
	slices.SortStableFunc(txns, func(a, b *ast.Transaction) int {
		return a.Date.Time.Compare(b.Date.Time)
	})
	return txns
}

func latestDate(txns []*ast.Transaction) *ast.Date {
	if len(txns) == 0 {
		return nil
	}
	latest := txns[0].Date
	for _, t := range txns[1:] {
		if t.Date.Time.After(latest.Time) {
			latest = t.Date
		}
	}
	return latest
}

// synthesizeOpening builds a single synthetic transaction that books every
// account's balance as of (but excluding) d against Equity:Opening-Balances,
// or Equity:Earnings:Previous for Income/Expenses accounts, so that postings
// before d can be dropped without losing the accounting equation.
func (e *Executor) synthesizeOpening(d *ast.Date) *ast.Transaction {
	dayBefore := ast.NewDateFromTime(d.Time.AddDate(0, 0, -1))
	balances := e.ledger.GetBalancesAsOf(dayBefore)

	postings := make([]*ast.Posting, 0, len(balances))
	earningsBucket := map[string]Amount{}
	openingBucket := map[string]Amount{}

	for _, b := range balances {
		accountType := ledger.ParseAccountType(ast.Account(b.Account))
		for currency, amount := range b.Balances {
			if amount.IsZero() {
				continue
			}
			postings = append(postings, &ast.Posting{
				Account: ast.Account(b.Account),
				Amount:  &ast.Amount{Value: amount.String(), Currency: currency},
			})
			bucket := openingBucket
			if accountType == ast.AccountTypeIncome || accountType == ast.AccountTypeExpenses {
				bucket = earningsBucket
			}
			cur := bucket[currency]
			cur.Currency = currency
			cur.Number = cur.Number.Add(amount)
			bucket[currency] = cur
		}
	}

	if len(postings) == 0 {
		return nil
	}

	for currency, total := range openingBucket {
		postings = append(postings, &ast.Posting{
			Account: "Equity:Opening-Balances",
			Amount:  &ast.Amount{Value: total.Number.Neg().String(), Currency: currency},
		})
	}
	for currency, total := range earningsBucket {
		postings = append(postings, &ast.Posting{
			Account: "Equity:Earnings:Previous",
			Amount:  &ast.Amount{Value: total.Number.Neg().String(), Currency: currency},
		})
	}

	return &ast.Transaction{
		Date:      d,
		Flag:      "P",
		Narration: ast.RawString{Value: "Opening balances"},
		Postings:  postings,
	}
}

// --- Posting-level (WHERE) filtering --------------------------------------

func transactionRow(t *ast.Transaction) *Row {
	return &Row{
		Date:      t.Date,
		Flag:      t.Flag,
		Payee:     t.Payee.String(),
		Narration: t.Narration.String(),
		Tags:      t.Tags,
		Links:     t.Links,
		Metadata:  metadataToValues(nil, t.Metadata),
		Txn:       t,
	}
}

// runningInventory is a query-time approximation of an account's holdings,
// merged by (currency, cost) like ledger.Inventory but without replaying the
// booking method: a reduction nets off the one lot with the same (currency,
// cost) key, and a reduction with no such lot starts a new negative lot. It
// exists only to populate BQL's "balance" column, a display aid, not to
// reproduce booking diagnostics.
type runningInventory struct {
	positions []Position
}

func (r *runningInventory) apply(p Position) {
	amt := p.Units.Number
	if amt.IsZero() {
		if p.Cost == nil {
			return
		}
	}
	for i, existing := range r.positions {
		if sameLotKey(existing, p) {
			r.positions[i].Units.Number = existing.Units.Number.Add(amt)
			return
		}
	}
	r.positions = append(r.positions, p)
}

func (r *runningInventory) value() Value {
	nonZero := make([]Position, 0, len(r.positions))
	for _, p := range r.positions {
		if !p.Units.Number.IsZero() {
			nonZero = append(nonZero, p)
		}
	}
	sortPositions(nonZero)
	switch len(nonZero) {
	case 0:
		return DecimalValue(decimal.Zero)
	case 1:
		return PositionValue(nonZero[0])
	default:
		return InventoryValue(Inventory{Positions: nonZero})
	}
}

// buildPostingRows produces the posting-level row stream for the surviving
// transactions, applying the posting-level WHERE predicate as it goes.
func (e *Executor) buildPostingRows(txns []*ast.Transaction, where Expr) ([]*Row, error) {
	var rows []*Row
	balances := map[ast.Account]*runningInventory{}

	for _, txn := range txns {
		for _, posting := range txn.Postings {
			pos, err := postingPosition(posting)
			if err != nil {
				return nil, err
			}
			weight := positionWeight(pos, posting)

			bal, ok := balances[posting.Account]
			if !ok {
				bal = &runningInventory{}
				balances[posting.Account] = bal
			}
			bal.apply(pos.Position)

			row := &Row{
				Date:      txn.Date,
				Flag:      txn.Flag,
				Payee:     txn.Payee.String(),
				Narration: txn.Narration.String(),
				Tags:      txn.Tags,
				Links:     txn.Links,
				Account:   posting.Account,
				Position:  pos,
				Weight:    weight,
				Balance:   bal.value(),
				Metadata:  metadataToValues(posting.Metadata, txn.Metadata),
				Txn:       txn,
				Posting:   posting,
			}

			if where != nil {
				ctx := &evalContext{ledger: e.ledger, row: row}
				v, err := e.eval(ctx, where, nil)
				if err != nil {
					return nil, err
				}
				if !truthy(v) {
					continue
				}
			}

			rows = append(rows, row)
		}
	}
	return rows, nil
}

// postingPosition resolves a posting's amount and cost into a query-level
// Position value.
func postingPosition(p *ast.Posting) (Value, error) {
	if p.Amount == nil {
		return Null(), nil
	}
	amt, err := ledger.ParseAmount(p.Amount)
	if err != nil {
		return Null(), err
	}
	units := Amount{Number: amt, Currency: p.Amount.Currency}
	if p.Cost == nil || p.Cost.Amount == nil {
		return PositionValue(Position{Units: units}), nil
	}
	costAmt, err := ledger.ParseAmount(p.Cost.Amount)
	if err != nil {
		return Null(), err
	}
	if p.Cost.IsTotal && !units.Number.IsZero() {
		costAmt = costAmt.Div(units.Number).Abs()
	}
	return PositionValue(Position{
		Units:    units,
		Cost:     &Amount{Number: costAmt, Currency: p.Cost.Amount.Currency},
		CostDate: p.Cost.Date,
		Label:    p.Cost.Label,
	}), nil
}

// positionWeight computes the amount a posting contributes to its
// transaction's balance: units × cost when a cost is attached, units ×
// price when only a conversion price is given, units otherwise.
func positionWeight(v Value, posting *ast.Posting) Value {
	if v.Kind != KindPosition {
		return v
	}
	p := v.Position
	if p.Cost != nil {
		return AmountValue(Amount{Number: p.Units.Number.Mul(p.Cost.Number), Currency: p.Cost.Currency})
	}
	if posting.Price != nil {
		priceAmt, err := ledger.ParseAmount(posting.Price)
		if err == nil {
			rate := priceAmt
			if posting.PriceTotal && !p.Units.Number.IsZero() {
				rate = priceAmt.Div(p.Units.Number).Abs()
			}
			return AmountValue(Amount{Number: p.Units.Number.Mul(rate), Currency: posting.Price.Currency})
		}
	}
	return AmountValue(p.Units)
}

func metadataToValues(primary, fallback []*ast.Metadata) map[string]Value {
	out := map[string]Value{}
	for _, m := range fallback {
		out[strings.ToLower(m.Key)] = metadataValueToValue(m.Value)
	}
	for _, m := range primary {
		out[strings.ToLower(m.Key)] = metadataValueToValue(m.Value)
	}
	return out
}

func metadataValueToValue(mv *ast.MetadataValue) Value {
	switch {
	case mv == nil:
		return Null()
	case mv.StringValue != nil:
		return StringValue(mv.StringValue.Value)
	case mv.Date != nil:
		return DateValue(mv.Date)
	case mv.Account != nil:
		return AccountValue(*mv.Account)
	case mv.Currency != nil:
		return StringValue(*mv.Currency)
	case mv.Tag != nil:
		return StringValue(string(*mv.Tag))
	case mv.Link != nil:
		return StringValue(string(*mv.Link))
	case mv.Number != nil:
		d, err := parseDecimalLiteral(*mv.Number)
		if err != nil {
			return Null()
		}
		return DecimalValue(d)
	case mv.Amount != nil:
		d, err := parseDecimalLiteral(mv.Amount.Value)
		if err != nil {
			return Null()
		}
		return AmountValue(Amount{Number: d, Currency: mv.Amount.Currency})
	case mv.Boolean != nil:
		return BoolValue(*mv.Boolean)
	default:
		return Null()
	}
}

// columnValue resolves a bareword column name against a row, falling back
// to the row's metadata map for anything that isn't a fixed column.
func columnValue(row *Row, name string) Value {
	switch name {
	case "date":
		if row.Date == nil {
			return Null()
		}
		return DateValue(row.Date)
	case "flag":
		return StringValue(row.Flag)
	case "payee":
		return StringValue(row.Payee)
	case "narration":
		return StringValue(row.Narration)
	case "account":
		return AccountValue(row.Account)
	case "position":
		return row.Position
	case "weight":
		return row.Weight
	case "balance":
		return row.Balance
	case "tags":
		parts := make([]string, len(row.Tags))
		for i, t := range row.Tags {
			parts[i] = string(t)
		}
		return StringValue(strings.Join(parts, ","))
	case "links":
		parts := make([]string, len(row.Links))
		for i, l := range row.Links {
			parts[i] = string(l)
		}
		return StringValue(strings.Join(parts, ","))
	default:
		if row.Metadata != nil {
			if v, ok := row.Metadata[name]; ok {
				return v
			}
		}
		return Null()
	}
}

func truthy(v Value) bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindBool:
		return v.Bool
	default:
		return true
	}
}

// --- Expression evaluation --------------------------------------------------

// eval evaluates a scalar expression against a row. aggResults, when
// non-nil, supplies precomputed aggregate results keyed by exprKey, for use
// during the post-grouping projection pass; a nil aggResults means no
// aggregate function may appear (enforced by the caller only running
// non-aggregate targets through this path without a group).
func (e *Executor) eval(ctx *evalContext, expr Expr, aggResults map[string]Value) (Value, error) {
	switch n := expr.(type) {
	case *Literal:
		return n.Value, nil
	case *Column:
		return columnValue(ctx.row, n.Name), nil
	case *FuncCall:
		if aggregateFunctions[n.Name] {
			if aggResults == nil {
				return Null(), fmt.Errorf("aggregate function %s() used outside of grouping", n.Name)
			}
			if v, ok := aggResults[exprKey(n)]; ok {
				return v, nil
			}
			return Null(), fmt.Errorf("internal error: no aggregate result for %s", exprKey(n))
		}
		fn, ok := scalarFunctions[n.Name]
		if !ok {
			return Null(), fmt.Errorf("unknown function %s()", n.Name)
		}
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			v, err := e.eval(ctx, a, aggResults)
			if err != nil {
				return Null(), err
			}
			args[i] = v
		}
		return fn(ctx, args)
	case *BinaryExpr:
		return e.evalBinary(ctx, n, aggResults)
	case *UnaryExpr:
		v, err := e.eval(ctx, n.Operand, aggResults)
		if err != nil {
			return Null(), err
		}
		switch n.Op {
		case NOT:
			if v.IsNull() {
				return Null(), nil
			}
			return BoolValue(!truthy(v)), nil
		case MINUS:
			if d, ok := v.AsDecimal(); ok {
				return DecimalValue(d.Neg()), nil
			}
			return Null(), nil
		}
		return Null(), fmt.Errorf("unsupported unary operator %s", n.Op)
	case *InExpr:
		left, err := e.eval(ctx, n.Expr, aggResults)
		if err != nil {
			return Null(), err
		}
		for _, s := range n.Set {
			sv, err := e.eval(ctx, s, aggResults)
			if err != nil {
				return Null(), err
			}
			if ValueEqual(left, sv) {
				return BoolValue(true), nil
			}
		}
		return BoolValue(false), nil
	case *MatchExpr:
		left, err := e.eval(ctx, n.Expr, aggResults)
		if err != nil {
			return Null(), err
		}
		pattern, err := e.eval(ctx, n.Pattern, aggResults)
		if err != nil {
			return Null(), err
		}
		if left.IsNull() || pattern.IsNull() {
			return BoolValue(false), nil
		}
		matched, err := regexp.MatchString(pattern.String(), left.String())
		if err != nil {
			return Null(), err
		}
		return BoolValue(matched), nil
	default:
		return Null(), fmt.Errorf("unsupported expression %T", expr)
	}
}

func (e *Executor) evalBinary(ctx *evalContext, n *BinaryExpr, aggResults map[string]Value) (Value, error) {
	if n.Op == AND {
		left, err := e.eval(ctx, n.Left, aggResults)
		if err != nil {
			return Null(), err
		}
		if !truthy(left) {
			return BoolValue(false), nil
		}
		right, err := e.eval(ctx, n.Right, aggResults)
		if err != nil {
			return Null(), err
		}
		return BoolValue(truthy(right)), nil
	}
	if n.Op == OR {
		left, err := e.eval(ctx, n.Left, aggResults)
		if err != nil {
			return Null(), err
		}
		if truthy(left) {
			return BoolValue(true), nil
		}
		right, err := e.eval(ctx, n.Right, aggResults)
		if err != nil {
			return Null(), err
		}
		return BoolValue(truthy(right)), nil
	}

	left, err := e.eval(ctx, n.Left, aggResults)
	if err != nil {
		return Null(), err
	}
	right, err := e.eval(ctx, n.Right, aggResults)
	if err != nil {
		return Null(), err
	}

	switch n.Op {
	case EQ:
		return BoolValue(ValueEqual(left, right)), nil
	case NEQ:
		return BoolValue(!ValueEqual(left, right)), nil
	case LT, LTE, GT, GTE:
		cmp, ok := ValueCompare(left, right)
		if !ok {
			return BoolValue(false), nil
		}
		switch n.Op {
		case LT:
			return BoolValue(cmp < 0), nil
		case LTE:
			return BoolValue(cmp <= 0), nil
		case GT:
			return BoolValue(cmp > 0), nil
		default:
			return BoolValue(cmp >= 0), nil
		}
	case PLUS, MINUS, STAR, SLASH:
		return arithmetic(n.Op, left, right), nil
	default:
		return Null(), fmt.Errorf("unsupported binary operator %s", n.Op)
	}
}

// --- SELECT projection pipeline --------------------------------------------

// projectedRow is one output row: its rendered column values plus the
// context needed to evaluate further expressions against it (ORDER BY may
// reference columns or aggregates not present in the target list).
type projectedRow struct {
	values     []Value
	row        *Row
	aggResults map[string]Value
}

func (e *Executor) executeSelect(stmt *SelectStmt) (*Result, error) {
	txns, err := e.filterEntries(stmt.From)
	if err != nil {
		return nil, err
	}
	rows, err := e.buildPostingRows(txns, stmt.Where)
	if err != nil {
		return nil, err
	}

	targets := stmt.Targets
	if stmt.Wildcard {
		if len(stmt.GroupBy) > 0 {
			targets = []Target{
				{Expr: &Column{Name: "account"}},
				{Expr: &FuncCall{Name: "sum", Args: []Expr{&Column{Name: "position"}}}},
			}
		} else {
			targets = make([]Target, len(defaultColumns))
			for i, c := range defaultColumns {
				targets[i] = Target{Expr: &Column{Name: c}}
			}
		}
	}

	grouping := len(stmt.GroupBy) > 0
	if !grouping {
		for _, t := range targets {
			if IsAggregate(t.Expr) {
				grouping = true
				break
			}
		}
	}

	var projected []*projectedRow
	if grouping {
		projected, err = e.projectGrouped(rows, targets, stmt.GroupBy, stmt.OrderBy)
	} else {
		projected, err = e.projectFlat(rows, targets)
	}
	if err != nil {
		return nil, err
	}

	if stmt.Distinct {
		projected = dedupeProjected(projected)
	}

	if len(stmt.OrderBy) > 0 {
		if err := e.sortProjected(projected, stmt.OrderBy); err != nil {
			return nil, err
		}
	}

	if stmt.Limit != nil && *stmt.Limit < len(projected) {
		projected = projected[:*stmt.Limit]
	}

	labels := make([]string, len(targets))
	for i, t := range targets {
		labels[i] = targetLabel(t, i)
	}

	result := &Result{Columns: labels, Rows: make([][]Value, len(projected))}
	for i, pr := range projected {
		result.Rows[i] = pr.values
	}
	return result, nil
}

func (e *Executor) projectFlat(rows []*Row, targets []Target) ([]*projectedRow, error) {
	out := make([]*projectedRow, 0, len(rows))
	for _, row := range rows {
		ctx := &evalContext{ledger: e.ledger, row: row}
		vals := make([]Value, len(targets))
		for i, t := range targets {
			v, err := e.eval(ctx, t.Expr, nil)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		out = append(out, &projectedRow{values: vals, row: row})
	}
	return out, nil
}

type rowBucket struct {
	sample *Row
	rows   []*Row
}

func (e *Executor) projectGrouped(rows []*Row, targets []Target, groupBy []Expr, orderBy []OrderByItem) ([]*projectedRow, error) {
	buckets := map[string]*rowBucket{}
	var order []string

	for _, row := range rows {
		ctx := &evalContext{ledger: e.ledger, row: row}
		keyParts := make([]string, len(groupBy))
		for i, g := range groupBy {
			v, err := e.eval(ctx, g, nil)
			if err != nil {
				return nil, err
			}
			keyParts[i] = v.String()
		}
		key := strings.Join(keyParts, "\x1f")
		b, ok := buckets[key]
		if !ok {
			b = &rowBucket{sample: row}
			buckets[key] = b
			order = append(order, key)
		}
		b.rows = append(b.rows, row)
	}

	var allExprs []Expr
	for _, t := range targets {
		allExprs = append(allExprs, t.Expr)
	}
	for _, o := range orderBy {
		allExprs = append(allExprs, o.Expr)
	}
	calls := collectAggregateCalls(allExprs)

	out := make([]*projectedRow, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		aggResults, err := e.computeAggregates(calls, b.rows)
		if err != nil {
			return nil, err
		}

		ctx := &evalContext{ledger: e.ledger, row: b.sample}
		vals := make([]Value, len(targets))
		for i, t := range targets {
			v, err := e.eval(ctx, t.Expr, aggResults)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		out = append(out, &projectedRow{values: vals, row: b.sample, aggResults: aggResults})
	}
	return out, nil
}

func (e *Executor) computeAggregates(calls []*FuncCall, rows []*Row) (map[string]Value, error) {
	results := map[string]Value{}
	for _, call := range calls {
		agg, err := NewAggregator(call.Name)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			var argVal Value
			if len(call.Args) == 0 {
				argVal = IntValue(1)
			} else {
				v, err := e.eval(&evalContext{ledger: e.ledger, row: row}, call.Args[0], nil)
				if err != nil {
					return nil, err
				}
				argVal = v
			}
			agg.Step(argVal)
		}
		results[exprKey(call)] = agg.Result()
	}
	return results, nil
}

// collectAggregateCalls finds every distinct aggregate function call in
// exprs, without descending into an aggregate's own arguments (nested
// aggregates aren't supported).
func collectAggregateCalls(exprs []Expr) []*FuncCall {
	seen := map[string]bool{}
	var out []*FuncCall
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *FuncCall:
			if aggregateFunctions[n.Name] {
				k := exprKey(n)
				if !seen[k] {
					seen[k] = true
					out = append(out, n)
				}
				return
			}
			for _, a := range n.Args {
				walk(a)
			}
		case *BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case *UnaryExpr:
			walk(n.Operand)
		case *InExpr:
			walk(n.Expr)
			for _, s := range n.Set {
				walk(s)
			}
		case *MatchExpr:
			walk(n.Expr)
			walk(n.Pattern)
		}
	}
	for _, expr := range exprs {
		walk(expr)
	}
	return out
}

func dedupeProjected(projected []*projectedRow) []*projectedRow {
	seen := map[string]bool{}
	out := make([]*projectedRow, 0, len(projected))
	for _, pr := range projected {
		parts := make([]string, len(pr.values))
		for i, v := range pr.values {
			parts[i] = v.String()
		}
		key := strings.Join(parts, "\x1f")
		if !seen[key] {
			seen[key] = true
			out = append(out, pr)
		}
	}
	return out
}

func (e *Executor) sortProjected(projected []*projectedRow, orderBy []OrderByItem) error {
	var sortErr error
	slices.SortStableFunc(projected, func(a, b *projectedRow) int {
		for _, item := range orderBy {
			va, err := e.eval(&evalContext{ledger: e.ledger, row: a.row}, item.Expr, a.aggResults)
			if err != nil {
				sortErr = err
				return 0
			}
			vb, err := e.eval(&evalContext{ledger: e.ledger, row: b.row}, item.Expr, b.aggResults)
			if err != nil {
				sortErr = err
				return 0
			}
			cmp, ok := ValueCompare(va, vb)
			if !ok {
				cmp = strings.Compare(va.String(), vb.String())
			}
			if cmp == 0 {
				continue
			}
			if item.Desc {
				return -cmp
			}
			return cmp
		}
		return 0
	})
	return sortErr
}

func targetLabel(t Target, idx int) string {
	if t.Alias != "" {
		return t.Alias
	}
	switch n := t.Expr.(type) {
	case *Column:
		return n.Name
	case *FuncCall:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = targetLabel(Target{Expr: a}, i)
		}
		return n.Name + "(" + strings.Join(parts, ",") + ")"
	case *Literal:
		return n.Value.String()
	default:
		return fmt.Sprintf("col%d", idx+1)
	}
}

// --- JOURNAL / BALANCES / PRINT --------------------------------------------

// executeJournal reports one account's posting history in date order,
// implemented as a SELECT over the default columns filtered to that account.
func (e *Executor) executeJournal(stmt *JournalStmt) (*Result, error) {
	sel := &SelectStmt{
		Wildcard: true,
		From:     stmt.From,
		Where: &BinaryExpr{
			Op:    EQ,
			Left:  &Column{Name: "account"},
			Right: &Literal{Value: StringValue(string(stmt.Account))},
		},
		OrderBy: []OrderByItem{{Expr: &Column{Name: "date"}}},
	}
	return e.executeSelect(sel)
}

// executeBalances reports the ledger's current account balances, honoring
// OPEN ON / CLOSE ON / CLEAR the same way SELECT does by driving the same
// posting-level accumulation rather than reading the ledger's live state
// directly (so a CLOSE ON in the past reports balances as of that date).
func (e *Executor) executeBalances(stmt *BalancesStmt) (*Result, error) {
	txns, err := e.filterEntries(stmt.From)
	if err != nil {
		return nil, err
	}
	rows, err := e.buildPostingRows(txns, nil)
	if err != nil {
		return nil, err
	}

	final := map[ast.Account]Value{}
	var order []ast.Account
	for _, row := range rows {
		if _, ok := final[row.Account]; !ok {
			order = append(order, row.Account)
		}
		final[row.Account] = row.Balance
	}
	slices.SortFunc(order, func(a, b ast.Account) int { return strings.Compare(string(a), string(b)) })

	result := &Result{Columns: []string{"account", "balance"}}
	for _, acc := range order {
		result.Rows = append(result.Rows, []Value{AccountValue(acc), final[acc]})
	}
	return result, nil
}

// executePrint re-emits the surviving (filtered) transactions as a result
// table of their narration and postings rendered as text, the query-surface
// counterpart of the textual formatter.
func (e *Executor) executePrint(stmt *PrintStmt) (*Result, error) {
	txns, err := e.filterEntries(stmt.From)
	if err != nil {
		return nil, err
	}
	result := &Result{Columns: []string{"date", "flag", "payee", "narration", "postings"}}
	for _, t := range txns {
		var postingLines []string
		for _, p := range t.Postings {
			amt := ""
			if p.Amount != nil {
				amt = p.Amount.Value + " " + p.Amount.Currency
			}
			postingLines = append(postingLines, strings.TrimSpace(string(p.Account)+" "+amt))
		}
		result.Rows = append(result.Rows, []Value{
			DateValue(t.Date),
			StringValue(t.Flag),
			StringValue(t.Payee.String()),
			StringValue(t.Narration.String()),
			StringValue(strings.Join(postingLines, " | ")),
		})
	}
	return result, nil
}

// exprKey renders an expression into a canonical string used to key
// precomputed aggregate results; it need only be stable and distinct, not
// source-faithful.
func exprKey(e Expr) string {
	switch n := e.(type) {
	case *Literal:
		return "lit:" + n.Value.String()
	case *Column:
		return "col:" + n.Name
	case *FuncCall:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = exprKey(a)
		}
		return n.Name + "(" + strings.Join(parts, ",") + ")"
	case *BinaryExpr:
		return "(" + exprKey(n.Left) + n.Op.String() + exprKey(n.Right) + ")"
	case *UnaryExpr:
		return n.Op.String() + exprKey(n.Operand)
	case *InExpr:
		parts := make([]string, len(n.Set))
		for i, s := range n.Set {
			parts[i] = exprKey(s)
		}
		return exprKey(n.Expr) + " IN (" + strings.Join(parts, ",") + ")"
	case *MatchExpr:
		return exprKey(n.Expr) + "~" + exprKey(n.Pattern)
	default:
		return fmt.Sprintf("%T", e)
	}
}
