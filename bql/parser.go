package bql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robinvdvleuten/beancount/ast"
	"github.com/shopspring/decimal"
)

// ParseError reports a syntax error with its source position.
type ParseError struct {
	Line, Column int
	Message      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Parser is a hand-written recursive-descent parser over a BQL token
// stream, mirroring the ledger-source parser's peek/check/match/expect
// idiom but for the single-statement shape of a query.
type Parser struct {
	source []byte
	tokens []Token
	pos    int
}

// NewParser tokenizes source and returns a Parser positioned at its start.
func NewParser(source []byte) (*Parser, error) {
	lexer := NewLexer(source)
	tokens, err := lexer.ScanAll()
	if err != nil {
		return nil, err
	}
	return &Parser{source: source, tokens: tokens}, nil
}

// ParseQuery parses one complete query statement.
func ParseQuery(source []byte) (Query, error) {
	p, err := NewParser(source)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

func (p *Parser) peek() Token    { return p.tokens[p.pos] }
func (p *Parser) isAtEnd() bool  { return p.peek().Type == EOF }
func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(t TokenType, message string) (Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	tok := p.peek()
	return Token{}, &ParseError{Line: tok.Line, Column: tok.Column, Message: message}
}

func (p *Parser) text(tok Token) string { return tok.String(p.source) }

// Parse parses the single query in the token stream.
func (p *Parser) Parse() (Query, error) {
	switch p.peek().Type {
	case SELECT:
		return p.parseSelect()
	case JOURNAL:
		return p.parseJournal()
	case BALANCES:
		return p.parseBalances()
	case PRINT:
		return p.parsePrint()
	default:
		tok := p.peek()
		return nil, &ParseError{Line: tok.Line, Column: tok.Column, Message: "expected SELECT, JOURNAL, BALANCES, or PRINT"}
	}
}

func (p *Parser) parseSelect() (*SelectStmt, error) {
	p.advance() // SELECT
	stmt := &SelectStmt{}

	if p.match(DISTINCT) {
		stmt.Distinct = true
	}

	if p.match(STAR) {
		stmt.Wildcard = true
	} else {
		targets, err := p.parseTargets()
		if err != nil {
			return nil, err
		}
		stmt.Targets = targets
	}

	if p.match(FROM) {
		from, err := p.parseFromExpr()
		if err != nil {
			return nil, err
		}
		stmt.From = from
	}

	if p.match(WHERE) {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.match(GROUP) {
		if _, err := p.expect(BY, "expected BY after GROUP"); err != nil {
			return nil, err
		}
		group, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = group
	}

	if p.match(ORDER) {
		if _, err := p.expect(BY, "expected BY after ORDER"); err != nil {
			return nil, err
		}
		order, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = order
	}

	if p.match(LIMIT) {
		tok, err := p.expect(NUMBER, "expected integer after LIMIT")
		if err != nil {
			return nil, err
		}
		n, perr := parseIntLiteral(p.text(tok))
		if perr != nil {
			return nil, &ParseError{Line: tok.Line, Column: tok.Column, Message: perr.Error()}
		}
		limit := int(n)
		stmt.Limit = &limit
	}

	if !p.isAtEnd() {
		tok := p.peek()
		return nil, &ParseError{Line: tok.Line, Column: tok.Column, Message: "unexpected trailing input"}
	}
	return stmt, nil
}

func (p *Parser) parseTargets() ([]Target, error) {
	var targets []Target
	for {
		t, err := p.parseTarget()
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
		if !p.match(COMMA) {
			break
		}
	}
	return targets, nil
}

func (p *Parser) parseTarget() (Target, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return Target{}, err
	}
	t := Target{Expr: expr}
	if p.match(AS) {
		tok, err := p.expect(IDENT, "expected identifier after AS")
		if err != nil {
			return Target{}, err
		}
		t.Alias = p.text(tok)
	}
	return t, nil
}

func (p *Parser) parseExprList() ([]Expr, error) {
	var exprs []Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if !p.match(COMMA) {
			break
		}
	}
	return exprs, nil
}

func (p *Parser) parseOrderByList() ([]OrderByItem, error) {
	var items []OrderByItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := OrderByItem{Expr: e}
		if p.match(DESC) {
			item.Desc = true
		} else {
			p.match(ASC)
		}
		items = append(items, item)
		if !p.match(COMMA) {
			break
		}
	}
	return items, nil
}

// parseFromExpr parses `[OPEN ON date] [CLOSE ON date] [CLEAR] [filter_expr]`.
func (p *Parser) parseFromExpr() (*FromClause, error) {
	from := &FromClause{}

	if p.match(OPEN) {
		if _, err := p.expect(ON, "expected ON after OPEN"); err != nil {
			return nil, err
		}
		d, err := p.parseDateLiteral()
		if err != nil {
			return nil, err
		}
		from.OpenOn = d
	}

	if p.match(CLOSE) {
		if _, err := p.expect(ON, "expected ON after CLOSE"); err != nil {
			return nil, err
		}
		d, err := p.parseDateLiteral()
		if err != nil {
			return nil, err
		}
		from.CloseOn = d
	}

	if p.match(CLEAR) {
		from.Clear = true
	}

	if p.canStartExpr() {
		filter, err := p.parseFilterExpr()
		if err != nil {
			return nil, err
		}
		from.Filter = filter
	}

	return from, nil
}

// parseFilterExpr parses the FROM clause's transaction filter. Each operand
// is parsed with parseOr, so the filter accepts the same boolean expression
// grammar as WHERE (AND, OR and NOT included).
func (p *Parser) parseFilterExpr() (Expr, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.match(AND) {
		right, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) canStartExpr() bool {
	switch p.peek().Type {
	case NUMBER, STRING, DATE, IDENT, TRUE, FALSE, NULL, LPAREN, MINUS, NOT:
		return true
	default:
		return false
	}
}

func (p *Parser) parseDateLiteral() (*ast.Date, error) {
	tok, err := p.expect(DATE, "expected a date literal (YYYY-MM-DD)")
	if err != nil {
		return nil, err
	}
	d, derr := ast.NewDate(p.text(tok))
	if derr != nil {
		return nil, &ParseError{Line: tok.Line, Column: tok.Column, Message: derr.Error()}
	}
	return d, nil
}

func (p *Parser) parseJournal() (*JournalStmt, error) {
	p.advance() // JOURNAL
	tok, err := p.expect(IDENT, "expected an account name after JOURNAL")
	if err != nil {
		return nil, err
	}
	stmt := &JournalStmt{Account: ast.Account(p.text(tok))}
	if p.match(FROM) {
		from, err := p.parseFromExpr()
		if err != nil {
			return nil, err
		}
		stmt.From = from
	}
	return stmt, nil
}

func (p *Parser) parseBalances() (*BalancesStmt, error) {
	p.advance() // BALANCES
	stmt := &BalancesStmt{}
	if p.match(FROM) {
		from, err := p.parseFromExpr()
		if err != nil {
			return nil, err
		}
		stmt.From = from
	}
	return stmt, nil
}

func (p *Parser) parsePrint() (*PrintStmt, error) {
	p.advance() // PRINT
	stmt := &PrintStmt{}
	if p.match(FROM) {
		from, err := p.parseFromExpr()
		if err != nil {
			return nil, err
		}
		stmt.From = from
	}
	return stmt, nil
}

// Expression grammar, lowest to highest precedence:
//   or -> and -> not -> comparison (=, !=, <, <=, >, >=, IN, ~) ->
//   additive (+, -) -> multiplicative (*, /) -> unary (-) -> primary

func (p *Parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.match(OR) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OR, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.match(AND) {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.match(NOT) {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: NOT, Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(EQ, NEQ, LT, LTE, GT, GTE):
			op := p.tokens[p.pos-1].Type
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Op: op, Left: left, Right: right}
		case p.match(TILDE):
			pattern, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &MatchExpr{Expr: left, Pattern: pattern}
		case p.match(IN):
			set, err := p.parseSet()
			if err != nil {
				return nil, err
			}
			left = &InExpr{Expr: left, Set: set}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseSet() ([]Expr, error) {
	if _, err := p.expect(LPAREN, "expected '(' after IN"); err != nil {
		return nil, err
	}
	if p.match(RPAREN) {
		return nil, nil
	}
	exprs, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN, "expected ')' to close IN set"); err != nil {
		return nil, err
	}
	return exprs, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.match(PLUS, MINUS) {
		op := p.tokens[p.pos-1].Type
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.match(STAR, SLASH) {
		op := p.tokens[p.pos-1].Type
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.match(MINUS) {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: MINUS, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "expected ')'"); err != nil {
			return nil, err
		}
		return e, nil
	case NUMBER:
		p.advance()
		d, err := parseDecimalLiteral(p.text(tok))
		if err != nil {
			return nil, &ParseError{Line: tok.Line, Column: tok.Column, Message: err.Error()}
		}
		return &Literal{Value: DecimalValue(d)}, nil
	case STRING:
		p.advance()
		return &Literal{Value: StringValue(unquote(p.text(tok)))}, nil
	case DATE:
		p.advance()
		d, err := ast.NewDate(p.text(tok))
		if err != nil {
			return nil, &ParseError{Line: tok.Line, Column: tok.Column, Message: err.Error()}
		}
		return &Literal{Value: DateValue(d)}, nil
	case TRUE:
		p.advance()
		return &Literal{Value: BoolValue(true)}, nil
	case FALSE:
		p.advance()
		return &Literal{Value: BoolValue(false)}, nil
	case NULL:
		p.advance()
		return &Literal{Value: Null()}, nil
	case IDENT:
		p.advance()
		name := p.text(tok)
		if p.match(LPAREN) {
			var args []Expr
			if !p.check(RPAREN) {
				var err error
				args, err = p.parseExprList()
				if err != nil {
					return nil, err
				}
			}
			if _, err := p.expect(RPAREN, "expected ')' to close function call"); err != nil {
				return nil, err
			}
			return &FuncCall{Name: lowerASCII(name), Args: args}, nil
		}
		return &Column{Name: lowerASCII(name)}, nil
	default:
		return nil, &ParseError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf("unexpected token %s", tok.Type)}
	}
}

func parseIntLiteral(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parseDecimalLiteral(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// unquote strips the surrounding quote characters from a STRING token's raw
// text and resolves backslash escapes.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	body := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(body[i])
			}
			continue
		}
		b.WriteByte(body[i])
	}
	return b.String()
}

func lowerASCII(s string) string {
	return strings.ToLower(s)
}
