package parser

import (
	"context"

	"github.com/robinvdvleuten/beancount/ast"
)

// Parser turns a token stream produced by the lexer into an *ast.AST. It is a
// hand-written recursive-descent parser: each top-level entry (a directive, an
// option, an include, a push/pop, a comment, or a blank line) is parsed on its
// own, and a failure in one entry does not abort the rest of the file. This
// mirrors Beancount's own tolerant parsing behavior, where one malformed
// transaction should not prevent the rest of the ledger from being checked.
type Parser struct {
	source   []byte
	filename string
	tokens   []Token
	pos      int
	interner *Interner
	errors   []*ParseError
}

// NewParser creates a Parser over the given source, tokenizing it up front.
// Parsing still proceeds even if the source contains invalid UTF-8 or other
// lexical errors: ScanAll's error is recorded as a diagnostic rather than
// aborting, and the token stream it did manage to produce is parsed as-is.
func NewParser(filename string, source []byte) *Parser {
	lexer := NewLexer(source, filename)
	tokens, err := lexer.ScanAll()

	p := &Parser{
		source:   source,
		filename: filename,
		tokens:   tokens,
		interner: lexer.Interner(),
	}
	if err != nil {
		p.addError(err)
	}
	return p
}

// Errors returns every recoverable error collected while parsing, in source order.
func (p *Parser) Errors() []*ParseError {
	return p.errors
}

// addError records a recoverable parse error without aborting the parse.
func (p *Parser) addError(err error) {
	if err == nil {
		return
	}
	if pe, ok := err.(*ParseError); ok {
		p.errors = append(p.errors, pe)
		return
	}
	p.errors = append(p.errors, &ParseError{
		Pos:      p.tokenPositionFromPeek(),
		Message:  err.Error(),
		Severity: SeverityError,
	})
}

// Parse consumes the whole token stream and returns the resulting AST. Parse
// errors in individual directives are collected (see Errors) rather than
// aborting the whole file; Parse only returns a non-nil error for conditions
// that make the remainder of the file unparseable (currently: none - the
// loop always makes progress and terminates at EOF).
func (p *Parser) Parse() (*ast.AST, error) {
	tree := &ast.AST{}

	for !p.isAtEnd() {
		tok := p.peek()

		switch {
		case tok.Type == NEWLINE:
			tree.BlankLines = append(tree.BlankLines, &ast.BlankLine{Pos: p.tokenPositionFromPeek()})
			p.advance()

		case tok.Type == COMMENT:
			tree.Comments = append(tree.Comments, p.parseStandaloneComment())

		case tok.Type == OPTION:
			p.advance()
			if opt, err := p.parseOption(tok); err != nil {
				p.recoverFromDirectiveError(err)
			} else {
				tree.Options = append(tree.Options, opt)
			}

		case tok.Type == INCLUDE:
			p.advance()
			if inc, err := p.parseInclude(tok); err != nil {
				p.recoverFromDirectiveError(err)
			} else {
				tree.Includes = append(tree.Includes, inc)
			}

		case tok.Type == PLUGIN:
			p.advance()
			if plugin, err := p.parsePlugin(tok); err != nil {
				p.recoverFromDirectiveError(err)
			} else {
				tree.Plugins = append(tree.Plugins, plugin)
			}

		case tok.Type == PUSHTAG:
			p.advance()
			if pt, err := p.parsePushtag(tok); err != nil {
				p.recoverFromDirectiveError(err)
			} else {
				tree.Pushtags = append(tree.Pushtags, pt)
			}

		case tok.Type == POPTAG:
			p.advance()
			if pt, err := p.parsePoptag(tok); err != nil {
				p.recoverFromDirectiveError(err)
			} else {
				tree.Poptags = append(tree.Poptags, pt)
			}

		case tok.Type == PUSHMETA:
			p.advance()
			if pm, err := p.parsePushmeta(tok); err != nil {
				p.recoverFromDirectiveError(err)
			} else {
				tree.Pushmetas = append(tree.Pushmetas, pm)
			}

		case tok.Type == POPMETA:
			p.advance()
			if pm, err := p.parsePopmeta(tok); err != nil {
				p.recoverFromDirectiveError(err)
			} else {
				tree.Popmetas = append(tree.Popmetas, pm)
			}

		case tok.Type == DATE:
			directive, err := p.parseDateDirective()
			if err != nil {
				p.recoverFromDirectiveError(err)
			} else if directive != nil {
				tree.Directives = append(tree.Directives, directive)
			}

		default:
			// Unrecognized top-level token: record a diagnostic and skip to
			// the next line rather than aborting the whole file.
			p.recoverFromDirectiveError(p.errorAtToken(tok, "unexpected token %s at top level", tok.Type))
		}
	}

	if err := ast.ApplyPushPopDirectives(tree); err != nil {
		return tree, err
	}

	return tree, ast.SortDirectives(tree)
}

// parseDateDirective dispatches on the keyword following a DATE token to the
// matching directive sub-parser.
func (p *Parser) parseDateDirective() (ast.Directive, error) {
	pos := p.tokenPositionFromPeek()
	date, err := p.parseDate()
	if err != nil {
		return nil, err
	}

	kw := p.peek()
	switch kw.Type {
	case BALANCE:
		p.advance()
		return p.parseBalance(pos, date)
	case OPEN:
		p.advance()
		return p.parseOpen(pos, date)
	case CLOSE:
		p.advance()
		return p.parseClose(pos, date)
	case COMMODITY:
		p.advance()
		return p.parseCommodity(pos, date)
	case PAD:
		p.advance()
		return p.parsePad(pos, date)
	case NOTE:
		p.advance()
		return p.parseNote(pos, date)
	case DOCUMENT:
		p.advance()
		return p.parseDocument(pos, date)
	case PRICE:
		p.advance()
		return p.parsePrice(pos, date)
	case EVENT:
		p.advance()
		return p.parseEvent(pos, date)
	case CUSTOM:
		p.advance()
		return p.parseCustom(pos, date)
	case TXN, ASTERISK, EXCLAIM, STRING:
		return p.parseTransaction(pos, date)
	default:
		return nil, p.errorAtToken(kw, "expected directive keyword or transaction flag after date, got %s", kw.Type)
	}
}

// recoverFromDirectiveError implements the collect-and-continue recovery
// policy: record one diagnostic for the failed entry, then skip tokens until
// the next line that starts with a DATE token at column 1 (or a top-level
// keyword), or EOF.
func (p *Parser) recoverFromDirectiveError(err error) {
	pos := p.tokenPositionFromPeek()
	p.addError(newRecoveryError(pos, err))

	for !p.isAtEnd() {
		tok := p.peek()
		if tok.Column <= 1 && (tok.Type == DATE || p.isKeyword(tok.Type) || tok.Type == NEWLINE) {
			return
		}
		p.advance()
	}
}

// parseStandaloneComment consumes a COMMENT token and wraps it as ast.Comment.
func (p *Parser) parseStandaloneComment() *ast.Comment {
	pos := p.tokenPositionFromPeek()
	tok := p.advance()

	typ := ast.StandaloneComment
	if p.check(NEWLINE) {
		typ = ast.SectionComment
	}

	return &ast.Comment{
		Pos:     pos,
		Content: tok.String(p.source),
		Type:    typ,
	}
}

func (p *Parser) parseComment() *ast.Comment {
	return p.parseStandaloneComment()
}

// parseOption parses: option "name" "value"
func (p *Parser) parseOption(startTok Token) (*ast.Option, error) {
	name, err := p.parseString()
	if err != nil {
		return nil, err
	}
	value, err := p.parseString()
	if err != nil {
		return nil, err
	}
	return &ast.Option{Pos: tokenPosition(startTok, p.filename), Name: name, Value: value}, nil
}

// parseInclude parses: include "path"
func (p *Parser) parseInclude(startTok Token) (*ast.Include, error) {
	filename, err := p.parseString()
	if err != nil {
		return nil, err
	}
	return &ast.Include{Pos: tokenPosition(startTok, p.filename), Filename: filename}, nil
}

// parsePlugin parses: plugin "name" ["config"]
func (p *Parser) parsePlugin(startTok Token) (*ast.Plugin, error) {
	name, err := p.parseString()
	if err != nil {
		return nil, err
	}
	plugin := &ast.Plugin{Pos: tokenPosition(startTok, p.filename), Name: name}
	if p.check(STRING) {
		config, err := p.parseString()
		if err != nil {
			return nil, err
		}
		plugin.Config = config
	}
	return plugin, nil
}

// parsePushtag parses: pushtag #tag
func (p *Parser) parsePushtag(startTok Token) (*ast.Pushtag, error) {
	tag, err := p.parseTag()
	if err != nil {
		return nil, err
	}
	return &ast.Pushtag{Pos: tokenPosition(startTok, p.filename), Tag: tag}, nil
}

// parsePoptag parses: poptag #tag
func (p *Parser) parsePoptag(startTok Token) (*ast.Poptag, error) {
	tag, err := p.parseTag()
	if err != nil {
		return nil, err
	}
	return &ast.Poptag{Pos: tokenPosition(startTok, p.filename), Tag: tag}, nil
}

// parsePushmeta parses: pushmeta key: "value"
func (p *Parser) parsePushmeta(startTok Token) (*ast.Pushmeta, error) {
	key, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	p.consume(COLON, "expected ':' after pushmeta key")
	value := p.parseRestOfLine()
	return &ast.Pushmeta{Pos: tokenPosition(startTok, p.filename), Key: key, Value: value}, nil
}

// parsePopmeta parses: popmeta key:
func (p *Parser) parsePopmeta(startTok Token) (*ast.Popmeta, error) {
	key, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	p.consume(COLON, "expected ':' after popmeta key")
	return &ast.Popmeta{Pos: tokenPosition(startTok, p.filename), Key: key}, nil
}

// Parse parses AST from bytes, using the default (empty) filename.
func Parse(ctx context.Context, data []byte) (*ast.AST, error) {
	return ParseBytesWithFilename(ctx, "", data)
}

// ParseString parses AST from a string.
func ParseString(ctx context.Context, str string) (*ast.AST, error) {
	return ParseBytesWithFilename(ctx, "", []byte(str))
}

// ParseBytes parses AST from bytes.
func ParseBytes(ctx context.Context, data []byte) (*ast.AST, error) {
	return ParseBytesWithFilename(ctx, "", data)
}

// ParseBytesWithFilename parses AST from bytes with a filename for position tracking.
// The filename will be included in position information in the AST for better error reporting.
func ParseBytesWithFilename(ctx context.Context, filename string, data []byte) (*ast.AST, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p := NewParser(filename, data)
	tree, err := p.Parse()
	if err != nil {
		return tree, NewParseErrorWithSource(filename, err, data)
	}

	if len(p.errors) > 0 {
		// The first collected error is returned so existing single-error
		// callers (e.g. the loader) still see a failure; the full list
		// remains available via ParseFile for callers that want every
		// diagnostic instead of just the first.
		return tree, p.errors[0]
	}

	return tree, nil
}

// ParseFile parses source and returns both the AST and every collected
// recoverable error, instead of collapsing them to the first one.
func ParseFile(ctx context.Context, filename string, data []byte) (*ast.AST, []*ParseError) {
	p := NewParser(filename, data)
	tree, _ := p.Parse()
	return tree, p.errors
}
