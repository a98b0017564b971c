package gocalc

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultVariable is the free variable accepted by Parse.
const DefaultVariable = "x"

// Parse builds an Expression in the variable x.
func Parse(source string) (*Expression, error) {
	return ParseVar(source, DefaultVariable)
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level expressions.
func MustParse(source string) *Expression {
	e, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return e
}

// ParseVar builds an Expression whose free variable is named variable.
func ParseVar(source, variable string) (*Expression, error) {
	if err := checkVariable(variable); err != nil {
		return nil, err
	}
	p := newParser(source, variable)
	if p.cur.typ == tokenEOF {
		return nil, p.errorf(p.cur, "empty expression")
	}
	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	switch p.cur.typ {
	case tokenEOF:
	case tokenRParen:
		return nil, p.errorf(p.cur, "unbalanced ')'")
	default:
		return nil, p.errorf(p.cur, "unexpected %s after expression", p.cur)
	}
	return &Expression{root: root, source: source, variable: variable}, nil
}

func checkVariable(name string) error {
	if name == "" || !isIdentifierStart(name[0]) {
		return fmt.Errorf("%w: variable name %q is not an identifier", ErrInvalidArgument, name)
	}
	for i := 1; i < len(name); i++ {
		if !isIdentifierPart(name[i]) {
			return fmt.Errorf("%w: variable name %q is not an identifier", ErrInvalidArgument, name)
		}
	}
	if _, ok := functions[name]; ok {
		return fmt.Errorf("%w: variable name %q is a function name", ErrInvalidArgument, name)
	}
	if _, ok := constants[name]; ok {
		return fmt.Errorf("%w: variable name %q is a constant", ErrInvalidArgument, name)
	}
	return nil
}

// --- Lexer ---

type tokenType int

const (
	tokenIllegal tokenType = iota
	tokenEOF
	tokenNumber
	tokenIdentifier
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenCaret
	tokenLParen
	tokenRParen
)

func (t tokenType) String() string {
	switch t {
	case tokenIllegal:
		return "illegal"
	case tokenEOF:
		return "end of input"
	case tokenNumber:
		return "number"
	case tokenIdentifier:
		return "identifier"
	case tokenPlus:
		return "+"
	case tokenMinus:
		return "-"
	case tokenStar:
		return "*"
	case tokenSlash:
		return "/"
	case tokenCaret:
		return "^"
	case tokenLParen:
		return "("
	case tokenRParen:
		return ")"
	default:
		return "unknown"
	}
}

type token struct {
	typ     tokenType
	literal string
	pos     int
}

func (t token) String() string {
	switch t.typ {
	case tokenNumber, tokenIdentifier:
		return fmt.Sprintf("%s %q", t.typ, t.literal)
	case tokenIllegal:
		return fmt.Sprintf("character %q", t.literal)
	}
	return fmt.Sprintf("%q", t.typ.String())
}

type lexer struct {
	input  string
	length int
	pos    int
}

func newLexer(input string) *lexer {
	return &lexer{input: input, length: len(input)}
}

func (l *lexer) nextToken() token {
	l.skipWhitespace()
	if l.pos >= l.length {
		return token{typ: tokenEOF, pos: l.pos}
	}

	start := l.pos
	ch := l.input[l.pos]
	single := func(typ tokenType) token {
		l.pos++
		return token{typ: typ, literal: string(ch), pos: start}
	}

	switch ch {
	case '(':
		return single(tokenLParen)
	case ')':
		return single(tokenRParen)
	case '+':
		return single(tokenPlus)
	case '-':
		return single(tokenMinus)
	case '/':
		return single(tokenSlash)
	case '^':
		return single(tokenCaret)
	case '*':
		if l.peek() == '*' {
			l.pos += 2
			return token{typ: tokenCaret, literal: "**", pos: start}
		}
		return single(tokenStar)
	}

	if isDigit(ch) || (ch == '.' && isDigit(l.peek())) {
		return l.scanNumber()
	}

	if isIdentifierStart(ch) {
		return l.scanIdentifier()
	}

	return single(tokenIllegal)
}

func (l *lexer) skipWhitespace() {
	for l.pos < l.length {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) peek() byte {
	return l.at(l.pos + 1)
}

func (l *lexer) at(i int) byte {
	if i >= l.length {
		return 0
	}
	return l.input[i]
}

func (l *lexer) scanNumber() token {
	start := l.pos
	l.scanDigits()
	if l.at(l.pos) == '.' {
		l.pos++
		l.scanDigits()
	}
	// An exponent needs at least one digit, otherwise "2e" is 2 times e.
	if c := l.at(l.pos); c == 'e' || c == 'E' {
		next := l.at(l.pos + 1)
		switch {
		case isDigit(next):
			l.pos++
			l.scanDigits()
		case (next == '+' || next == '-') && isDigit(l.at(l.pos+2)):
			l.pos += 2
			l.scanDigits()
		}
	}
	return token{typ: tokenNumber, literal: l.input[start:l.pos], pos: start}
}

func (l *lexer) scanDigits() {
	for l.pos < l.length && isDigit(l.input[l.pos]) {
		l.pos++
	}
}

func (l *lexer) scanIdentifier() token {
	start := l.pos
	for l.pos < l.length && isIdentifierPart(l.input[l.pos]) {
		l.pos++
	}
	return token{typ: tokenIdentifier, literal: l.input[start:l.pos], pos: start}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentifierStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentifierPart(ch byte) bool {
	return isIdentifierStart(ch) || isDigit(ch)
}

// --- Parser ---

type parser struct {
	source   string
	variable string
	lex      *lexer
	cur      token
	peek     token
}

func newParser(source, variable string) *parser {
	p := &parser{source: source, variable: variable, lex: newLexer(source)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lex.nextToken()
}

func (p *parser) errorf(at token, format string, args ...interface{}) error {
	return &ParseError{Source: p.source, Pos: at.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseExpression() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.cur.typ == tokenPlus || p.cur.typ == tokenMinus {
		op := p.cur.literal[0]
		p.nextToken()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Binary{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		var op byte
		switch p.cur.typ {
		case tokenStar:
			op = '*'
			p.nextToken()
		case tokenSlash:
			op = '/'
			p.nextToken()
		case tokenIdentifier, tokenLParen:
			// implicit multiplication: 2x, 3(x+1), (x+1)(x-1), 2sin(x)
			op = '*'
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	switch p.cur.typ {
	case tokenMinus:
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{operand: operand}, nil
	case tokenPlus:
		p.nextToken()
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur.typ != tokenCaret {
		return base, nil
	}
	p.nextToken()
	exponent, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Binary{op: '^', left: base, right: exponent}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.cur
	switch tok.typ {
	case tokenNumber:
		p.nextToken()
		value, err := strconv.ParseFloat(tok.literal, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %q", tok.literal)
		}
		return &Constant{value: value}, nil
	case tokenIdentifier:
		return p.parseIdentifier()
	case tokenLParen:
		p.nextToken()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectClose(tok); err != nil {
			return nil, err
		}
		return inner, nil
	case tokenRParen:
		return nil, p.errorf(tok, "unbalanced ')'")
	case tokenEOF:
		return nil, p.errorf(tok, "unexpected end of input")
	case tokenIllegal:
		return nil, p.errorf(tok, "illegal %s", tok)
	default:
		return nil, p.errorf(tok, "unexpected operator %s", tok)
	}
}

func (p *parser) parseIdentifier() (Node, error) {
	tok := p.cur
	name := tok.literal
	if fn, ok := functions[name]; ok {
		if p.peek.typ != tokenLParen {
			return nil, p.errorf(tok, "function %s requires a parenthesised argument", name)
		}
		p.nextToken()
		open := p.cur
		p.nextToken()
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectClose(open); err != nil {
			return nil, err
		}
		return &Call{fn: fn, arg: arg}, nil
	}

	p.nextToken()
	if name == p.variable {
		return &Variable{name: name}, nil
	}
	if v, ok := constants[name]; ok {
		return &Constant{value: v, name: name}, nil
	}
	if p.cur.typ == tokenLParen {
		return nil, p.errorf(tok, "unsupported function %q (supported: %s)", name, strings.Join(Functions(), ", "))
	}
	return nil, p.errorf(tok, "unknown symbol %q", name)
}

// expectClose consumes the ')' matching open.
func (p *parser) expectClose(open token) error {
	switch p.cur.typ {
	case tokenRParen:
		p.nextToken()
		return nil
	case tokenEOF:
		return p.errorf(open, "unbalanced '(': missing ')'")
	case tokenIllegal:
		return p.errorf(p.cur, "illegal %s", p.cur)
	}
	return p.errorf(p.cur, "expected ')', got %s", p.cur)
}
