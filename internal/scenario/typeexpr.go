package scenario

import (
	"fmt"
	"strings"
	"unicode"
)

// TypeExpr is a parsed type expression such as "List<{X, Y}>[]" or
// "App.Box/Inner". Exactly one of Name, Fields or Elem is set.
type TypeExpr struct {
	// Name is a keyword, a type parameter, or a simple or namespace-qualified
	// type name; nested types are separated by '/'
	Name string
	Args []*TypeExpr

	// Fields lists the property names of an anonymous type, e.g. {X, Y}
	Fields []string

	// Elem is the element of an array (Rank > 0) or a pointer (Rank == 0)
	Elem *TypeExpr
	Rank int
}

func (e *TypeExpr) String() string {
	switch {
	case e.Elem != nil && e.Rank == 0:
		return e.Elem.String() + "*"
	case e.Elem != nil:
		return e.Elem.String() + "[" + strings.Repeat(",", e.Rank-1) + "]"
	case e.Fields != nil:
		return "{" + strings.Join(e.Fields, ", ") + "}"
	case len(e.Args) > 0:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.String()
		}
		return e.Name + "<" + strings.Join(args, ", ") + ">"
	default:
		return e.Name
	}
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenLT
	tokenGT
	tokenComma
	tokenLBracket
	tokenRBracket
	tokenLBrace
	tokenRBrace
	tokenStar
	tokenError
)

type token struct {
	typ    tokenType
	lexeme string
	column int
}

// ParseError is a syntax error in a type expression.
type ParseError struct {
	Input   string
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("type expression %q, column %d: %s", e.Input, e.Column, e.Message)
}

var punctuation = map[rune]tokenType{
	'<': tokenLT, '>': tokenGT, ',': tokenComma,
	'[': tokenLBracket, ']': tokenRBracket,
	'{': tokenLBrace, '}': tokenRBrace, '*': tokenStar,
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '/' || r == '`'
}

func tokenize(input string) []token {
	var tokens []token
	runes := []rune(input)
	for i := 0; i < len(runes); {
		r := runes[i]
		col := i + 1
		if unicode.IsSpace(r) {
			i++
			continue
		}
		if t, ok := punctuation[r]; ok {
			tokens = append(tokens, token{typ: t, lexeme: string(r), column: col})
			i++
			continue
		}
		if !isIdentRune(r) {
			tokens = append(tokens, token{typ: tokenError, lexeme: string(r), column: col})
			i++
			continue
		}
		start := i
		for i < len(runes) && isIdentRune(runes[i]) {
			i++
		}
		tokens = append(tokens, token{typ: tokenIdent, lexeme: string(runes[start:i]), column: col})
	}
	return append(tokens, token{typ: tokenEOF, column: len(runes) + 1})
}

// typeParser is a recursive descent parser over the tokens of one expression.
type typeParser struct {
	input   string
	tokens  []token
	current int
}

// ParseTypeExpr parses a type expression.
func ParseTypeExpr(input string) (*TypeExpr, error) {
	p := &typeParser{input: input, tokens: tokenize(input)}
	e, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if !p.check(tokenEOF) {
		return nil, p.error(p.peek(), "unexpected trailing input")
	}
	return e, nil
}

// parseType parses a primary type followed by any array and pointer suffixes.
func (p *typeParser) parseType() (*TypeExpr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(tokenStar):
			e = &TypeExpr{Elem: e}
		case p.match(tokenLBracket):
			rank := 1
			for p.match(tokenComma) {
				rank++
			}
			if _, err := p.consume(tokenRBracket, "expected ']' after array rank"); err != nil {
				return nil, err
			}
			e = &TypeExpr{Elem: e, Rank: rank}
		default:
			return e, nil
		}
	}
}

func (p *typeParser) parsePrimary() (*TypeExpr, error) {
	if p.match(tokenLBrace) {
		return p.parseAnonymous()
	}
	name, err := p.consume(tokenIdent, "expected type name")
	if err != nil {
		return nil, err
	}
	e := &TypeExpr{Name: name.lexeme}
	if !p.match(tokenLT) {
		return e, nil
	}
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		e.Args = append(e.Args, arg)
		if !p.match(tokenComma) {
			break
		}
	}
	if _, err := p.consume(tokenGT, "expected '>' after type arguments"); err != nil {
		return nil, err
	}
	return e, nil
}

// parseAnonymous parses the property list of an anonymous type; the opening
// brace has been consumed.
func (p *typeParser) parseAnonymous() (*TypeExpr, error) {
	e := &TypeExpr{Fields: []string{}}
	if p.match(tokenRBrace) {
		return e, nil
	}
	for {
		field, err := p.consume(tokenIdent, "expected property name")
		if err != nil {
			return nil, err
		}
		e.Fields = append(e.Fields, field.lexeme)
		if !p.match(tokenComma) {
			break
		}
	}
	if _, err := p.consume(tokenRBrace, "expected '}' after anonymous type properties"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *typeParser) peek() token { return p.tokens[p.current] }

func (p *typeParser) check(t tokenType) bool { return p.peek().typ == t }

func (p *typeParser) advance() token {
	tok := p.tokens[p.current]
	if tok.typ != tokenEOF {
		p.current++
	}
	return tok
}

func (p *typeParser) match(t tokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *typeParser) consume(t tokenType, message string) (token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return token{}, p.error(p.peek(), message)
}

func (p *typeParser) error(tok token, message string) error {
	if tok.typ == tokenEOF {
		message += " at end of input"
	} else {
		message += fmt.Sprintf(" near %q", tok.lexeme)
	}
	return &ParseError{Input: p.input, Column: tok.column, Message: message}
}
