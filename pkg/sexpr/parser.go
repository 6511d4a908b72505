// SPDX-License-Identifier: Apache-2.0

package sexpr

import "strings"

type parser struct {
	lex    *lexer
	src    string
	peeked *Token
}

// Parse reads one complete expression from src and fails if trailing
// non-whitespace tokens remain.
func Parse(src string) (Node, error) {
	p := &parser{lex: newLexer(src), src: src}

	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.Type != EOF {
		return nil, ParseError{Pos: tok.Pos, Source: src, Reason: "unexpected trailing input " + tok.Literal}
	}
	return n, nil
}

func (p *parser) peek() Token {
	if p.peeked == nil {
		t := p.lex.next()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *parser) next() Token {
	t := p.peek()
	p.peeked = nil
	return t
}

func (p *parser) parseExpr() (Node, error) {
	tok := p.next()

	switch tok.Type {
	case LPAREN:
		return p.parseList(tok.Pos)
	case SYMBOL:
		return &Symbol{Name: tok.Literal, Pos: tok.Pos}, nil
	case NUMBER:
		return &Number{Raw: tok.Literal, Pos: tok.Pos}, nil
	case STRING:
		return &String{Value: tok.Literal, Pos: tok.Pos}, nil
	case PLACEHOLDER:
		name, attr, _ := strings.Cut(tok.Literal, ".")
		return &Placeholder{Name: name, Attr: attr, Pos: tok.Pos}, nil
	case EOF:
		return nil, ParseError{Pos: tok.Pos, Source: p.src, Reason: "unexpected end of input"}
	default:
		return nil, ParseError{Pos: tok.Pos, Source: p.src, Reason: "unexpected token " + tok.Literal}
	}
}

func (p *parser) parseList(openPos int) (Node, error) {
	headTok := p.next()
	if headTok.Type != SYMBOL {
		return nil, ParseError{Pos: headTok.Pos, Source: p.src, Reason: "expected a head symbol after '('"}
	}

	list := &List{Head: headTok.Literal, Pos: openPos}
	for {
		tok := p.peek()
		switch tok.Type {
		case RPAREN:
			p.next()
			return list, nil
		case EOF:
			return nil, ParseError{Pos: openPos, Source: p.src, Reason: "unbalanced parentheses"}
		default:
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			list.Args = append(list.Args, arg)
		}
	}
}
