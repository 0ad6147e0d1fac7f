package expr

import "fmt"

// Parse turns an expression string into its tree form. The grammar is a
// single optional comparison over arithmetic terms:
//
//	expression  = arith [ cmpOp arith ]
//	arith       = term { ("+" | "-") term }
//	term        = power { ("*" | "/") power }
//	power       = primary [ "**" power ]
//	primary     = number | "-" number | "true" | "false" | ident | "(" expression ")"
//
// Comparisons do not chain, there are no boolean connectives, no function
// calls, no strings, and no unary operators beyond a literal sign.
func Parse(expression string) (Node, error) {
	tokens, err := lex(expression)
	if err != nil {
		return nil, newEvalError(expression, ReasonSyntax, err.Error())
	}

	p := &parser{expression: expression, tokens: tokens}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		if tok.kind == tokOp && Op(tok.text).IsComparison() {
			return nil, newEvalError(expression, ReasonChainedComparison,
				fmt.Sprintf("second comparison %q at position %d", tok.text, tok.pos))
		}
		return nil, newEvalError(expression, ReasonSyntax,
			fmt.Sprintf("unexpected %q at position %d", tok.text, tok.pos))
	}
	return node, nil
}

type parser struct {
	expression string
	tokens     []token
	idx        int
}

func (p *parser) peek() token { return p.tokens[p.idx] }

func (p *parser) next() token {
	tok := p.tokens[p.idx]
	if tok.kind != tokEOF {
		p.idx++
	}
	return tok
}

func (p *parser) parseExpression() (Node, error) {
	left, err := p.parseArith()
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	if tok.kind == tokOp && Op(tok.text).IsComparison() {
		p.next()
		right, err := p.parseArith()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: Op(tok.text), Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseArith() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: Op(tok.text), Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: Op(tok.text), Left: left, Right: right}
	}
}

func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind == tokOp && tok.text == "**" {
		p.next()
		// right-associative: 2**3**2 == 2**(3**2)
		exp, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return Binary{Op: OpPow, Left: base, Right: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return Literal{Value: Number(tok.num)}, nil

	case tokIdent:
		switch tok.text {
		case "true":
			return Literal{Value: Bool(true)}, nil
		case "false":
			return Literal{Value: Bool(false)}, nil
		}
		return Ident{Name: tok.text}, nil

	case tokLParen:
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, newEvalError(p.expression, ReasonSyntax,
				fmt.Sprintf("expected ')' at position %d", closing.pos))
		}
		return inner, nil

	case tokOp:
		// A sign is only allowed directly in front of a numeric literal.
		if tok.text == "-" || tok.text == "+" {
			num := p.peek()
			if num.kind == tokNumber {
				p.next()
				n := num.num
				if tok.text == "-" {
					n = -n
				}
				return Literal{Value: Number(n)}, nil
			}
		}
		return nil, newEvalError(p.expression, ReasonSyntax,
			fmt.Sprintf("unexpected operator %q at position %d", tok.text, tok.pos))

	default:
		return nil, newEvalError(p.expression, ReasonSyntax,
			fmt.Sprintf("unexpected end of expression at position %d", tok.pos))
	}
}
