package expr

import (
	"fmt"
	"strconv"
	"unicode"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// lex splits the expression into tokens. Only the characters the grammar
// needs are accepted; anything else (string quotes, brackets, commas,
// boolean connectives are caught later as identifiers) is a syntax error.
func lex(expression string) ([]token, error) {
	var tokens []token
	runes := []rune(expression)
	i := 0

	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case unicode.IsDigit(r) || r == '.':
			start := i
			seenDot := false
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				if runes[i] == '.' {
					if seenDot {
						return nil, fmt.Errorf("malformed number at position %d", i)
					}
					seenDot = true
				}
				i++
			}
			text := string(runes[start:i])
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed number %q", text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: num, pos: start})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[start:i]), pos: start})

		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++

		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++

		case r == '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				tokens = append(tokens, token{kind: tokOp, text: "**", pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokOp, text: "*", pos: i})
				i++
			}

		case r == '+' || r == '-' || r == '/':
			tokens = append(tokens, token{kind: tokOp, text: string(r), pos: i})
			i++

		case r == '=' || r == '!' || r == '<' || r == '>':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{kind: tokOp, text: string(r) + "=", pos: i})
				i += 2
			} else if r == '<' || r == '>' {
				tokens = append(tokens, token{kind: tokOp, text: string(r), pos: i})
				i++
			} else {
				return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
			}

		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
		}
	}

	tokens = append(tokens, token{kind: tokEOF, pos: len(runes)})
	return tokens, nil
}
