package numexpr

import (
	"fmt"
	"strings"
)

// Binding strength of the binary operators in expression text, loosest
// first. & and | sit between arithmetic and comparisons, so "x_0 < 2 | x_1"
// compares x_0 against (2 | x_1).
var binaryLevels = [][]string{
	{"|"},
	{"&"},
	{"+", "-"},
	{"*", "/", "%"},
}

var comparisons = map[string]bool{
	"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true,
}

// parser turns a token stream into fully parenthesized evaluator text, so
// the evaluator's own precedence rules never apply.
type parser struct {
	toks []token
	pos  int
}

// translate renders toks as evaluator text: & | ~ become && || !, function
// names gain the "fn_" prefix, and every operation is parenthesized.
func translate(toks []token) (string, error) {
	p := &parser{}
	for _, t := range toks {
		if t.kind != tokSpace {
			p.toks = append(p.toks, t)
		}
	}
	if len(p.toks) == 0 {
		return "", fmt.Errorf("empty expression")
	}
	out, err := p.comparison()
	if err != nil {
		return "", err
	}
	if t, ok := p.peek(); ok {
		return "", fmt.Errorf("unexpected %q after end of expression", t.text)
	}
	return out, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) peekOp(ops ...string) (string, bool) {
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			return op, true
		}
	}
	return "", false
}

// comparison does not chain: "a < b < c" is rejected.
func (p *parser) comparison() (string, error) {
	left, err := p.binary(0)
	if err != nil {
		return "", err
	}
	t, ok := p.peek()
	if !ok || t.kind != tokOp || !comparisons[t.text] {
		return left, nil
	}
	p.pos++
	right, err := p.binary(0)
	if err != nil {
		return "", err
	}
	if t2, ok := p.peek(); ok && t2.kind == tokOp && comparisons[t2.text] {
		return "", fmt.Errorf("chained comparison %q needs parentheses", t2.text)
	}
	return "(" + left + " " + t.text + " " + right + ")", nil
}

func (p *parser) binary(level int) (string, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return "", err
	}
	for {
		op, ok := p.peekOp(binaryLevels[level]...)
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.binary(level + 1)
		if err != nil {
			return "", err
		}
		left = "(" + left + " " + evaluatorOp(op) + " " + right + ")"
	}
}

func (p *parser) unary() (string, error) {
	if op, ok := p.peekOp("-", "+", "~"); ok {
		p.pos++
		operand, err := p.unary()
		if err != nil {
			return "", err
		}
		return "(" + evaluatorOp(op) + operand + ")", nil
	}
	return p.power()
}

// power binds tighter than a unary operator on its left but accepts one on
// its right, so -2 ** 2 is -(2 ** 2) and 2 ** -1 is valid.
func (p *parser) power() (string, error) {
	base, err := p.atom()
	if err != nil {
		return "", err
	}
	if _, ok := p.peekOp("**"); !ok {
		return base, nil
	}
	p.pos++
	exp, err := p.unary()
	if err != nil {
		return "", err
	}
	return "(" + base + " ** " + exp + ")", nil
}

func (p *parser) atom() (string, error) {
	t, ok := p.peek()
	if !ok {
		return "", fmt.Errorf("unexpected end of expression")
	}
	p.pos++
	switch t.kind {
	case tokPlaceholder, tokNumber:
		return t.text, nil
	case tokLParen:
		inner, err := p.comparison()
		if err != nil {
			return "", err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return "", err
		}
		return inner, nil
	case tokFunc:
		if err := p.expect(tokLParen, "("); err != nil {
			return "", err
		}
		var args []string
		for {
			arg, err := p.comparison()
			if err != nil {
				return "", err
			}
			args = append(args, arg)
			if next, ok := p.peek(); ok && next.kind == tokComma {
				p.pos++
				continue
			}
			break
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return "", err
		}
		return "fn_" + t.text + "(" + strings.Join(args, ", ") + ")", nil
	}
	return "", fmt.Errorf("unexpected %q", t.text)
}

func (p *parser) expect(kind tokenKind, text string) error {
	t, ok := p.peek()
	if !ok {
		return fmt.Errorf("expected %q, got end of expression", text)
	}
	if t.kind != kind {
		return fmt.Errorf("expected %q, got %q", text, t.text)
	}
	p.pos++
	return nil
}

func evaluatorOp(op string) string {
	switch op {
	case "&":
		return "&&"
	case "|":
		return "||"
	case "~":
		return "!"
	}
	return op
}
