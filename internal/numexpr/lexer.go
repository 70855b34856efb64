package numexpr

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokSpace tokenKind = iota
	tokPlaceholder
	tokFunc
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	// index is the placeholder number for tokPlaceholder.
	index int
}

// Functions callable from expression text. Each maps to an evaluator
// function registered under the "fn_" prefix.
var functions = map[string]bool{
	"abs":   true,
	"sqrt":  true,
	"log":   true,
	"exp":   true,
	"isnan": true,
}

// lex splits expression text into tokens. Whitespace is kept so that text can
// be reassembled unchanged apart from rewritten tokens.
func lex(text string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			j := i
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n') {
				j++
			}
			toks = append(toks, token{kind: tokSpace, text: text[i:j]})
			i = j

		case isIdentStart(c):
			j := i
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			word := text[i:j]
			if n, ok := placeholderIndex(word); ok {
				toks = append(toks, token{kind: tokPlaceholder, text: word, index: n})
			} else if functions[word] {
				toks = append(toks, token{kind: tokFunc, text: word})
			} else {
				return nil, fmt.Errorf("unknown name %q at offset %d", word, i)
			}
			i = j

		case isDigit(c) || (c == '.' && i+1 < len(text) && isDigit(text[i+1])):
			j := i
			for j < len(text) && (isDigit(text[j]) || text[j] == '.') {
				j++
			}
			if j < len(text) && (text[j] == 'e' || text[j] == 'E') {
				j++
				if j < len(text) && (text[j] == '+' || text[j] == '-') {
					j++
				}
				for j < len(text) && isDigit(text[j]) {
					j++
				}
			}
			num := text[i:j]
			if _, err := strconv.ParseFloat(num, 64); err != nil {
				return nil, fmt.Errorf("bad number %q at offset %d", num, i)
			}
			toks = append(toks, token{kind: tokNumber, text: num})
			i = j

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ","})
			i++

		default:
			op := matchOp(text[i:])
			if op == "" {
				return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
			}
			toks = append(toks, token{kind: tokOp, text: op})
			i += len(op)
		}
	}
	return toks, nil
}

// Longest operators first.
var opSpellings = []string{"**", "<=", ">=", "==", "!=", "&", "|", "~", "+", "-", "*", "/", "%", "<", ">"}

func matchOp(s string) string {
	for _, op := range opSpellings {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func placeholderIndex(word string) (int, bool) {
	digits, ok := strings.CutPrefix(word, "x_")
	if !ok || digits == "" {
		return 0, false
	}
	if len(digits) > 1 && digits[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if !isDigit(digits[i]) {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }

// Placeholder returns the text of placeholder i.
func Placeholder(i int) string {
	return "x_" + strconv.Itoa(i)
}

// rewrite reassembles toks, replacing each token's text with fn's result.
func rewrite(toks []token, fn func(token) string) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(fn(t))
	}
	return b.String()
}

// placeholders returns the distinct placeholder indices in toks, in order of
// first appearance.
func placeholders(toks []token) []int {
	seen := map[int]bool{}
	var out []int
	for _, t := range toks {
		if t.kind == tokPlaceholder && !seen[t.index] {
			seen[t.index] = true
			out = append(out, t.index)
		}
	}
	return out
}
