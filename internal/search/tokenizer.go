package search

import (
	"strings"

	interrors "github.com/trellis-notes/trellis/internal/errors"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func isOperatorChar(c byte) bool {
	switch c {
	case '*', '=', '!', '<', '>', '%', '~':
		return true
	}
	return false
}

func isWordChar(c byte) bool {
	return c != ' ' && c != '\t' && c != '\n' && c != '(' && c != ')' &&
		c != '"' && c != '\'' && !isOperatorChar(c) && c != '#'
}

// tokenize splits a query string into word, quoted, operator and paren
// tokens. Operator characters are read positionally: "~" after an operand
// begins an operator ("~=", "~*"), while "~" at term position begins a
// relation name.
func tokenize(query string) ([]token, error) {
	var tokens []token
	prevOperand := false

	push := func(kind tokenKind, text string) {
		tokens = append(tokens, token{kind: kind, text: text})
		prevOperand = kind == tokWord || kind == tokQuoted || kind == tokRParen
	}

	pos := 0
	for pos < len(query) {
		c := query[pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			pos++

		case c == '(':
			push(tokLParen, "(")
			pos++

		case c == ')':
			push(tokRParen, ")")
			pos++

		case c == '"' || c == '\'':
			quote := c
			end := pos + 1
			for end < len(query) && query[end] != quote {
				end++
			}
			if end == len(query) {
				return nil, interrors.NewParseError(query[pos:], "unterminated string literal")
			}
			push(tokQuoted, query[pos+1:end])
			pos = end + 1

		case c == '#' || (c == '~' && !prevOperand):
			// Attribute term: prefix, optional wildcard, then the name
			// (dotted for relation chains).
			start := pos
			pos++
			if pos < len(query) && query[pos] == '*' {
				pos++
			} else {
				for pos < len(query) && isWordChar(query[pos]) {
					pos++
				}
			}
			if pos == start+1 {
				return nil, interrors.NewParseError(query[start:], "expected attribute name after %q", string(c))
			}
			push(tokWord, query[start:pos])

		case isOperatorChar(c):
			start := pos
			for pos < len(query) && isOperatorChar(query[pos]) {
				pos++
			}
			push(tokOp, query[start:pos])

		default:
			start := pos
			for pos < len(query) && isWordChar(query[pos]) {
				pos++
			}
			push(tokWord, query[start:pos])
		}
	}

	return tokens, nil
}

// fragmentAround renders a few tokens for parse error messages.
func fragmentAround(tokens []token, pos int) string {
	start := pos - 1
	if start < 0 {
		start = 0
	}
	end := pos + 2
	if end > len(tokens) {
		end = len(tokens)
	}
	parts := make([]string, 0, end-start)
	for _, t := range tokens[start:end] {
		parts = append(parts, t.text)
	}
	return strings.Join(parts, " ")
}
