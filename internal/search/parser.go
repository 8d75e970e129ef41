package search

import (
	"strings"
	"time"

	interrors "github.com/trellis-notes/trellis/internal/errors"
)

// parser is a recursive descent parser over the token stream:
//
//	expr    := orExpr
//	orExpr  := andExpr (OR andExpr)*
//	andExpr := unary ((AND)? unary)*        adjacency is implicit AND
//	unary   := NOT unary | '(' expr ')' | term
//	term    := '#name' [op value]
//	         | '~name' ['.' property] [op value]
//	         | 'note.property' op value
//	         | word | quoted                full-text leaf
type parser struct {
	tokens []token
	pos    int
	now    time.Time
}

// Parse builds the immutable expression tree for a query string. Malformed
// queries fail here with a ParseError; evaluation itself never raises.
func Parse(query string) (*Node, error) {
	return parseAt(query, time.Now())
}

// parseAt pins the clock for date keyword resolution.
func parseAt(query string, now time.Time) (*Node, error) {
	tokens, err := tokenize(query)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return &Node{Kind: NodeTrue}, nil
	}

	p := &parser{tokens: tokens, now: now}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, interrors.NewParseError(fragmentAround(p.tokens, p.pos), "unexpected token %q", p.tokens[p.pos].text)
	}
	return node, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func isKeyword(tok token, keyword string) bool {
	return tok.kind == tokWord && strings.EqualFold(tok.text, keyword)
}

func (p *parser) parseOr() (*Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	children := []*Node{left}
	for {
		tok, ok := p.peek()
		if !ok || !isKeyword(tok, "OR") {
			break
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}

	if len(children) == 1 {
		return left, nil
	}
	return &Node{Kind: NodeOr, Children: children}, nil
}

func (p *parser) parseAnd() (*Node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	children := []*Node{first}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind == tokRParen || isKeyword(tok, "OR") {
			break
		}
		if isKeyword(tok, "AND") {
			p.pos++
			if _, ok := p.peek(); !ok {
				return nil, interrors.NewParseError(fragmentAround(p.tokens, p.pos-1), "expected expression after AND")
			}
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	if len(children) == 1 {
		return first, nil
	}
	return &Node{Kind: NodeAnd, Children: children}, nil
}

func (p *parser) parseUnary() (*Node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, interrors.NewParseError("", "unexpected end of query")
	}

	if isKeyword(tok, "NOT") {
		p.pos++
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeNot, Children: []*Node{child}}, nil
	}

	if tok.kind == tokLParen {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok || closing.kind != tokRParen {
			return nil, interrors.NewParseError(fragmentAround(p.tokens, p.pos-1), "expected closing parenthesis")
		}
		return inner, nil
	}

	return p.parseTerm()
}

func (p *parser) parseTerm() (*Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, interrors.NewParseError("", "unexpected end of query")
	}

	switch {
	case tok.kind == tokQuoted:
		return &Node{Kind: NodeFullText, Op: OpEqual, Value: tok.text}, nil

	case tok.kind == tokOp:
		return nil, interrors.NewParseError(fragmentAround(p.tokens, p.pos-1), "unexpected operator %q", tok.text)

	case tok.kind == tokRParen:
		return nil, interrors.NewParseError(fragmentAround(p.tokens, p.pos-1), "unexpected closing parenthesis")

	case strings.HasPrefix(tok.text, "#"):
		return p.parseAttributeTerm(NodeLabel, tok.text[1:])

	case strings.HasPrefix(tok.text, "~"):
		return p.parseAttributeTerm(NodeRelation, tok.text[1:])

	case strings.HasPrefix(strings.ToLower(tok.text), "note."):
		name := tok.text[len("note."):]
		if name == "" {
			return nil, interrors.NewParseError(tok.text, "expected property name after note.")
		}
		op, value, isDate, hasOp, err := p.parseOperatorValue()
		if err != nil {
			return nil, err
		}
		if !hasOp {
			return nil, interrors.NewParseError(tok.text, "property term requires an operator")
		}
		return &Node{Kind: NodeProperty, Name: name, Op: op, Value: value, ValueIsDate: isDate}, nil

	default:
		return &Node{Kind: NodeFullText, Op: OpEqual, Value: tok.text}, nil
	}
}

// parseAttributeTerm handles "#name", "#name op value", "~name",
// "~name.property op value". A relation name may chain one hop through a
// dotted property of its target note.
func (p *parser) parseAttributeTerm(kind NodeKind, name string) (*Node, error) {
	if name == "" {
		return nil, interrors.NewParseError(fragmentAround(p.tokens, p.pos-1), "empty attribute name")
	}

	node := &Node{Kind: kind, Name: name, Op: OpExists}

	if kind == NodeRelation && name != WildcardName {
		if idx := strings.IndexByte(name, '.'); idx >= 0 {
			node.Name = name[:idx]
			node.TargetProp = name[idx+1:]
			if node.Name == "" || node.TargetProp == "" {
				return nil, interrors.NewParseError("~"+name, "malformed relation chain")
			}
		}
	}

	op, value, isDate, hasOp, err := p.parseOperatorValue()
	if err != nil {
		return nil, err
	}
	if hasOp {
		node.Op = op
		node.Value = value
		node.ValueIsDate = isDate
	} else if node.TargetProp != "" {
		return nil, interrors.NewParseError("~"+name, "relation chain requires an operator")
	}
	return node, nil
}

// parseOperatorValue consumes an optional trailing "op value" pair.
func (p *parser) parseOperatorValue() (op Operator, value string, isDate, hasOp bool, err error) {
	tok, ok := p.peek()
	if !ok || tok.kind != tokOp {
		return 0, "", false, false, nil
	}

	op, known := operatorTokens[tok.text]
	if !known {
		return 0, "", false, false, interrors.NewParseError(fragmentAround(p.tokens, p.pos), "unknown operator %q", tok.text)
	}
	p.pos++

	valTok, ok := p.next()
	if !ok || (valTok.kind != tokWord && valTok.kind != tokQuoted) {
		return 0, "", false, false, interrors.NewParseError(fragmentAround(p.tokens, p.pos-1), "expected value after operator %q", tok.text)
	}

	value = valTok.text
	if valTok.kind == tokWord {
		if resolved, ok := resolveDateKeyword(value, p.now); ok {
			return op, resolved, true, true, nil
		}
	}
	return op, value, false, true, nil
}
