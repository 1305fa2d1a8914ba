package tellustest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// The band-math grammar, smallest to largest binding power:
//
//	expr    := cmp
//	cmp     := sum (("<" | "<=" | ">" | ">=" | "==" | "!=") sum)?
//	sum     := prod (("+" | "-") prod)*
//	prod    := pow (("*" | "/") pow)*
//	pow     := unary ("**" pow)?          right associative
//	unary   := "-" unary | primary
//	primary := number | ident | ident "(" args ")" | "(" expr ")"
//
// Identifiers resolve to expression variables; call syntax is reserved for
// the built-in functions sqrt, log, exp, abs, pow, min and max.

type exprNode interface {
	eval(vars map[string]float64) (float64, error)
}

type numNode float64

func (n numNode) eval(map[string]float64) (float64, error) { return float64(n), nil }

type varNode string

func (n varNode) eval(vars map[string]float64) (float64, error) {
	v, ok := vars[string(n)]
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", string(n))
	}
	return v, nil
}

type unaryNode struct {
	op   string
	expr exprNode
}

func (n unaryNode) eval(vars map[string]float64) (float64, error) {
	v, err := n.expr.eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "-":
		return -v, nil
	}
	return 0, fmt.Errorf("unknown unary operator %q", n.op)
}

type binaryNode struct {
	op          string
	left, right exprNode
}

func (n binaryNode) eval(vars map[string]float64) (float64, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		return l / r, nil
	case "**":
		return math.Pow(l, r), nil
	case "<":
		return b2f(l < r), nil
	case "<=":
		return b2f(l <= r), nil
	case ">":
		return b2f(l > r), nil
	case ">=":
		return b2f(l >= r), nil
	case "==":
		return b2f(l == r), nil
	case "!=":
		return b2f(l != r), nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

type callNode struct {
	fn   string
	args []exprNode
}

func (n callNode) eval(vars map[string]float64) (float64, error) {
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(vars)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	need := func(k int) error {
		if len(args) != k {
			return fmt.Errorf("%s takes %d arguments, got %d", n.fn, k, len(args))
		}
		return nil
	}
	switch n.fn {
	case "sqrt":
		return math.Sqrt(args[0]), need(1)
	case "log":
		return math.Log(args[0]), need(1)
	case "exp":
		return math.Exp(args[0]), need(1)
	case "abs":
		return math.Abs(args[0]), need(1)
	case "pow":
		if err := need(2); err != nil {
			return 0, err
		}
		return math.Pow(args[0], args[1]), nil
	case "min":
		if err := need(2); err != nil {
			return 0, err
		}
		return math.Min(args[0], args[1]), nil
	case "max":
		if err := need(2); err != nil {
			return 0, err
		}
		return math.Max(args[0], args[1]), nil
	}
	return 0, fmt.Errorf("unknown function %q", n.fn)
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

type token struct {
	kind string // "num", "ident", "op", "(", ")", ","
	text string
	num  float64
}

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.' ||
				src[j] == 'e' || src[j] == 'E' ||
				((src[j] == '+' || src[j] == '-') && j > i && (src[j-1] == 'e' || src[j-1] == 'E'))) {
				j++
			}
			v, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", src[i:j])
			}
			toks = append(toks, token{kind: "num", num: v})
			i = j
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: "ident", text: src[i:j]})
			i = j
		case c == '(' || c == ')' || c == ',':
			toks = append(toks, token{kind: string(c)})
			i++
		case strings.ContainsRune("+-*/<>=!", rune(c)):
			j := i + 1
			for j < len(src) && strings.ContainsRune("*=", rune(src[j])) && j-i < 2 {
				j++
			}
			op := src[i:j]
			switch op {
			case "+", "-", "*", "/", "**", "<", "<=", ">", ">=", "==", "!=":
				toks = append(toks, token{kind: "op", text: op})
			default:
				return nil, fmt.Errorf("bad operator %q", op)
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", string(c))
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

// parseExpression compiles a band-math formula.
func parseExpression(src string) (exprNode, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", src, err)
	}
	p := &parser{toks: toks}
	node, err := p.parseCmp()
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", src, err)
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("parsing %q: trailing tokens", src)
	}
	return node, nil
}

func (p *parser) peek() *token {
	if p.pos < len(p.toks) {
		return &p.toks[p.pos]
	}
	return nil
}

func (p *parser) takeOp(ops ...string) (string, bool) {
	t := p.peek()
	if t == nil || t.kind != "op" {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseCmp() (exprNode, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if op, ok := p.takeOp("<", "<=", ">", ">=", "==", "!="); ok {
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: op, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseSum() (exprNode, error) {
	left, err := p.parseProd()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.takeOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseProd()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseProd() (exprNode, error) {
	left, err := p.parsePow()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.takeOp("*", "/")
		if !ok {
			return left, nil
		}
		right, err := p.parsePow()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parsePow() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.takeOp("**"); ok {
		right, err := p.parsePow()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: "**", left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (exprNode, error) {
	if _, ok := p.takeOp("-"); ok {
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "-", expr: expr}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (exprNode, error) {
	t := p.peek()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	switch t.kind {
	case "num":
		p.pos++
		return numNode(t.num), nil
	case "ident":
		p.pos++
		name := t.text
		if next := p.peek(); next != nil && next.kind == "(" {
			p.pos++
			var args []exprNode
			for {
				if t := p.peek(); t != nil && t.kind == ")" && len(args) == 0 {
					break
				}
				arg, err := p.parseCmp()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if t := p.peek(); t != nil && t.kind == "," {
					p.pos++
					continue
				}
				break
			}
			if t := p.peek(); t == nil || t.kind != ")" {
				return nil, fmt.Errorf("missing ) after %s(", name)
			}
			p.pos++
			return callNode{fn: name, args: args}, nil
		}
		return varNode(name), nil
	case "(":
		p.pos++
		expr, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		if t := p.peek(); t == nil || t.kind != ")" {
			return nil, fmt.Errorf("missing )")
		}
		p.pos++
		return expr, nil
	}
	return nil, fmt.Errorf("unexpected token %q", t.text)
}
