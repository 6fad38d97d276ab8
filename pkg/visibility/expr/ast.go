package expr

import "strings"

// Node is a parsed expression. Evaluating a Node never fails: unresolvable
// references produce nil and malformed operands degrade to raw strings.
type Node interface {
	// Eval computes the node value against ctx.
	Eval(ctx map[string]any) any
	// Refs lists every `$` path the node reads, in source order.
	Refs() []string
}

// Operator identifies a comparison.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
)

// comparisonOrder is the scan order used when splitting on an operator. The
// two-character forms come first so `a >= 1` never splits on `>`.
var comparisonOrder = []Operator{
	OpEqual,
	OpNotEqual,
	OpGreaterEqual,
	OpLessEqual,
	OpGreater,
	OpLess,
}

// And is the conjunction of every operand.
type And struct {
	Operands []Node
}

func (n And) Eval(ctx map[string]any) any {
	for _, operand := range n.Operands {
		if !Truthy(operand.Eval(ctx)) {
			return false
		}
	}
	return true
}

func (n And) Refs() []string { return collectRefs(n.Operands) }

// Or is the disjunction of every operand.
type Or struct {
	Operands []Node
}

func (n Or) Eval(ctx map[string]any) any {
	for _, operand := range n.Operands {
		if Truthy(operand.Eval(ctx)) {
			return true
		}
	}
	return false
}

func (n Or) Refs() []string { return collectRefs(n.Operands) }

// Compare applies a single comparison operator to two operands.
type Compare struct {
	Op    Operator
	Left  Node
	Right Node
}

func (n Compare) Eval(ctx map[string]any) any {
	left := n.Left.Eval(ctx)
	right := n.Right.Eval(ctx)
	switch n.Op {
	case OpEqual:
		return LooseEqual(left, right)
	case OpNotEqual:
		return !LooseEqual(left, right)
	}

	l, lok := ToNumber(left)
	r, rok := ToNumber(right)
	if !lok || !rok {
		return false
	}
	switch n.Op {
	case OpGreaterEqual:
		return l >= r
	case OpLessEqual:
		return l <= r
	case OpGreater:
		return l > r
	case OpLess:
		return l < r
	default:
		return false
	}
}

func (n Compare) Refs() []string { return collectRefs([]Node{n.Left, n.Right}) }

// Ref reads a dot path from the evaluation context.
type Ref struct {
	Path string
}

func (n Ref) Eval(ctx map[string]any) any { return Lookup(ctx, n.Path) }

func (n Ref) Refs() []string {
	if n.Path == "" {
		return nil
	}
	return []string{n.Path}
}

// Literal is a constant string, number, boolean or nil.
type Literal struct {
	Value any
}

func (n Literal) Eval(map[string]any) any { return n.Value }

func (Literal) Refs() []string { return nil }

// Raw is a top-level token that matched no other form. It evaluates to its
// own text.
type Raw struct {
	Text string
}

func (n Raw) Eval(map[string]any) any { return n.Text }

// Refs reports a bare `formValues.<path>` leaf. It still evaluates as text.
func (n Raw) Refs() []string {
	path, ok := strings.CutPrefix(n.Text, valuesKey+".")
	if !ok || path == "" || strings.ContainsAny(path, " '\"()") {
		return nil
	}
	return []string{n.Text}
}

// Parse turns an expression into a Node. Parsing always succeeds.
//
// The expression is split on `&&` first, then `||`, then on the first
// comparison operator found; whatever remains is a single operand.
func Parse(expression string) Node {
	text := strings.TrimSpace(expression)
	if text == "" {
		return Literal{}
	}

	if strings.Contains(text, "&&") {
		return And{Operands: parseParts(text, "&&")}
	}
	if strings.Contains(text, "||") {
		return Or{Operands: parseParts(text, "||")}
	}

	for _, op := range comparisonOrder {
		idx := strings.Index(text, string(op))
		if idx < 0 {
			continue
		}
		return Compare{
			Op:    op,
			Left:  parseOperand(text[:idx]),
			Right: parseOperand(text[idx+len(op):]),
		}
	}

	return parseLeaf(text)
}

func parseParts(text, sep string) []Node {
	parts := strings.Split(text, sep)
	nodes := make([]Node, 0, len(parts))
	for _, part := range parts {
		nodes = append(nodes, Parse(part))
	}
	return nodes
}

// parseOperand handles one side of a comparison. Anything that is not a
// literal is a path; the `$` marker is optional here.
func parseOperand(raw string) Node {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Literal{}
	}
	if lit, ok := parseLiteral(text); ok {
		return lit
	}
	return Ref{Path: strings.TrimPrefix(text, "$")}
}

func parseLeaf(text string) Node {
	if strings.HasPrefix(text, "$") {
		return Ref{Path: text[1:]}
	}
	if lit, ok := parseLiteral(text); ok {
		return lit
	}
	return Raw{Text: text}
}

func parseLiteral(text string) (Literal, bool) {
	if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
		return Literal{Value: text[1 : len(text)-1]}, true
	}
	if n, ok := parseNumber(text); ok {
		return Literal{Value: n}, true
	}
	switch text {
	case "true":
		return Literal{Value: true}, true
	case "false":
		return Literal{Value: false}, true
	case "null", "undefined":
		return Literal{}, true
	}
	return Literal{}, false
}

func collectRefs(nodes []Node) []string {
	var out []string
	for _, node := range nodes {
		if node == nil {
			continue
		}
		out = append(out, node.Refs()...)
	}
	return out
}
