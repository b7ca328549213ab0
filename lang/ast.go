package lang

import "fmt"

// Node is the tagged union of syntax-tree variants (spec.md §3). There are
// exactly seven cases; a type switch on Node is exhaustive over them.
type Node interface {
	node()
	fmt.Stringer
}

// LiteralKind distinguishes the six literal forms a Param value may take.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralString
	LiteralBool
	LiteralTriple
	LiteralSymbol // bare identifier, forwarded verbatim to the transform
)

// Literal is a parameter value: an integer, real, string, boolean, an
// [R,G,B]-style numeric triple, or a bare symbolic identifier.
type Literal struct {
	Kind    LiteralKind
	Int     int64
	Float   float64
	Str     string
	Bool    bool
	Triple  []float64
	Symbol  string
	Line    int
	Column  int
}

func (l Literal) String() string {
	switch l.Kind {
	case LiteralInt:
		return fmt.Sprintf("%d", l.Int)
	case LiteralFloat:
		return fmt.Sprintf("%g", l.Float)
	case LiteralString:
		return fmt.Sprintf("%q", l.Str)
	case LiteralBool:
		return fmt.Sprintf("%t", l.Bool)
	case LiteralTriple:
		return fmt.Sprintf("%v", l.Triple)
	case LiteralSymbol:
		return l.Symbol
	default:
		return "<invalid literal>"
	}
}

// Call references a registered function or a previously defined pipeline by
// name, with an optional set of keyword parameters.
type Call struct {
	Name   string
	Params map[string]Literal
	Line   int
	Column int
}

func (*Call) node() {}
func (c *Call) String() string {
	if len(c.Params) == 0 {
		return c.Name
	}
	return fmt.Sprintf("%s with(...)", c.Name)
}

// Seq is sequential composition: the output of Left feeds the input of
// Right. Async records which operator produced it ("->" vs "~>"); the core
// treats both as sequential composition and differs only in the default
// edge capacity the compiler assigns (spec.md §4.P, §9).
type Seq struct {
	Left  Node
	Right Node
	Async bool
}

func (*Seq) node() {}
func (s *Seq) String() string {
	op := "->"
	if s.Async {
		op = "~>"
	}
	return fmt.Sprintf("(%s %s %s)", s.Left, op, s.Right)
}

// Par is parallel fan-out with an implicit merge at whatever consumes it.
// Branches has at least two elements.
type Par struct {
	Branches []Node
}

func (*Par) node() {}
func (p *Par) String() string {
	s := "("
	for i, b := range p.Branches {
		if i > 0 {
			s += " | "
		}
		s += b.String()
	}
	return s + ")"
}

// Timed bounds Inner to a wall-clock duration of Seconds.
type Timed struct {
	Inner   Node
	Seconds float64
}

func (*Timed) node() {}
func (t *Timed) String() string { return fmt.Sprintf("%s @%gs", t.Inner, t.Seconds) }

// Group is parenthesization, kept through parsing for position info but
// transparent to the compiler.
type Group struct {
	Inner Node
}

func (*Group) node() {}
func (g *Group) String() string { return fmt.Sprintf("(%s)", g.Inner) }

// Def is a top-level binding of Name to Body for later reference.
type Def struct {
	Name string
	Body Node
	Line int
}

func (*Def) node() {}
func (d *Def) String() string { return fmt.Sprintf("pipeline %s = %s", d.Name, d.Body) }

// Program is zero or more definitions plus an optional terminal expression.
type Program struct {
	Definitions []*Def
	Expression  Node // nil if the program ends with a definition
}

func (*Program) node() {}
func (p *Program) String() string {
	s := ""
	for _, d := range p.Definitions {
		s += d.String() + "\n"
	}
	if p.Expression != nil {
		s += p.Expression.String()
	}
	return s
}
