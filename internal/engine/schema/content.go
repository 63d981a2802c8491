package schema

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// exprKind identifies a node in a parsed content expression.
type exprKind uint8

const (
	exprName exprKind = iota
	exprSeq
	exprChoice
	exprStar
	exprPlus
	exprOpt
	exprRange
)

// expr is a parsed content expression.
type expr struct {
	kind  exprKind
	name  string
	exprs []*expr
	min   int
	max   int // -1 for unbounded
}

// contentParser turns a content expression string into an expr tree.
type contentParser struct {
	src    string
	tokens []string
	pos    int
}

func tokenizeContent(src string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch {
		case unicode.IsSpace(r):
			flush()
		case strings.ContainsRune("()|+*?{},", r):
			flush()
			tokens = append(tokens, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func parseContent(src string) (*expr, error) {
	p := &contentParser{src: src, tokens: tokenizeContent(src)}
	if len(p.tokens) == 0 {
		return nil, nil
	}
	e, err := p.parseChoice()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, p.errorf("unexpected token %q", p.tokens[p.pos])
	}
	return e, nil
}

func (p *contentParser) errorf(format string, args ...any) error {
	return fmt.Errorf("content expression %q: %s", p.src, fmt.Sprintf(format, args...))
}

func (p *contentParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *contentParser) eat(tok string) bool {
	if p.peek() == tok {
		p.pos++
		return true
	}
	return false
}

func (p *contentParser) parseChoice() (*expr, error) {
	first, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	exprs := []*expr{first}
	for p.eat("|") {
		next, err := p.parseSeq()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
	}
	if len(exprs) == 1 {
		return first, nil
	}
	return &expr{kind: exprChoice, exprs: exprs}, nil
}

func (p *contentParser) parseSeq() (*expr, error) {
	var exprs []*expr
	for p.pos < len(p.tokens) && p.peek() != ")" && p.peek() != "|" {
		e, err := p.parseSubscript()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) == 0 {
		return nil, p.errorf("empty sequence")
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &expr{kind: exprSeq, exprs: exprs}, nil
}

func (p *contentParser) parseSubscript() (*expr, error) {
	e, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.eat("+"):
			e = &expr{kind: exprPlus, exprs: []*expr{e}}
		case p.eat("*"):
			e = &expr{kind: exprStar, exprs: []*expr{e}}
		case p.eat("?"):
			e = &expr{kind: exprOpt, exprs: []*expr{e}}
		case p.eat("{"):
			e, err = p.parseRange(e)
			if err != nil {
				return nil, err
			}
		default:
			return e, nil
		}
	}
}

func (p *contentParser) parseNum() (int, error) {
	tok := p.peek()
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0, p.errorf("expected number, got %q", tok)
	}
	p.pos++
	return n, nil
}

func (p *contentParser) parseRange(e *expr) (*expr, error) {
	min, err := p.parseNum()
	if err != nil {
		return nil, err
	}
	max := min
	if p.eat(",") {
		if p.peek() != "}" {
			max, err = p.parseNum()
			if err != nil {
				return nil, err
			}
		} else {
			max = -1
		}
	}
	if !p.eat("}") {
		return nil, p.errorf("unclosed range")
	}
	if max != -1 && max < min {
		return nil, p.errorf("range maximum %d below minimum %d", max, min)
	}
	return &expr{kind: exprRange, exprs: []*expr{e}, min: min, max: max}, nil
}

func (p *contentParser) parseAtom() (*expr, error) {
	if p.eat("(") {
		e, err := p.parseChoice()
		if err != nil {
			return nil, err
		}
		if !p.eat(")") {
			return nil, p.errorf("missing closing parenthesis")
		}
		return e, nil
	}
	tok := p.peek()
	if tok == "" || strings.ContainsAny(tok, "()|+*?{},") {
		return nil, p.errorf("unexpected token %q", tok)
	}
	p.pos++
	return &expr{kind: exprName, name: tok}, nil
}

// names returns every term referenced by the expression.
func (e *expr) names(out []string) []string {
	if e == nil {
		return out
	}
	if e.kind == exprName {
		return append(out, e.name)
	}
	for _, sub := range e.exprs {
		out = sub.names(out)
	}
	return out
}

// edge is an automaton transition. An empty term is an epsilon move.
type edge struct {
	term string
	to   int
}

// automaton is the compiled form of a content expression.
type automaton struct {
	edges    [][]*edge
	accept   int
	closures [][]int
}

type nfaBuilder struct {
	edges [][]*edge
}

func (b *nfaBuilder) node() int {
	b.edges = append(b.edges, nil)
	return len(b.edges) - 1
}

func (b *nfaBuilder) edge(from, to int, term string) *edge {
	e := &edge{term: term, to: to}
	b.edges[from] = append(b.edges[from], e)
	return e
}

func connect(dangling []*edge, to int) {
	for _, e := range dangling {
		e.to = to
	}
}

func (b *nfaBuilder) compile(e *expr, from int) []*edge {
	switch e.kind {
	case exprName:
		return []*edge{b.edge(from, -1, e.name)}
	case exprChoice:
		var out []*edge
		for _, sub := range e.exprs {
			out = append(out, b.compile(sub, from)...)
		}
		return out
	case exprSeq:
		for i, sub := range e.exprs {
			next := b.compile(sub, from)
			if i == len(e.exprs)-1 {
				return next
			}
			from = b.node()
			connect(next, from)
		}
		return []*edge{b.edge(from, -1, "")}
	case exprStar:
		loop := b.node()
		b.edge(from, loop, "")
		connect(b.compile(e.exprs[0], loop), loop)
		return []*edge{b.edge(loop, -1, "")}
	case exprPlus:
		loop := b.node()
		connect(b.compile(e.exprs[0], from), loop)
		connect(b.compile(e.exprs[0], loop), loop)
		return []*edge{b.edge(loop, -1, "")}
	case exprOpt:
		return append([]*edge{b.edge(from, -1, "")}, b.compile(e.exprs[0], from)...)
	case exprRange:
		cur := from
		for i := 0; i < e.min; i++ {
			next := b.node()
			connect(b.compile(e.exprs[0], cur), next)
			cur = next
		}
		if e.max == -1 {
			connect(b.compile(e.exprs[0], cur), cur)
		} else {
			for i := e.min; i < e.max; i++ {
				next := b.node()
				b.edge(cur, next, "")
				connect(b.compile(e.exprs[0], cur), next)
				cur = next
			}
		}
		return []*edge{b.edge(cur, -1, "")}
	}
	return nil
}

func compileContent(e *expr) *automaton {
	b := &nfaBuilder{}
	start := b.node()
	dangling := b.compile(e, start)
	accept := b.node()
	connect(dangling, accept)

	a := &automaton{edges: b.edges, accept: accept}
	a.closures = make([][]int, len(b.edges))
	for s := range b.edges {
		a.closures[s] = a.closure(s)
	}
	return a
}

func (a *automaton) closure(state int) []int {
	seen := map[int]bool{state: true}
	stack := []int{state}
	out := []int{state}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range a.edges[s] {
			if e.term == "" && !seen[e.to] {
				seen[e.to] = true
				stack = append(stack, e.to)
				out = append(out, e.to)
			}
		}
	}
	return out
}

// stateSet is a set of automaton states.
type stateSet map[int]struct{}

func (a *automaton) start() stateSet {
	set := stateSet{}
	for _, s := range a.closures[0] {
		set[s] = struct{}{}
	}
	return set
}

func (a *automaton) step(set stateSet, t *NodeType) stateSet {
	next := stateSet{}
	for s := range set {
		for _, e := range a.edges[s] {
			if e.term != "" && t.matchesTerm(e.term) {
				for _, c := range a.closures[e.to] {
					next[c] = struct{}{}
				}
			}
		}
	}
	return next
}

func (a *automaton) accepts(set stateSet) bool {
	_, ok := set[a.accept]
	return ok
}

// match reports whether the type sequence is accepted.
func (a *automaton) match(types []*NodeType) bool {
	set := a.start()
	for _, t := range types {
		set = a.step(set, t)
		if len(set) == 0 {
			return false
		}
	}
	return a.accepts(set)
}

// key renders a state set as a stable map key.
func (set stateSet) key() string {
	ids := make([]int, 0, len(set))
	for s := range set {
		ids = append(ids, s)
	}
	// insertion sort; sets are tiny
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(strconv.Itoa(id))
		sb.WriteByte(',')
	}
	return sb.String()
}
