// Package parser turns query text in the bracketed prefix operator language
// into a qryop tree, e.g. "#and(#near/2(heart rate) 0.7 pulse.title)".
package parser

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/qryop"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

type opKind int

const (
	opRoot opKind = iota
	opAnd
	opOr
	opSum
	opWSum
	opWAnd
	opSyn
	opNear
	opWindow
)

var keywords = map[string]opKind{
	"#and":    opAnd,
	"#or":     opOr,
	"#sum":    opSum,
	"#wsum":   opWSum,
	"#wand":   opWAnd,
	"#syn":    opSyn,
	"#near":   opNear,
	"#window": opWindow,
}

func (k opKind) listOnly() bool {
	return k == opSyn || k == opNear || k == opWindow
}

func (k opKind) weighted() bool {
	return k == opWSum || k == opWAnd
}

// Parser is safe for concurrent use; every Parse call builds a new tree.
type Parser struct {
	Model    retrieval.Model
	Analyzer tokenizer.Analyzer
}

func New(model retrieval.Model, analyzer tokenizer.Analyzer) *Parser {
	if analyzer == nil {
		analyzer = tokenizer.English{}
	}
	return &Parser{Model: model, Analyzer: analyzer}
}

type token struct {
	text  string
	index int
}

type item struct {
	op     qryop.Operator
	weight float64
	tok    token
}

// frame is an operator whose closing parenthesis has not been seen yet.
type frame struct {
	kind   opKind
	bound  int
	tok    token
	weight float64
	args   []item

	hasPending bool
	pending    float64
}

func (f *frame) takeWeight() float64 {
	if !f.hasPending {
		return 1.0
	}
	f.hasPending = false
	return f.pending
}

// Parse builds the operator tree for query. Terms are run through the
// analyzer; terms it removes entirely are dropped. A query whose terms were
// all dropped still parses: evaluating it reports an empty operand.
func (p *Parser) Parse(query string) (qryop.ScoreOperator, error) {
	tokens := lex(query)
	root := &frame{kind: opRoot}
	stack := []*frame{root}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		top := stack[len(stack)-1]

		switch {
		case tok.text == "(":
			return nil, parseErr(tok, "unexpected opening parenthesis")

		case tok.text == ")":
			if top == root {
				return nil, parseErr(tok, "unbalanced closing parenthesis")
			}
			if top.hasPending {
				return nil, parseErr(tok, "weight %g has no argument", top.pending)
			}
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			if err := parent.attach(item{op: top.build(), weight: top.weight, tok: top.tok}); err != nil {
				return nil, err
			}

		case strings.HasPrefix(tok.text, "#"):
			kind, bound, err := parseKeyword(tok)
			if err != nil {
				return nil, err
			}
			if i+1 >= len(tokens) || tokens[i+1].text != "(" {
				return nil, parseErr(tok, "expected ( after operator")
			}
			i++
			stack = append(stack, &frame{kind: kind, bound: bound, tok: tok, weight: top.takeWeight()})

		default:
			if top.kind.weighted() && !top.hasPending {
				if w, ok := parseWeight(tok.text); ok {
					if w < 0 {
						return nil, parseErr(tok, "negative weight")
					}
					top.hasPending, top.pending = true, w
					continue
				}
			}
			if p.Model.Kind == retrieval.Indri && isFraction(tok.text) {
				return nil, parseErr(tok, "weight outside #wsum or #wand")
			}
			weight := top.takeWeight()
			term, ok := p.term(tok.text)
			if !ok {
				continue
			}
			if err := top.attach(item{op: term, weight: weight, tok: tok}); err != nil {
				return nil, err
			}
		}
	}

	if len(stack) > 1 {
		open := stack[len(stack)-1].tok
		return nil, parseErr(open, "missing closing parenthesis")
	}
	if root.hasPending {
		return nil, apperrors.NewParseError("", -1, "weight %g has no argument", root.pending)
	}
	return p.finish(root.args), nil
}

// finish resolves the top level: a lone score operator is the root, a lone
// proximity or synonym list is scored directly, and anything else goes
// under the model's default operator.
func (p *Parser) finish(args []item) qryop.ScoreOperator {
	if len(args) == 1 {
		switch op := args[0].op.(type) {
		case *qryop.Term:
		case qryop.ScoreOperator:
			return op
		case qryop.ListOperator:
			return qryop.NewScore(op)
		}
	}
	ops := make([]qryop.ScoreOperator, len(args))
	for i, a := range args {
		ops[i] = asScore(a.op)
	}
	return p.defaultOperator(ops)
}

func (p *Parser) defaultOperator(args []qryop.ScoreOperator) qryop.ScoreOperator {
	switch p.Model.DefaultOperator() {
	case "sum":
		return qryop.NewSum(args...)
	case "and":
		return qryop.NewAnd(args...)
	default:
		return qryop.NewOr(args...)
	}
}

// term analyzes one query word. A word written with qryop.ExactPrefix is
// already an index token and is used as is. An analyzed token that the
// analyzer would change again (a stem that stems further, a stem that is a
// stopword) is marked exact so the canonical form keeps it.
func (p *Parser) term(text string) (*qryop.Term, bool) {
	word, field := splitField(text)
	if exact, ok := strings.CutPrefix(word, qryop.ExactPrefix); ok {
		if exact == "" {
			return nil, false
		}
		t := qryop.NewTerm(exact, field)
		t.Exact = true
		return t, true
	}
	terms := p.Analyzer.Analyze(word)
	if len(terms) == 0 {
		return nil, false
	}
	t := qryop.NewTerm(terms[0], field)
	again := p.Analyzer.Analyze(t.Token)
	t.Exact = len(again) != 1 || again[0] != t.Token
	return t, true
}

func (f *frame) attach(it item) error {
	switch {
	case f.kind.listOnly():
		if _, ok := it.op.(qryop.ListOperator); !ok {
			return parseErr(it.tok, "%s accepts only terms and list operators", f.tok.text)
		}
	case f.kind != opRoot:
		it.op = asScore(it.op)
	}
	f.args = append(f.args, it)
	return nil
}

func (f *frame) build() qryop.Operator {
	switch f.kind {
	case opSyn:
		return qryop.NewSyn(f.lists()...)
	case opNear:
		return qryop.NewNear(f.bound, f.lists()...)
	case opWindow:
		return qryop.NewWindow(f.bound, f.lists()...)
	case opAnd:
		return qryop.NewAnd(f.scores()...)
	case opSum:
		return qryop.NewSum(f.scores()...)
	case opWSum:
		return qryop.NewWSum(f.weightedArgs()...)
	case opWAnd:
		return qryop.NewWAnd(f.weightedArgs()...)
	default:
		return qryop.NewOr(f.scores()...)
	}
}

func (f *frame) lists() []qryop.ListOperator {
	out := make([]qryop.ListOperator, len(f.args))
	for i, a := range f.args {
		out[i] = a.op.(qryop.ListOperator)
	}
	return out
}

func (f *frame) scores() []qryop.ScoreOperator {
	out := make([]qryop.ScoreOperator, len(f.args))
	for i, a := range f.args {
		out[i] = a.op.(qryop.ScoreOperator)
	}
	return out
}

func (f *frame) weightedArgs() []qryop.Weighted {
	out := make([]qryop.Weighted, len(f.args))
	for i, a := range f.args {
		out[i] = qryop.Weighted{Op: a.op.(qryop.ScoreOperator), Weight: a.weight}
	}
	return out
}

func asScore(op qryop.Operator) qryop.ScoreOperator {
	if l, ok := op.(qryop.ListOperator); ok {
		return qryop.NewScore(l)
	}
	return op.(qryop.ScoreOperator)
}

func parseKeyword(tok token) (opKind, int, error) {
	name, bound, hasBound := strings.Cut(strings.ToLower(tok.text), "/")
	kind, ok := keywords[name]
	if !ok {
		return 0, 0, parseErr(tok, "unknown operator")
	}
	proximity := kind == opNear || kind == opWindow
	switch {
	case proximity && !hasBound:
		return 0, 0, parseErr(tok, "%s needs a distance, as in %s/3", name, name)
	case !proximity && hasBound:
		return 0, 0, parseErr(tok, "%s takes no distance", name)
	case !proximity:
		return kind, 0, nil
	}
	n, err := strconv.Atoi(bound)
	if err != nil || n <= 0 {
		return 0, 0, parseErr(tok, "distance must be a positive integer")
	}
	return kind, n, nil
}

func parseWeight(text string) (float64, bool) {
	w, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, false
	}
	return w, true
}

// isFraction reports whether text reads as a non-integer number, which under
// Indri can only be a misplaced weight.
func isFraction(text string) bool {
	if _, ok := parseWeight(text); !ok {
		return false
	}
	_, err := strconv.Atoi(text)
	return err != nil
}

// splitField separates a recognised field suffix such as ".title" from a
// term. Unknown suffixes stay part of the term.
func splitField(text string) (string, string) {
	if i := strings.LastIndexByte(text, '.'); i > 0 {
		if f := strings.ToLower(text[i+1:]); index.IsField(f) {
			return text[:i], f
		}
	}
	return text, index.DefaultField
}

// lex splits on whitespace and commas and emits each parenthesis as its own
// token.
func lex(query string) []token {
	var out []token
	start := -1
	flush := func(end int) {
		if start >= 0 {
			out = append(out, token{text: query[start:end], index: len(out)})
			start = -1
		}
	}
	for i, r := range query {
		switch {
		case r == '(' || r == ')':
			flush(i)
			out = append(out, token{text: string(r), index: len(out)})
		case r == ',' || unicode.IsSpace(r):
			flush(i)
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(query))
	return out
}

func parseErr(tok token, format string, args ...any) *apperrors.ParseError {
	return apperrors.NewParseError(tok.text, tok.index, format, args...)
}
