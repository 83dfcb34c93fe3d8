// Package closure implements the tree-walking evaluator: Frame, token
// evaluation, statement-form dispatch, dotted method chaining, and array
// indexing (spec.md §3, §4.1).
package closure

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ardnew/shellcore/ast"
	"github.com/ardnew/shellcore/dispatch"
	"github.com/ardnew/shellcore/expand"
	"github.com/ardnew/shellcore/pipestage"
	"github.com/ardnew/shellcore/session"
	"github.com/ardnew/shellcore/value"
)

// reservedPositional are the parameter-view names checked before session
// variables in the scoping order (spec.md §3 invariant 3).
var reservedPositional = map[string]bool{
	"args": true,
	"argv": true,
	"it":   true,
}

// ParamList is the identity-bearing wrapper around a frame's inherited
// positional parameters. evalRest's splice detection (spec.md §4.1 Design
// Note (b)) compares the pointer identity of a Frame's *ParamList, not the
// text of the token that produced it nor the contents of the slice, so
// that only the exact inherited parms/parmv sentinel ever splices.
type ParamList []*value.Value

// Frame is a single invocation of a parsed program: a reference to its
// session, an optional parent frame, the parsed program, and the two
// parameter views parmv/parms (spec.md §3 "Closure frame").
type Frame struct {
	Session *session.Session
	Parent  *Frame
	Program *ast.Program

	parmv []*value.Value
	parms *ParamList
}

// New constructs a Frame over prog within sess, with no parent and no
// parameters bound yet (call Execute to supply them).
func New(sess *session.Session, prog *ast.Program) *Frame {
	return &Frame{Session: sess, Program: prog}
}

// child constructs a nested frame sharing the session, used by EXECUTION
// tokens and CLOSURE invocation (spec.md §4.1).
func (f *Frame) child(prog *ast.Program) *Frame {
	return &Frame{Session: f.Session, Parent: f, Program: prog}
}

// Execute runs the frame's program. If values is non-nil it becomes parmv;
// otherwise parameters are inherited from the parent frame, or else seeded
// from the session's "args" variable if it is a List (spec.md §4.1
// "Contract").
func (f *Frame) Execute(values []*value.Value) (*value.Value, error) {
	if err := f.Session.CheckClosed(); err != nil {
		return nil, err
	}

	switch {
	case values != nil:
		f.parmv = values
	case f.Parent != nil:
		f.parmv = f.Parent.parmv
	default:
		if v, ok := f.Session.Get("args"); ok {
			if list, isList := v.List(); isList {
				f.parmv = list
			}
		}
	}

	var result *value.Value

	for _, pipeline := range f.Program.Pipelines {
		v, err := f.executePipeline(pipeline)
		if err != nil {
			return nil, err
		}

		result = v
	}

	if result == nil {
		result = value.NewNull()
	}

	return result, nil
}

// get implements the variable-read scoping order (spec.md §3 invariant 3):
// reserved parameter names, then positional digits, then session
// variables. The host command registry is consulted by dispatch, not here.
func (f *Frame) get(name string) (*value.Value, bool) {
	if reservedPositional[name] {
		switch name {
		case "it":
			if len(f.parmv) > 0 {
				return f.parmv[0], true
			}

			return value.NewNull(), true
		case "argv", "args":
			return f.parmsView(), true
		}
	}

	if len(name) == 1 && name[0] >= '1' && name[0] <= '9' {
		idx := int(name[0]-'1') + 1
		return f.positional(idx), true
	}

	if v, ok := f.Session.Get(name); ok {
		return v, true
	}

	return nil, false
}

// positional reads a 1-based positional parameter. Out-of-range reads
// yield Null rather than erroring, matching the "parms" display-joined
// view's tolerant indexing (spec.md §3).
func (f *Frame) positional(n int) *value.Value {
	if n < 1 || n > len(f.parmv) {
		return value.NewNull()
	}

	return f.parmv[n-1]
}

// parmsView renders parmv as the "display-joined" parms value: same
// element identity as parmv (spec.md §3 invariant 2), tagged with this
// frame's *ParamList so evalRest can recognise the exact inherited
// sentinel by pointer identity rather than by token text or slice
// contents (spec.md §4.1 Design Note (b)). The *ParamList itself is
// created once per frame and cached, so every call returns a value tagged
// with the same identity even though each call builds a fresh *value.Value.
func (f *Frame) parmsView() *value.Value {
	if f.parms == nil {
		pl := ParamList(f.parmv)
		f.parms = &pl
	}

	return value.NewListSentinel(f.parmv, f.parms)
}

// eval implements token evaluation (spec.md §4.1 "Token evaluation").
func (f *Frame) eval(tok *ast.Token) (*value.Value, error) {
	switch tok.Kind {
	case ast.Word:
		if v, substituted := expand.Expand(tok, f.get); substituted {
			return v, nil
		}

		return value.FromText(tok.Text), nil

	case ast.Closure:
		child := f.child(tok.Program)

		return value.NewCallable(func(sess *session.Session, args []*value.Value) (*value.Value, error) {
			return child.Execute(args)
		}), nil

	case ast.Execution:
		child := f.child(tok.Program)

		return child.Execute(f.parmv)

	case ast.Array:
		return f.evalArray(tok)

	case ast.Assign:
		return assignSentinel, nil

	case ast.Expr:
		return f.Session.Expr(tok.Text)

	default:
		return nil, session.SyntaxError(tok.Pos.Line, tok.Pos.Column, fmt.Sprintf("unknown token kind %s", tok.Kind))
	}
}

// assignSentinel is recognisable only by executeStatement (spec.md §4.1
// "ASSIGN: yields a sentinel recognisable only by the statement driver").
// executeStatement never actually evaluates an ASSIGN token through eval
// (it special-cases tokens[1].Kind == Assign before descending into
// per-token evaluation); this exists only so eval remains total over every
// Kind.
var assignSentinel = value.NewOpaque("=", nil)

// evalArray re-parses an ARRAY token's body into a List or Map value
// (spec.md §4.1 "ARRAY").
func (f *Frame) evalArray(tok *ast.Token) (*value.Value, error) {
	body := tok.ArrayVal
	if body == nil || len(body.Entries) == 0 {
		return value.NewList(nil), nil
	}

	if body.IsMap() {
		m := value.NewMap()

		for _, entry := range body.Entries {
			keyVal, err := f.eval(entry.Key)
			if err != nil {
				return nil, err
			}

			key, isText := keyVal.Text()
			if !isText {
				return nil, session.SyntaxError(tok.Pos.Line, tok.Pos.Column, "map key null or not String")
			}

			valVal, err := f.eval(entry.Value)
			if err != nil {
				return nil, err
			}

			m.MapSet(key, valVal)
		}

		return m, nil
	}

	var items []*value.Value

	for _, entry := range body.Entries {
		v, err := f.eval(entry.Value)
		if err != nil {
			return nil, err
		}

		if list, isList := v.List(); isList {
			items = append(items, list...)

			continue
		}

		items = append(items, v)
	}

	return value.NewList(items), nil
}

// executePipeline delegates stage construction, stream wiring, and
// concurrent multi-stage execution to package pipestage, supplying
// runStage as the per-stage evaluator (spec.md §4.4).
func (f *Frame) executePipeline(p *ast.Pipeline) (*value.Value, error) {
	return pipestage.Run(context.Background(), f.Session, p, f.runStage)
}

// runStage is the pipestage.Executor this frame supplies to package
// pipestage. It forks a Session bound to streams and runs the statement
// against a frame built from that fork, so each concurrently executing
// stage owns its triad for the duration of the call instead of mutating
// the shared f.Session (spec.md §3 invariant 5, §5).
func (f *Frame) runStage(streams session.Streams, st *ast.Statement) (*value.Value, error) {
	stage := *f
	stage.Session = f.Session.WithStreams(streams)

	return stage.ExecuteStatement(st)
}

// ExecuteStatement implements executeStatement(tokens) (spec.md §4.1
// "Statement forms"). It is exported so package pipestage can drive one
// statement per pipeline stage.
func (f *Frame) ExecuteStatement(st *ast.Statement) (result *value.Value, err error) {
	defer func() {
		if err != nil {
			f.Session.AnnotateOnce(errorLocation(st))
		}
	}()

	return f.executeStatement(st)
}

// errorLocation picks the earliest token position of st, the position
// recorded as an error's first-touched location when it is not overwritten
// by a location recorded deeper in the call stack (spec.md §3 invariant 6,
// §7 "Location enrichment": "subsequent re-throws never overwrite it").
func errorLocation(st *ast.Statement) string {
	if len(st.Tokens) == 0 {
		return st.Pos.String()
	}

	return st.Tokens[0].Pos.String()
}

func (f *Frame) executeStatement(st *ast.Statement) (*value.Value, error) {
	tokens := st.Tokens
	if len(tokens) == 0 {
		return value.NewNull(), nil
	}

	f.trace(st)

	// Single EXECUTION statement (spec.md §4.1 form 1).
	if len(tokens) == 1 && tokens[0].Kind == ast.Execution {
		return f.eval(tokens[0])
	}

	if st.IsAssignment() {
		return f.executeAssignment(tokens)
	}

	head, err := f.eval(tokens[0])
	if err != nil {
		return nil, err
	}

	rest, err := f.evalRest(tokens[1:])
	if err != nil {
		return nil, err
	}

	if head.IsNull() {
		if len(rest) == 0 {
			return value.NewNull(), nil
		}

		return nil, session.ErrCommandNameNull
	}

	// Command invocation: the head is plain text that was not itself
	// produced by substitution (spec.md §4.1 form 3). We approximate "not
	// produced by substitution" by requiring the head token itself be a
	// literal WORD whose evaluated form is Text — expansion of a $name
	// marker into a non-text Value (e.g. a stored Callable or List) routes
	// to method invocation instead.
	if tokens[0].Kind == ast.Word {
		if name, isText := head.Text(); isText {
			return dispatch.Invoke(f.Session, name, rest)
		}
	}

	return f.executeMethodInvocation(head, rest)
}

// evalRest evaluates the tokens after the head, splicing any inherited
// parms sentinel's elements in place rather than nesting it (spec.md §4.1
// "Evaluate each token in order; if a token is the inherited parms
// sentinel ... splice its elements in place"). A token splices only when
// it evaluates to the exact *ParamList this frame inherited (spec.md §4.1
// Design Note (b)), not merely when its text looks like "$argv"/"$args" —
// so both names splice, and a session variable that shadowed one of them
// would not.
func (f *Frame) evalRest(tokens []*ast.Token) ([]*value.Value, error) {
	var out []*value.Value

	f.parmsView() // ensures f.parms is created before any token is evaluated

	sentinel := f.parms

	for _, tok := range tokens {
		v, err := f.eval(tok)
		if err != nil {
			return nil, err
		}

		if v.Is(sentinel) {
			list, _ := v.List()
			out = append(out, list...)

			continue
		}

		out = append(out, v)
	}

	return out, nil
}

// executeAssignment implements spec.md §4.1 form 2.
func (f *Frame) executeAssignment(tokens []*ast.Token) (*value.Value, error) {
	name := tokens[0].Text

	rhsTokens := tokens[2:]

	rhs, err := f.evalRest(rhsTokens)
	if err != nil {
		return nil, err
	}

	switch len(rhs) {
	case 0:
		prior, _ := f.Session.Remove(name)
		if prior == nil {
			prior = value.NewNull()
		}

		return prior, nil

	case 1:
		f.Session.Set(name, rhs[0])

		return rhs[0], nil

	default:
		head := rhs[0]
		args := rhs[1:]

		var (
			result *value.Value
			err    error
		)

		if headName, isText := head.Text(); isText && rhsTokens[0].Kind == ast.Word {
			result, err = dispatch.Invoke(f.Session, headName, args)
		} else {
			result, err = f.executeMethodInvocation(head, args)
		}

		if err != nil {
			return nil, err
		}

		f.Session.Set(name, result)

		return result, nil
	}
}

// executeMethodInvocation implements spec.md §4.1 form 4, including dotted
// chaining and array indexing.
func (f *Frame) executeMethodInvocation(target *value.Value, args []*value.Value) (*value.Value, error) {
	if len(args) == 0 {
		return target, nil
	}

	if list, isList := target.List(); isList {
		if len(args) == 1 {
			if n, isInt := args[0].Int(); isInt && n >= 0 {
				if n < int64(len(list)) {
					return list[n], nil
				}

				return value.NewNull(), nil
			}

			if idxText, isText := args[0].Text(); isText {
				if idxText == "length" {
					return value.NewInt(int64(len(list))), nil
				}

				if n, convErr := strconv.ParseInt(idxText, 10, 64); convErr == nil && n >= 0 {
					if int(n) < len(list) {
						return list[n], nil
					}

					return value.NewNull(), nil
				}
			}
		}
	}

	if first, isText := args[0].Text(); isText && first == "." {
		return f.executeDottedChain(target, args[1:])
	}

	method, args := args[0], args[1:]

	methodName, isText := method.Text()
	if !isText {
		methodName = method.String()
	}

	return dispatch.InvokeMethod(f.Session, target, methodName, args)
}

// executeDottedChain implements spec.md §4.1 "Dotted chaining".
func (f *Frame) executeDottedChain(target *value.Value, rest []*value.Value) (*value.Value, error) {
	var (
		acc    []*value.Value
		result = target
	)

	flush := func() error {
		if len(acc) == 0 {
			return nil
		}

		methodName, isText := acc[0].Text()
		if !isText {
			methodName = acc[0].String()
		}

		v, err := dispatch.InvokeMethod(f.Session, result, methodName, acc[1:])
		if err != nil {
			return err
		}

		result = v
		acc = nil

		return nil
	}

	for _, a := range rest {
		if text, isText := a.Text(); isText && text == "." {
			if err := flush(); err != nil {
				return nil, err
			}

			continue
		}

		acc = append(acc, a)
	}

	if err := flush(); err != nil {
		return nil, err
	}

	return result, nil
}

// trace implements xtrace/verbose-trace printing (spec.md §4.1
// "Preconditions"): when "echo" is truthy, the raw source joined by
// spaces is printed before evaluation; when "echo == verbose", a second
// post-expansion trace prints iff it differs textually.
func (f *Frame) trace(st *ast.Statement) {
	mode := f.Session.EchoMode()
	if mode == session.EchoOff {
		return
	}

	raw := joinTokenText(st.Tokens, rawTokenText)

	fmt.Fprintln(f.Session.Err(), raw)

	if mode != session.EchoVerbose {
		return
	}

	expanded := joinTokenText(st.Tokens, func(tok *ast.Token) string {
		if v, ok := expand.Expand(tok, f.get); ok {
			return v.String()
		}

		return rawTokenText(tok)
	})

	if expanded != raw {
		fmt.Fprintln(f.Session.Err(), expanded)
	}
}

func rawTokenText(tok *ast.Token) string {
	switch tok.Kind {
	case ast.Word, ast.Expr:
		return tok.Text
	case ast.Assign:
		return "="
	default:
		return tok.Kind.String()
	}
}

func joinTokenText(tokens []*ast.Token, render func(*ast.Token) string) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = render(t)
	}

	return strings.Join(parts, " ")
}
