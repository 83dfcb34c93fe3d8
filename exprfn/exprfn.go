// Package exprfn backs the Closure evaluator's session.Expr(text) black
// box with github.com/expr-lang/expr: it compiles and runs EXPR-token
// bodies against a flattened view of session variables and builtins,
// translating between the expr-lang value domain and package value's
// tagged union (spec.md §4.1 "EXPR", §6 "Expression evaluator").
package exprfn

import (
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	exprast "github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/shellcore/value"
)

// EnvProvider supplies the flattened name->any environment an expression
// runs against: session variables, builtins, and positional parameters.
// Decoupled from package session to avoid an import cycle (exprfn is
// wired in by session.SetExpr, which would otherwise need to import
// exprfn and exprfn import session).
type EnvProvider func() map[string]any

// Evaluator compiles and runs expr-lang expressions, caching compiled
// programs by a content hash of their source text (spec.md §2 "Evaluator"
// share; grounded on the teacher's xxh3-keyed program cache).
type Evaluator struct {
	provider EnvProvider
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[uint64]*vm.Program
}

// New creates an Evaluator that builds its environment via provider on
// every Eval call (session variables may have changed between calls).
func New(provider EnvProvider, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Evaluator{provider: provider, logger: logger, cache: make(map[uint64]*vm.Program)}
}

// Eval compiles (or reuses a cached compilation of) source and runs it
// against the current environment, converting the result to a *value.Value.
func (e *Evaluator) Eval(source string) (*value.Value, error) {
	env := e.provider()

	prog, err := e.compile(source, env)
	if err != nil {
		return nil, err
	}

	out, err := expr.Run(prog, env)
	if err != nil {
		return nil, err
	}

	return fromAny(out), nil
}

func (e *Evaluator) compile(source string, env map[string]any) (*vm.Program, error) {
	key := xxh3.HashString(source)

	e.mu.RLock()
	if p, ok := e.cache[key]; ok {
		e.mu.RUnlock()

		return p, nil
	}
	e.mu.RUnlock()

	patcher := &hyphenPatcher{env: env, logger: e.logger}

	prog, err := expr.Compile(source, expr.Env(env), expr.Patch(patcher))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[key] = prog
	e.mu.Unlock()

	return prog, nil
}

// ClearCache drops every cached compiled program. Callers do this when the
// set of available environment names changes shape (a new command is
// registered, invalidating the type-checker exemplars baked into a cached
// program).
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cache = make(map[uint64]*vm.Program)
}

// fromAny converts an expr-lang result to a tagged Value.
func fromAny(v any) *value.Value {
	switch t := v.(type) {
	case nil:
		return value.NewNull()
	case bool:
		return value.NewBool(t)
	case int:
		return value.NewInt(int64(t))
	case int64:
		return value.NewInt(t)
	case float64:
		return value.NewFloat(t)
	case string:
		return value.NewText(t)
	case []any:
		items := make([]*value.Value, len(t))
		for i, e := range t {
			items[i] = fromAny(e)
		}

		return value.NewList(items)
	case map[string]any:
		m := value.NewMap()
		for k, mv := range t {
			m.MapSet(k, fromAny(mv))
		}

		return m
	default:
		return value.NewOpaque(v, nil)
	}
}

// toAny converts a tagged Value to a plain any for exposure into the
// expr-lang environment (e.g. a session variable referenced by name).
func toAny(v *value.Value) any {
	if v == nil {
		return nil
	}

	switch v.Kind {
	case value.Null:
		return nil
	case value.Bool:
		b, _ := v.Bool()

		return b
	case value.Int:
		i, _ := v.Int()

		return i
	case value.Float:
		f, _ := v.Float()

		return f
	case value.Text:
		t, _ := v.Text()

		return t
	case value.List:
		list, _ := v.List()
		out := make([]any, len(list))

		for i, e := range list {
			out[i] = toAny(e)
		}

		return out
	case value.Map:
		out := make(map[string]any)
		for _, k := range v.MapKeys() {
			mv, _ := v.MapGet(k)
			out[k] = toAny(mv)
		}

		return out
	default:
		return v.String()
	}
}

// ToAny exposes toAny for callers assembling an EnvProvider from session
// variables (package value.Value instances must be unwrapped before
// handing them to expr-lang).
func ToAny(v *value.Value) any { return toAny(v) }

// hyphenPatcher reconstructs hyphenated identifiers from BinaryNode("-")
// subtraction chains expr-lang's parser produces, the same way the
// teacher's DSL lets config keys like "log-pretty" parse as a single name
// instead of a subtraction (grounded on the teacher's lang.hyphenPatcher).
type hyphenPatcher struct {
	env    map[string]any
	logger *slog.Logger
}

// Visit implements ast.Visitor, called in post-order by ast.Walk.
func (p *hyphenPatcher) Visit(node *exprast.Node) {
	binNode, ok := (*node).(*exprast.BinaryNode)
	if !ok || binNode.Operator != "-" {
		return
	}

	rightIdent, ok := binNode.Right.(*exprast.IdentifierNode)
	if !ok {
		return
	}

	leftIdent, ok := binNode.Left.(*exprast.IdentifierNode)
	if !ok {
		return
	}

	combined := leftIdent.Value + "-" + rightIdent.Value

	if _, exists := p.env[combined]; !exists {
		return
	}

	exprast.Patch(node, &exprast.IdentifierNode{Value: combined})

	if p.logger != nil {
		p.logger.Debug("patched hyphenated identifier", slog.String("name", combined))
	}
}
