package exprfn

import (
	"github.com/ardnew/shellcore/builtin"
	"github.com/ardnew/shellcore/session"
)

// Wire constructs an Evaluator backed by sess's variables (in addition to
// the builtin environment) and installs it as sess's expression evaluator,
// satisfying spec.md §6's "session.expr(text) -> Value" contract.
func Wire(sess *session.Session) *Evaluator {
	provider := func() map[string]any {
		env := builtin.EnvWithProcessEnviron()

		names, _ := sess.Get(".variables")

		if list, ok := names.List(); ok {
			for _, nameVal := range list {
				name, isText := nameVal.Text()
				if !isText {
					continue
				}

				if v, found := sess.Get(name); found {
					env[name] = ToAny(v)
				}
			}
		}

		return env
	}

	ev := New(provider, nil)

	sess.SetExpr(ev.Eval)

	return ev
}
