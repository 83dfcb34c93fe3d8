// Package dispatch resolves a statement head to an invokable callable,
// implementing the name-resolution ladder and default-handler fallback of
// spec.md §4.3.
package dispatch

import (
	"github.com/iancoleman/strcase"

	"github.com/ardnew/shellcore/session"
	"github.com/ardnew/shellcore/value"
)

const (
	// wildcardScope is the "*:" prefix step 2 of the resolution ladder
	// tries for an otherwise unscoped name.
	wildcardScope = "*:"

	// defaultName and wildcardDefault are the fallback handler names step 3
	// of the ladder tries in order.
	defaultName     = "default"
	wildcardDefault = "*:default"
)

// Resolve implements the ladder: direct session lookup, then (if name is
// unscoped) "*:name", then — unless the default-lock guard is already
// held — "default" and "*:default" with the original name prepended as the
// first argument. It never invokes anything; callers apply the returned
// callable to their own argument list (prepending any synthesized default
// argument themselves when the returned viaDefault is true).
func Resolve(sess *session.Session, name string) (callable *value.Value, viaDefault bool, err error) {
	if v, ok := sess.Lookup(name); ok {
		return v, false, nil
	}

	if !hasScope(name) {
		if v, ok := sess.Lookup(wildcardScope + name); ok {
			return v, false, nil
		}
	}

	release, acquired := sess.TryDefaultLock()
	if !acquired {
		return nil, false, session.CommandNotFound(name)
	}

	defer release()

	if v, ok := sess.Lookup(defaultName); ok {
		return v, true, nil
	}

	if v, ok := sess.Lookup(wildcardDefault); ok {
		return v, true, nil
	}

	return nil, false, session.CommandNotFound(name)
}

func hasScope(name string) bool {
	for _, r := range name {
		if r == ':' {
			return true
		}
	}

	return false
}

// Invoke calls a resolved callable with args, prepending name as the first
// argument when the resolution went through the default handler
// (spec.md §4.3 step 3: "prepend the original name as the first argument").
func Invoke(sess *session.Session, name string, args []*value.Value) (*value.Value, error) {
	callable, viaDefault, err := Resolve(sess, name)
	if err != nil {
		return nil, err
	}

	fn, ok := callable.Callable()
	if !ok {
		return nil, session.CommandNotFound(name)
	}

	if viaDefault {
		release, acquired := sess.TryDefaultLock()
		if !acquired {
			return nil, session.CommandNotFound(name)
		}

		defer release()

		full := make([]*value.Value, 0, len(args)+1)
		full = append(full, value.NewText(name))
		full = append(full, args...)
		args = full
	}

	return fn(sess, args)
}

// InvokeMethod performs host reflective method dispatch against target,
// normalising method to the host's preferred case via strcase the way the
// dispatch ladder tolerates alternate spellings (spec.md §4.3 "Method
// resolution").
func InvokeMethod(sess *session.Session, target *value.Value, method string, args []*value.Value) (*value.Value, error) {
	host := sess.Host()
	if host == nil {
		return nil, session.ErrNoHost.With("method", method)
	}

	result, err := host.Invoke(sess, target, method, args)
	if err == nil {
		return result, nil
	}

	alt := strcase.ToKebab(method)
	if alt != method {
		if result, err2 := host.Invoke(sess, target, alt, args); err2 == nil {
			return result, nil
		}
	}

	return nil, session.HostInvokeError(err)
}
