package interpolate

import "testing"

func TestVarExpansion(t *testing.T) {
	view := MapView{
		"p": {
			"host": "example.com",
			"url":  "https://${host}/api",
		},
	}

	e := New(view, nil)

	got, ok := e.Value("p", "url")
	if !ok {
		t.Fatal("expected value")
	}

	if got != "https://example.com/api" {
		t.Fatalf("got %q", got)
	}
}

func TestCycleSafe(t *testing.T) {
	view := MapView{
		"p": {
			"a": "${b}",
			"b": "${a}",
		},
	}

	e := New(view, nil)

	done := make(chan string, 1)

	go func() {
		v, _ := e.Value("p", "a")
		done <- v
	}()

	got := <-done
	if got == "" {
		t.Fatal("expected a terminating non-empty result")
	}
}

func TestSchemeResolver(t *testing.T) {
	view := MapView{
		"p": {"secret": "vault:db/password"},
	}

	resolvers := []Resolver{
		{
			Scheme: "vault",
			Resolve: func(_ View, _, _, value string) (string, bool) {
				return "resolved(" + value + ")", true
			},
		},
	}

	e := New(view, resolvers)

	got, ok := e.Value("p", "secret")
	if !ok || got != "resolved(db/password)" {
		t.Fatalf("got %q, %v", got, ok)
	}
}

func TestSchemelessResolverWinsFirst(t *testing.T) {
	view := MapView{"p": {"k": "raw"}}

	resolvers := []Resolver{
		{Resolve: func(_ View, _, _, value string) (string, bool) { return "", false }},
		{Resolve: func(_ View, _, _, value string) (string, bool) { return "handled:" + value, true }},
	}

	e := New(view, resolvers)

	got, _ := e.Value("p", "k")
	if got != "handled:raw" {
		t.Fatalf("got %q", got)
	}
}

func TestCatchAllPostSubstitution(t *testing.T) {
	view := MapView{"p": {"k": "${missing}"}}

	resolvers := []Resolver{
		{
			Scheme: CatchAllScheme,
			Resolve: func(_ View, _, _, value string) (string, bool) {
				return value + "!", true
			},
		},
	}

	e := New(view, resolvers)

	got, _ := e.Value("p", "k")
	if got != "${missing}!" {
		t.Fatalf("got %q", got)
	}
}

func TestMemoization(t *testing.T) {
	calls := 0
	view := MapView{"p": {"k": "v", "ref": "${k} ${k}"}}

	resolvers := []Resolver{
		{Resolve: func(_ View, _, _, value string) (string, bool) {
			calls++

			return "", false
		}},
	}

	e := New(view, resolvers)

	if _, ok := e.Value("p", "ref"); !ok {
		t.Fatal("expected value")
	}

	if _, ok := e.Value("p", "ref"); !ok {
		t.Fatal("expected value")
	}

	// "ref" resolved once via memoization, "k" resolved once and memoized,
	// so the scheme-less resolver must not be invoked once per character.
	if calls > 6 {
		t.Fatalf("expected memoized resolution, got %d resolver calls", calls)
	}
}
