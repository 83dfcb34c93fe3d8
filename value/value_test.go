package value

import "testing"

func TestFromText(t *testing.T) {
	cases := []struct {
		text string
		kind Kind
	}{
		{"null", Null},
		{"true", Bool},
		{"false", Bool},
		{"3", Int},
		{"3.5", Float},
		{"-42", Int},
		{"hello", Text},
		{"3.0.0", Text},
	}

	for _, c := range cases {
		v := FromText(c.text)
		if v.Kind != c.kind {
			t.Errorf("FromText(%q).Kind = %s, want %s", c.text, v.Kind, c.kind)
		}
	}
}

func TestFromTextRoundTrip(t *testing.T) {
	b, ok := FromText("true").Bool()
	if !ok || !b {
		t.Fatalf("expected Bool(true)")
	}

	n, ok := FromText("null").Bool()
	if ok || n {
		t.Fatalf("null must not read back as Bool")
	}

	i, ok := FromText("42").Int()
	if !ok || i != 42 {
		t.Fatalf("FromText(42).Int() = %d, %v", i, ok)
	}

	f, ok := FromText("3.5").Float()
	if !ok || f != 3.5 {
		t.Fatalf("FromText(3.5).Float() = %v, %v", f, ok)
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    *Value
		want bool
	}{
		{NewNull(), false},
		{NewBool(false), false},
		{NewBool(true), true},
		{NewInt(0), false},
		{NewInt(1), true},
		{NewText(""), false},
		{NewText("x"), true},
		{NewList(nil), true},
	}

	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("%s.Truthy() = %v, want %v", c.v.Kind, got, c.want)
		}
	}
}

func TestMapInsertionOrder(t *testing.T) {
	m := NewMap()
	m.MapSet("b", NewInt(2))
	m.MapSet("a", NewInt(1))
	m.MapSet("b", NewInt(20))

	keys := m.MapKeys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("MapKeys() = %v, want [b a]", keys)
	}

	v, ok := m.MapGet("b")
	if !ok {
		t.Fatal("expected key b")
	}

	i, _ := v.Int()
	if i != 20 {
		t.Fatalf("MapGet(b) = %d, want 20 (overwrite, not duplicate)", i)
	}
}

func TestMapStringPreservesInsertionOrder(t *testing.T) {
	m := NewMap()
	m.MapSet("z", NewInt(1))
	m.MapSet("a", NewInt(2))
	m.MapSet("m", NewInt(3))

	if got, want := m.String(), "z=1 a=2 m=3"; got != want {
		t.Fatalf("String() = %q, want %q (insertion order, not sorted)", got, want)
	}
}

func TestListSentinelIdentity(t *testing.T) {
	items := []*Value{NewInt(1), NewInt(2)}

	idA, idB := new(int), new(int)

	v1 := NewListSentinel(items, idA)
	v2 := NewListSentinel(items, idA)
	v3 := NewListSentinel(items, idB)
	plain := NewList(items)

	if !v1.Is(idA) || !v2.Is(idA) {
		t.Fatal("expected values tagged with idA to report Is(idA)")
	}

	if v3.Is(idA) {
		t.Fatal("expected value tagged with idB not to report Is(idA)")
	}

	if plain.Is(idA) {
		t.Fatal("expected a plain NewList value not to match any identity")
	}
}

func TestListSharedIdentity(t *testing.T) {
	items := []*Value{NewInt(1), NewInt(2)}
	l1 := NewList(items)
	l2 := NewList(items)

	items[0] = NewInt(99)

	v1, _ := l1.List()
	v2, _ := l2.List()

	i1, _ := v1[0].Int()
	i2, _ := v2[0].Int()

	if i1 != 99 || i2 != 99 {
		t.Fatalf("expected shared backing slice to observe mutation, got %d %d", i1, i2)
	}
}
