package canonical_test

import (
	"encoding/json"
	"testing"

	"github.com/semre57/sengchain/internal/canonical"
)

func TestEncode_scalars(t *testing.T) {
	tests := []struct {
		name string
		in   canonical.Value
		want string
	}{
		{"null", canonical.Null(), "null"},
		{"true", canonical.Bool(true), "true"},
		{"false", canonical.Bool(false), "false"},
		{"integer", canonical.Int(42), "42"},
		{"zero", canonical.Number(0), "0"},
		{"fraction", canonical.Number(0.5), "0.5"},
		{"large", canonical.Number(1e21), "1000000000000000000000"},
		{"string", canonical.String("hello"), `"hello"`},
		{"escaped string", canonical.String("a\"b\n"), `"a\"b\n"`},
		{"empty list", canonical.List(), "[]"},
		{"empty map", canonical.Map(nil), "{}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := canonical.Encode(tc.in); got != tc.want {
				t.Errorf("Encode() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEncode_mapKeyOrderInvariant(t *testing.T) {
	a := canonical.MustFromAny(map[string]any{"a": 1, "b": 2})
	b := canonical.MustFromAny(map[string]any{"b": 2, "a": 1})

	if canonical.Encode(a) != canonical.Encode(b) {
		t.Errorf("map encodings differ: %q vs %q", canonical.Encode(a), canonical.Encode(b))
	}
	if got := canonical.Encode(a); got != `{"a":1,"b":2}` {
		t.Errorf("Encode() = %q", got)
	}
}

func TestEncode_listOrderMatters(t *testing.T) {
	a := canonical.List(canonical.Int(1), canonical.Int(2))
	b := canonical.List(canonical.Int(2), canonical.Int(1))

	if canonical.Encode(a) == canonical.Encode(b) {
		t.Errorf("[1,2] and [2,1] must encode differently, both gave %q", canonical.Encode(a))
	}
}

func TestEncode_nested(t *testing.T) {
	v := canonical.MustFromAny(map[string]any{
		"z":    []any{"x", nil, true},
		"a":    map[string]any{"d": 1.25, "c": "y"},
		"meta": nil,
	})
	want := `{"a":{"c":"y","d":1.25},"meta":null,"z":["x",null,true]}`
	if got := canonical.Encode(v); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncode_distinguishesKinds(t *testing.T) {
	pairs := [][2]canonical.Value{
		{canonical.String("1"), canonical.Int(1)},
		{canonical.String("true"), canonical.Bool(true)},
		{canonical.String("null"), canonical.Null()},
		{canonical.List(canonical.Null()), canonical.List()},
		{canonical.Map(map[string]canonical.Value{"a": canonical.Null()}), canonical.Map(nil)},
	}
	for _, p := range pairs {
		if canonical.Encode(p[0]) == canonical.Encode(p[1]) {
			t.Errorf("%q and %q should differ", canonical.Encode(p[0]), canonical.Encode(p[1]))
		}
	}
}

func TestValue_JSONPreservesCanonicalForm(t *testing.T) {
	raw := []byte(`{"voterHash":"abc","n":3,"tags":["b","a"],"ok":false,"x":null}`)

	var v canonical.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatal(err)
	}
	if v.Kind() != canonical.KindMap {
		t.Fatalf("expected map, got %s", v.Kind())
	}
	if got := v.StringField("voterHash"); got != "abc" {
		t.Errorf("StringField(voterHash) = %q", got)
	}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	var back canonical.Value
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if !v.Equal(back) {
		t.Errorf("JSON round trip changed value: %s -> %s", canonical.Encode(v), canonical.Encode(back))
	}
}

func TestValue_immutable(t *testing.T) {
	src := map[string]canonical.Value{"k": canonical.String("v")}
	v := canonical.Map(src)
	src["k"] = canonical.String("mutated")

	fields := v.Fields()
	fields["k"] = canonical.String("mutated again")

	if got := v.StringField("k"); got != "v" {
		t.Errorf("value changed through aliasing: %q", got)
	}
}

func TestFromAny_unsupported(t *testing.T) {
	if _, err := canonical.FromAny(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestValue_ValidUTF8(t *testing.T) {
	cases := []struct {
		name string
		v    canonical.Value
		want bool
	}{
		{"scalar string", canonical.String("héllo"), true},
		{"number", canonical.Int(3), true},
		{"bad string", canonical.String("\xff"), false},
		{"bad nested in list", canonical.List(canonical.String("ok"), canonical.String("a\xc3")), false},
		{"bad map key", canonical.Map(map[string]canonical.Value{"\xfe": canonical.Null()}), false},
		{"bad deep value", canonical.Map(map[string]canonical.Value{
			"outer": canonical.Map(map[string]canonical.Value{"inner": canonical.String("\xff")}),
		}), false},
	}
	for _, tc := range cases {
		if got := tc.v.ValidUTF8(); got != tc.want {
			t.Errorf("%s: ValidUTF8() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
