package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
)

func TestValueNumericNormalization(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
	}{
		{"bool true equals float one", Bool(true), Float(1)},
		{"bool false equals float zero", Bool(false), Float(0)},
		{"int equals float", Int(7), Float(7)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.a.Equal(tc.b) {
				t.Fatalf("expected %v to equal %v", tc.a, tc.b)
			}
			ka := tc.a.AppendKey(nil)
			kb := tc.b.AppendKey(nil)
			if !bytes.Equal(ka, kb) {
				t.Fatalf("key mismatch: %x vs %x", ka, kb)
			}
		})
	}
}

func TestValueKeyDistinguishesContent(t *testing.T) {
	pairs := [][2]Value{
		{Float(1), Float(1.0000001)},
		{Str("a"), Str("b")},
		{Float(0), Str("")},
	}
	for _, p := range pairs {
		if bytes.Equal(p[0].AppendKey(nil), p[1].AppendKey(nil)) {
			t.Fatalf("distinct values %v and %v produced the same key", p[0], p[1])
		}
	}
}

func TestValueStringNotComparableToNumeric(t *testing.T) {
	if Str("1").Equal(Float(1)) {
		t.Fatal("string value must not equal numeric value")
	}
}

func TestEncodeRowKeyOrderIndependent(t *testing.T) {
	a := map[string]Value{"alpha": Float(1), "beta": Str("x"), "gamma": Bool(true)}
	b := map[string]Value{"gamma": Int(1), "alpha": Float(1), "beta": Str("x")}
	if !bytes.Equal(EncodeRowKey(a), EncodeRowKey(b)) {
		t.Fatal("row key must not depend on map insertion order")
	}
}

func TestEncodeRowKeySeparatesColumns(t *testing.T) {
	// The path length prefix keeps "ab"+"c" distinct from "a"+"bc".
	a := map[string]Value{"ab": Str("c")}
	b := map[string]Value{"a": Str("bc")}
	if bytes.Equal(EncodeRowKey(a), EncodeRowKey(b)) {
		t.Fatal("row keys for different column layouts collided")
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	for _, v := range []Value{Float(3.5), Int(-2), Bool(true), Str("hello")} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %v: %v", v, err)
		}
		var got Value
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if !got.Equal(v) || got.Kind() != v.Kind() {
			t.Fatalf("round trip of %v yielded %v", v, got)
		}
	}
}

func TestValueFloat64OfString(t *testing.T) {
	if !math.IsNaN(Str("x").Float64()) {
		t.Fatal("string value should have NaN numeric content")
	}
}
