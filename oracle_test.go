package canoncbor

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

// Outputs are cross-checked against an independent CBOR implementation.

func TestEncodeIsWellFormed(t *testing.T) {
	g := valueGen{r: rand.New(rand.NewPCG(5, 6))}
	dm, err := cbor.DecOptions{
		MaxNestedLevels:  65535,
		MaxArrayElements: 2147483647,
		MaxMapPairs:      2147483647,
	}.DecMode()
	if err != nil {
		t.Fatalf("DecMode: %v", err)
	}
	for i := 0; i < 500; i++ {
		b := mustEncode(t, g.value(4))
		if err := dm.Wellformed(b); err != nil {
			t.Fatalf("#%d %x is not well-formed: %v", i, b, err)
		}
	}
}

func TestEncodeMatchesCoreDeterministic(t *testing.T) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		t.Fatalf("EncMode: %v", err)
	}
	cases := []struct {
		name string
		ours Value
		ref  any
	}{
		{"small int", Int(10), 10},
		{"u16", Int(1000), 1000},
		{"u64", Uint(1 << 40), uint64(1 << 40)},
		{"negative", Int(-500), -500},
		{"text", Text("hello"), "hello"},
		{"bytes", Bytes{1, 2, 3}, []byte{1, 2, 3}},
		{"bool", Bool(true), true},
		{"null", Null{}, nil},
		{"array", NewArray(Int(1), Text("two"), Null{}), []any{1, "two", nil}},
		{
			"string keyed map",
			NewMap(
				KV(Text("zz"), Int(1)),
				KV(Text("b"), Int(2)),
				KV(Text("aaa"), NewArray(Bool(false))),
				KV(Text("a"), Bytes{0xff}),
			),
			map[string]any{"zz": 1, "b": 2, "aaa": []any{false}, "a": []byte{0xff}},
		},
		{
			"int keyed map",
			NewMap(KV(Int(-1), Text("neg")), KV(Int(300), Text("big")), KV(Int(2), Text("small"))),
			map[int]string{-1: "neg", 300: "big", 2: "small"},
		},
		{"tag", Tag{Number: 42, Content: Bytes{0}}, cbor.Tag{Number: 42, Content: []byte{0}}},
	}
	for _, tc := range cases {
		want, err := em.Marshal(tc.ref)
		if err != nil {
			t.Fatalf("%s: Marshal: %v", tc.name, err)
		}
		if got := mustEncode(t, tc.ours); !bytes.Equal(got, want) {
			t.Fatalf("%s: %x, reference %x", tc.name, got, want)
		}
	}
}

func TestDecodeAcceptsReferencePreferredEncoding(t *testing.T) {
	// preferred (not deterministic) output: unsorted maps, shortest floats
	em, err := cbor.PreferredUnsortedEncOptions().EncMode()
	if err != nil {
		t.Fatalf("EncMode: %v", err)
	}
	in, err := em.Marshal(map[string]any{"f": 1.5, "s": "x", "n": []int{1, 2}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	v := mustDecode(t, in)
	want := NewMap(
		KV(Text("f"), Float(1.5)),
		KV(Text("s"), Text("x")),
		KV(Text("n"), NewArray(Int(1), Int(2))),
	)
	if !Equal(v, want) {
		t.Fatalf("Decode(%x) = %#v", in, v)
	}
}
