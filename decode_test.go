package canoncbor

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/x448/float16"
)

func hexb(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func mustDecode(t *testing.T, b []byte) Value {
	t.Helper()
	v, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode(%x): %v", b, err)
	}
	return v
}

func mustEncode(t *testing.T, v Value) []byte {
	t.Helper()
	b, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return b
}

func mustDecMode(t *testing.T, o DecOptions) DecMode {
	t.Helper()
	dm, err := o.DecMode()
	if err != nil {
		t.Fatalf("DecMode: %v", err)
	}
	return dm
}

func wantDecodeErr(t *testing.T, dm DecMode, in []byte, kind ErrorKind, sentinel error) *DecodeError {
	t.Helper()
	v, err := dm.Decode(in)
	if err == nil {
		t.Fatalf("Decode(%x) = %#v, want %s error", in, v, kind)
	}
	if v != nil {
		t.Fatalf("Decode(%x) returned a value alongside %v", in, err)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("Decode(%x) error %v is not %v", in, err, sentinel)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != kind {
		t.Fatalf("Decode(%x) error %#v, want kind %s", in, err, kind)
	}
	return de
}

// canonicalization cases: input (any legal form) -> expected canonical bytes.
func TestDecodeThenEncodeCanonicalizes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"zero", "00", "00"},
		{"padded one u8", "18 01", "01"},
		{"padded one u16", "19 00 01", "01"},
		{"padded one u64", "1b 00 00 00 00 00 00 00 01", "01"},
		{"padded 500", "1b 00 00 00 00 00 00 01 f4", "19 01 f4"},
		{"max uint64", "1b ff ff ff ff ff ff ff ff", "1b ff ff ff ff ff ff ff ff"},
		{"minus one", "20", "20"},
		{"padded minus 100", "39 00 63", "38 63"},
		{"minus 2^64", "3b ff ff ff ff ff ff ff ff", "3b ff ff ff ff ff ff ff ff"},
		{"half float one", "f9 3c 00", "fb 3f f0 00 00 00 00 00 00"},
		{"single float 1.5", "fa 3f c0 00 00", "fb 3f f8 00 00 00 00 00 00"},
		{"half NaN", "f9 7e 00", "fb 7f f8 00 00 00 00 00 00"},
		{"half signaling NaN", "f9 7c 01", "fb 7f f0 04 00 00 00 00 00"},
		{"half negative NaN payload", "f9 fd 55", "fb ff f5 54 00 00 00 00 00"},
		{"half subnormal", "f9 00 01", "fb 3e 70 00 00 00 00 00 00"},
		{"half negative zero", "f9 80 00", "fb 80 00 00 00 00 00 00 00"},
		{"half -inf", "f9 fc 00", "fb ff f0 00 00 00 00 00 00"},
		{"single signaling NaN", "fa 7f 80 00 01", "fb 7f f0 00 00 20 00 00 00"},
		{"single subnormal", "fa 00 00 00 01", "fb 36 a0 00 00 00 00 00 00"},
		{"double kept", "fb 40 09 21 fb 54 44 2d 18", "fb 40 09 21 fb 54 44 2d 18"},
		{"padded bytes length", "58 02 01 02", "42 01 02"},
		{"padded text length", "7a 00 00 00 01 61", "61 61"},
		{"indefinite bytes", "5f 42 01 02 41 03 ff", "43 01 02 03"},
		{"indefinite empty bytes", "5f ff", "40"},
		{"indefinite text", "7f 61 61 61 62 ff", "62 61 62"},
		{"indefinite array", "9f 01 02 ff", "82 01 02"},
		{"padded array length", "98 02 01 02", "82 01 02"},
		{"indefinite map", "bf 61 61 01 ff", "a1 61 61 01"},
		{"unsorted map", "a2 61 62 01 61 61 02", "a2 61 61 02 61 62 01"},
		{"length before bytes", "a2 62 61 61 01 61 62 02", "a2 61 62 02 62 61 61 01"},
		{"padded tag number", "d8 01 00", "c1 00"},
		{"tag 42", "d8 2a 42 00 01", "d8 2a 42 00 01"},
		{"nested non-canonical", "81 a2 61 7a 18 01 61 79 f9 00 00", "81 a2 61 79 fb 00 00 00 00 00 00 00 00 61 7a 01"},
		{"bools and null", "83 f4 f5 f6", "83 f4 f5 f6"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := mustDecode(t, hexb(t, tc.in))
			got := mustEncode(t, v)
			if want := hexb(t, tc.want); !bytes.Equal(got, want) {
				t.Fatalf("Encode(Decode(%s)) = %x, want %x", tc.in, got, want)
			}
			// canonical bytes are a fixed point
			if again := mustEncode(t, mustDecode(t, got)); !bytes.Equal(again, got) {
				t.Fatalf("second pass changed bytes: %x -> %x", got, again)
			}
		})
	}
}

func TestScenarioZeroRoundTripsToItself(t *testing.T) {
	v := mustDecode(t, []byte{0x00})
	if !Equal(v, Uint(0)) {
		t.Fatalf("decoded %#v", v)
	}
	if got := mustEncode(t, v); !bytes.Equal(got, []byte{0x00}) {
		t.Fatalf("re-encoded %x", got)
	}
}

func TestScenarioPaddedOneReencodesMinimally(t *testing.T) {
	padded := hexb(t, "1b 00 00 00 00 00 00 00 01")
	v := mustDecode(t, padded)
	if !Equal(v, Uint(1)) {
		t.Fatalf("decoded %#v", v)
	}
	got := mustEncode(t, v)
	if bytes.Equal(got, padded) || !bytes.Equal(got, []byte{0x01}) {
		t.Fatalf("re-encoded %x, want 01", got)
	}
}

func TestScenarioUnsortedMapKeepsBothPairs(t *testing.T) {
	v := mustDecode(t, hexb(t, "a2 61 62 01 61 61 02"))
	m, ok := v.(Map)
	if !ok || len(m) != 2 {
		t.Fatalf("decoded %#v", v)
	}
	if b, _ := m.Get(Text("b")); !Equal(b, Uint(1)) {
		t.Fatalf("b = %#v", b)
	}
	if a, _ := m.Get(Text("a")); !Equal(a, Uint(2)) {
		t.Fatalf("a = %#v", a)
	}
	got := mustEncode(t, v)
	if ia, ib := bytes.Index(got, []byte{0x61, 'a'}), bytes.Index(got, []byte{0x61, 'b'}); ia < 0 || ib < 0 || ia > ib {
		t.Fatalf("\"a\" must precede \"b\" in %x", got)
	}
}

func TestScenarioHugeMapClaimIsRefused(t *testing.T) {
	in := hexb(t, "bb 00 00 00 01 00 00 00 00") // 2^32 pairs, nothing follows
	de := wantDecodeErr(t, defaultDecMode, in, KindResourceLimitExceeded, ErrResourceLimitExceeded)
	if de.Limit != LimitMapPairs {
		t.Fatalf("limit = %s, want map_pairs", de.Limit)
	}

	allocs := testing.AllocsPerRun(20, func() { _, _ = Decode(in) })
	if allocs > 16 {
		t.Fatalf("refusing a 2^32 pair claim took %v allocations", allocs)
	}
}

func TestClaimsBeyondRemainingInput(t *testing.T) {
	// raise the absolute ceilings so only the remaining-input check applies
	dm := mustDecMode(t, DecOptions{Limits: Limits{
		MaxArrayElements: math.MaxInt32,
		MaxMapPairs:      math.MaxInt32,
		MaxStringLen:     math.MaxInt32,
	}})
	cases := []struct {
		name string
		in   string
	}{
		{"billion element array", "9a 3b 9a ca 00"},
		{"array one short", "83 01 02"},
		{"map pairs need two bytes", "a2 01 02 03"},
		{"bytes past end", "5a 00 01 00 00 00"},
		{"text past end", "62 61"},
		{"indefinite chunk past end", "5f 44 01 02 ff"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := wantDecodeErr(t, dm, hexb(t, tc.in), KindResourceLimitExceeded, ErrResourceLimitExceeded)
			if de.Limit != LimitRemainingInput {
				t.Fatalf("limit = %s, want remaining_input", de.Limit)
			}
		})
	}
}

func TestAbsoluteCeilings(t *testing.T) {
	dm := mustDecMode(t, DecOptions{Limits: Limits{
		MaxNestedLevels:  4,
		MaxArrayElements: 2,
		MaxMapPairs:      1,
		MaxStringLen:     3,
	}})
	cases := []struct {
		name  string
		in    string
		limit Limit
	}{
		{"array elements", "83 01 02 03", LimitArrayElements},
		{"indefinite array elements", "9f 01 02 03 ff", LimitArrayElements},
		{"map pairs", "a2 01 01 02 02", LimitMapPairs},
		{"indefinite map pairs", "bf 01 01 02 02 ff", LimitMapPairs},
		{"string length", "44 01 02 03 04", LimitStringLength},
		{"indefinite string total", "5f 42 01 02 42 03 04 ff", LimitStringLength},
		{"depth", "81 81 81 81 81 00", LimitDepth},
		{"tags count as depth", "c1 c1 c1 c1 c1 00", LimitDepth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := wantDecodeErr(t, dm, hexb(t, tc.in), KindResourceLimitExceeded, ErrResourceLimitExceeded)
			if de.Limit != tc.limit {
				t.Fatalf("limit = %s, want %s", de.Limit, tc.limit)
			}
		})
	}

	// exactly at the ceilings is fine
	for _, in := range []string{"82 01 02", "a1 01 01", "43 01 02 03", "81 81 81 81 00"} {
		if _, err := dm.Decode(hexb(t, in)); err != nil {
			t.Fatalf("Decode(%s): %v", in, err)
		}
	}
}

func TestDefaultDepthCeiling(t *testing.T) {
	deep := func(n int) []byte {
		return append(bytes.Repeat([]byte{0x81}, n), 0x00)
	}
	if _, err := Decode(deep(DefaultMaxNestedLevels)); err != nil {
		t.Fatalf("depth %d: %v", DefaultMaxNestedLevels, err)
	}
	de := wantDecodeErr(t, defaultDecMode, deep(DefaultMaxNestedLevels+1), KindResourceLimitExceeded, ErrResourceLimitExceeded)
	if de.Limit != LimitDepth || de.Offset != DefaultMaxNestedLevels {
		t.Fatalf("got %#v, want depth limit at offset %d", de, DefaultMaxNestedLevels)
	}

	// a very deep claim fails at the ceiling without walking the rest
	huge := append(bytes.Repeat([]byte{0x9f}, 1<<20), 0x00)
	wantDecodeErr(t, defaultDecMode, huge, KindResourceLimitExceeded, ErrResourceLimitExceeded)
}

func TestMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"truncated head", "19 01"},
		{"reserved info", "1c"},
		{"reserved info in map", "a1 01 5d"},
		{"indefinite uint", "1f"},
		{"indefinite negint", "3f"},
		{"indefinite tag", "df 00"},
		{"stray break", "ff"},
		{"break as map value", "bf 01 ff"},
		{"two-byte simple below 32", "f8 10"},
		{"invalid utf8", "62 c3 28"},
		{"invalid utf8 chunk", "7f 61 c3 61 a9 ff"},
		{"wrong chunk type", "5f 61 61 ff"},
		{"nested indefinite chunk", "5f 5f ff ff"},
		{"unterminated array", "9f 01"},
		{"unterminated string", "5f 41 00"},
		{"truncated map value", "bf 01"},
		{"truncated tag", "c1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wantDecodeErr(t, defaultDecMode, hexb(t, tc.in), KindMalformed, ErrMalformed)
		})
	}
}

func TestUnsupportedForms(t *testing.T) {
	for _, in := range []string{"f7", "e0", "f3", "f8 20", "f8 ff"} {
		wantDecodeErr(t, defaultDecMode, hexb(t, in), KindUnsupportedForm, ErrUnsupportedForm)
	}

	noIndef := mustDecMode(t, DecOptions{IndefLength: IndefLengthForbidden})
	for _, in := range []string{"5f ff", "7f ff", "9f ff", "bf ff", "81 9f ff"} {
		wantDecodeErr(t, noIndef, hexb(t, in), KindUnsupportedForm, ErrUnsupportedForm)
	}
	if _, err := noIndef.Decode(hexb(t, "82 01 02")); err != nil {
		t.Fatalf("definite array refused: %v", err)
	}

	noTags := mustDecMode(t, DecOptions{TagsMd: TagsForbidden})
	wantDecodeErr(t, noTags, hexb(t, "c1 00"), KindUnsupportedForm, ErrUnsupportedForm)
	wantDecodeErr(t, noTags, hexb(t, "81 d8 2a 41 00"), KindUnsupportedForm, ErrUnsupportedForm)
}

func TestTrailingData(t *testing.T) {
	de := wantDecodeErr(t, defaultDecMode, hexb(t, "00 00"), KindTrailingData, ErrTrailingData)
	if de.Offset != 1 {
		t.Fatalf("offset = %d, want 1", de.Offset)
	}

	v, rest, err := DecodeFirst(hexb(t, "01 82 02 03"))
	if err != nil {
		t.Fatalf("DecodeFirst: %v", err)
	}
	if !Equal(v, Uint(1)) || !bytes.Equal(rest, hexb(t, "82 02 03")) {
		t.Fatalf("DecodeFirst = %#v rest=%x", v, rest)
	}
	v, rest, err = DecodeFirst(rest)
	if err != nil || len(rest) != 0 || !Equal(v, NewArray(Uint(2), Uint(3))) {
		t.Fatalf("second DecodeFirst = %#v rest=%x err=%v", v, rest, err)
	}
}

func TestDuplicateKeyPolicies(t *testing.T) {
	// same key twice, the second time with a padded head
	in := hexb(t, "a2 01 61 61 18 01 61 62")

	de := wantDecodeErr(t, defaultDecMode, in, KindDuplicateKey, ErrDuplicateKey)
	if de.Offset != 0 {
		t.Fatalf("offset = %d, want map start", de.Offset)
	}

	first, err := mustDecMode(t, DecOptions{DupMapKey: DupMapKeyKeepFirst}).Decode(in)
	if err != nil {
		t.Fatalf("keep first: %v", err)
	}
	if !Equal(first, NewMap(KV(Uint(1), Text("a")))) {
		t.Fatalf("keep first = %#v", first)
	}

	last, err := mustDecMode(t, DecOptions{DupMapKey: DupMapKeyKeepLast}).Decode(in)
	if err != nil {
		t.Fatalf("keep last: %v", err)
	}
	if !Equal(last, NewMap(KV(Uint(1), Text("b")))) {
		t.Fatalf("keep last = %#v", last)
	}

	// resolved maps always encode
	if got := mustEncode(t, last); !bytes.Equal(got, hexb(t, "a1 01 61 62")) {
		t.Fatalf("Encode(keep last) = %x", got)
	}

	// container keys are compared by their canonical form too
	wantDecodeErr(t, defaultDecMode, hexb(t, "a2 a2 01 02 03 04 00 a2 03 04 01 02 00"), KindDuplicateKey, ErrDuplicateKey)
}

func TestResolveMapDoesNotModifyInput(t *testing.T) {
	dm := mustDecMode(t, DecOptions{DupMapKey: DupMapKeyKeepLast})
	pairs := []Pair{KV(Text("k"), Uint(1)), KV(Text("k"), Uint(2))}
	m, err := dm.ResolveMap(pairs)
	if err != nil {
		t.Fatalf("ResolveMap: %v", err)
	}
	if len(m) != 1 || !Equal(m[0].Value, Uint(2)) {
		t.Fatalf("resolved = %#v", m)
	}
	if !Equal(pairs[0].Value, Uint(1)) || len(pairs) != 2 {
		t.Fatalf("input modified: %#v", pairs)
	}
	if _, err := defaultDecMode.ResolveMap(pairs); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("default policy: %v", err)
	}
}

func TestDecodedBytesAreOwned(t *testing.T) {
	in := hexb(t, "42 01 02")
	v := mustDecode(t, in)
	in[1] = 0xff
	if !Equal(v, Bytes{0x01, 0x02}) {
		t.Fatalf("decoded bytes alias the input: %#v", v)
	}
}

func TestDecOptionsValidation(t *testing.T) {
	bad := []DecOptions{
		{Limits: Limits{MaxNestedLevels: -1}},
		{Limits: Limits{MaxArrayElements: -1}},
		{Limits: Limits{MaxMapPairs: -1}},
		{Limits: Limits{MaxStringLen: -1}},
		{DupMapKey: 99},
		{IndefLength: -1},
		{TagsMd: 5},
	}
	for i, o := range bad {
		if _, err := o.DecMode(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}

	dm := mustDecMode(t, DecOptions{Limits: Limits{MaxMapPairs: 7}})
	l := dm.Limits()
	if l.MaxMapPairs != 7 || l.MaxNestedLevels != DefaultMaxNestedLevels || l.MaxStringLen != DefaultMaxStringLen {
		t.Fatalf("resolved limits = %+v", l)
	}

	// the zero DecMode behaves like the default one
	var zero DecMode
	if _, err := zero.Decode(hexb(t, "82 01 02")); err != nil {
		t.Fatalf("zero DecMode: %v", err)
	}
}

func TestDecodeErrorMessages(t *testing.T) {
	_, err := Decode(hexb(t, "bb 00 00 00 01 00 00 00 00"))
	if err == nil || !strings.Contains(err.Error(), "map_pairs limit exceeded at offset 0") {
		t.Fatalf("unexpected message: %v", err)
	}
	_, err = Decode(hexb(t, "62 c3 28"))
	if err == nil || !strings.Contains(err.Error(), "malformed at offset 0: invalid UTF-8") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestHalfWideningMatchesFloat16(t *testing.T) {
	for i := 0; i <= math.MaxUint16; i++ {
		h := float16.Frombits(uint16(i))
		got := math.Float64frombits(halfToFloat64Bits(uint16(i)))
		if h.IsNaN() {
			if !math.IsNaN(got) {
				t.Fatalf("%04x: got %v, want NaN", i, got)
			}
			continue
		}
		if want := float64(h.Float32()); got != want || math.Signbit(got) != math.Signbit(want) {
			t.Fatalf("%04x: got %v, want %v", i, got, want)
		}
	}
}

func TestSingleWidening(t *testing.T) {
	for _, f := range []float32{0, 1, -1.5, math.MaxFloat32, math.SmallestNonzeroFloat32, 1e-40, float32(math.Inf(-1))} {
		bits := math.Float32bits(f)
		if got := math.Float64frombits(singleToFloat64Bits(bits)); got != float64(f) {
			t.Fatalf("%08x: got %v, want %v", bits, got, float64(f))
		}
	}
}
