// Package canoncbor implements a canonicalizing CBOR (RFC 8949) codec for a
// closed, recursive value model. Decoding accepts untrusted input in any legal
// form; encoding always yields one canonical byte sequence per value, so that
// decode/encode reaches a fixed point after a single pass.
//
// Components:
//   - Value: Null, Bool, Uint, NegInt, Float, Bytes, Text, Array, Map, Tag.
//   - Guard: resource ceilings (depth, element/pair counts, string length,
//     remaining input) checked before anything is allocated from a claim.
//   - DecMode: tolerant decoder with fixed policies for duplicate keys,
//     indefinite lengths and tags.
//   - EncMode: canonical encoder with an optional output ceiling.
//
// Canonical form:
//
//	integers, lengths, tags  shortest head, sign carried by major type 0/1
//	strings, arrays, maps    definite length only
//	maps                     pairs sorted by bytewise order of encoded keys
//	floats                   always 8-byte IEEE 754 doubles
//
// Round trip:
//
//	v, err := canoncbor.Decode(untrusted) // any legal form, bounded
//	b, _   := canoncbor.Encode(v)         // canonical
//	v2, _  := canoncbor.Decode(b)         // canoncbor.Equal(v, v2)
//	b2, _  := canoncbor.Encode(v2)        // bytes.Equal(b, b2)
package canoncbor
