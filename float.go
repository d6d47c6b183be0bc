package canoncbor

// Half and single floats are widened by rebuilding the IEEE-754 bit fields,
// not through FPU conversions, so NaN payloads (signaling included) survive
// unchanged on every platform.

const (
	f64ExpBias  = 1023
	f64FracBits = 52
)

// widenFloat converts a binary float with expBits exponent and fracBits
// fraction bits to float64 bits.
func widenFloat(bits uint64, expBits, fracBits uint) uint64 {
	fracMask := uint64(1)<<fracBits - 1
	expMask := uint64(1)<<expBits - 1
	bias := int(expMask >> 1)

	sign := bits >> (expBits + fracBits) & 1 << 63
	exp := bits >> fracBits & expMask
	frac := bits & fracMask

	switch {
	case exp == expMask: // inf, NaN
		return sign | 0x7ff<<f64FracBits | frac<<(f64FracBits-fracBits)
	case exp == 0 && frac == 0:
		return sign
	case exp == 0: // subnormal: normalize
		e := 1 - bias
		for frac&(1<<fracBits) == 0 {
			frac <<= 1
			e--
		}
		frac &= fracMask
		return sign | uint64(e+f64ExpBias)<<f64FracBits | frac<<(f64FracBits-fracBits)
	default:
		return sign | uint64(int(exp)-bias+f64ExpBias)<<f64FracBits | frac<<(f64FracBits-fracBits)
	}
}

func halfToFloat64Bits(h uint16) uint64   { return widenFloat(uint64(h), 5, 10) }
func singleToFloat64Bits(s uint32) uint64 { return widenFloat(uint64(s), 8, 23) }
