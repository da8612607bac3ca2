package gguf

import "math"

// Half-precision codecs (component A). These are written by hand against
// the exact bit layouts spec.md §4.1 requires rather than delegated to a
// general-purpose half-float package: the round-trip invariants in §8
// depend on specific rounding and NaN-quieting behavior (the bf16 path in
// particular must match AMD's VCVTNEPS2BF16 bit for bit), which generic
// float16/bfloat16 libraries don't all guarantee. See DESIGN.md for the
// dependencies considered and dropped for this reason.

// f32FromF16 decodes an IEEE 754 binary16 value to float32, including
// subnormals, with NaN/Inf preserved.
func f32FromF16(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff

	var outExp, outMant uint32
	switch {
	case exp == 0x1f: // Inf / NaN
		outExp = 0xff
		outMant = mant << 13
	case exp == 0:
		if mant == 0 {
			outExp, outMant = 0, 0
		} else {
			// Normalize: shift the mantissa left until its implicit
			// leading 1 would sit at bit 10, adjusting the exponent to
			// match, then rebias into float32's 127-centered exponent.
			e := int32(-15)
			m := mant
			for m&0x400 == 0 {
				m <<= 1
				e--
			}
			m &= 0x3ff
			outExp = uint32(e + 127 + 1)
			outMant = m << 13
		}
	default:
		outExp = exp - 15 + 127
		outMant = mant << 13
	}

	bits := sign<<31 | outExp<<23 | outMant
	return math.Float32frombits(bits)
}

// f16FromF32 encodes a float32 to IEEE 754 binary16, rounding to nearest
// even, flushing values too small to hold a normal f16 mantissa to zero
// (this core never emits f16 subnormals), quieting NaNs, and saturating
// overflow to +/-Inf.
func f16FromF32(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23) & 0xff
	mant := bits & 0x7fffff

	switch {
	case exp == 0xff: // Inf / NaN
		if mant != 0 {
			return sign | 0x7e00 // quiet NaN
		}
		return sign | 0x7c00
	case exp == 0: // f32 zero or subnormal: magnitude underflows f16
		return sign
	}

	unbiased := exp - 127
	h16exp := unbiased + 15

	switch {
	case h16exp >= 0x1f: // overflow -> Inf
		return sign | 0x7c00
	case h16exp <= 0: // underflow: flush to zero (no f16 subnormal output)
		return sign
	default:
		roundBit := mant & 0x1000
		rest := mant & 0xfff
		m := mant >> 13
		if roundBit != 0 && (rest != 0 || m&1 == 1) {
			m++
			if m == 0x400 {
				m = 0
				h16exp++
				if h16exp >= 0x1f {
					return sign | 0x7c00
				}
			}
		}
		return sign | uint16(h16exp)<<10 | uint16(m)
	}
}

// f32FromBF16 expands a bfloat16 value into the high half of a float32
// word (bfloat16 shares f32's exponent range, so this is a pure shift).
func f32FromBF16(h uint16) float32 {
	return math.Float32frombits(uint32(h) << 16)
}

// bf16FromF32 is bit-identical to AMD's VCVTNEPS2BF16: subnormals flush
// to zero, NaNs are forced quiet (bit 6 of the mantissa set), otherwise
// round-to-nearest-even via bias 0x7FFF + the rounded bit.
func bf16FromF32(f float32) uint16 {
	bits := math.Float32bits(f)
	if bits&0x7fffffff > 0x7f800000 { // NaN
		return uint16(bits>>16) | 64
	}
	if bits&0x7f800000 == 0 { // subnormal: flush to zero, keep sign
		return uint16(bits>>16) & 0x8000
	}
	return uint16((bits + (0x7fff + ((bits >> 16) & 1))) >> 16)
}
