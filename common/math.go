package common

import (
	"encoding/binary"
	"math"
)

// Saturate clamps v to the [0, 1] range.
//
// Parameters:
//   - v: the value to clamp
//
// Returns:
//   - float32: v limited to [0, 1]
func Saturate(v float32) float32 {
	return Clamp(v, 0, 1)
}

// Clamp limits v to the closed interval [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: lower bound
//   - hi: upper bound
//
// Returns:
//   - float32: the clamped value
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ToRadians converts an angle in degrees to radians.
func ToRadians(deg float32) float32 {
	return deg * math.Pi / 180
}

// PutFloat32s writes values as little-endian float32 words into buf starting at offset.
// Returns the offset immediately after the last written word so calls can be chained
// while walking a GPU struct layout.
//
// Parameters:
//   - buf: destination buffer (must hold offset + 4*len(values) bytes)
//   - offset: byte offset of the first word
//   - values: the floats to write
//
// Returns:
//   - int: the byte offset following the written values
func PutFloat32s(buf []byte, offset int, values ...float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(v))
		offset += 4
	}
	return offset
}

// Float32At reads a little-endian float32 from buf at offset.
func Float32At(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset : offset+4]))
}
