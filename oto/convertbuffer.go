package oto

import (
	"encoding/binary"
	"math"
)

// FloatBufferToFloat32LE appends the samples of buff to dst as little-endian
// IEEE floats and returns the extended slice. Passing dst[:0] of a previous
// result reuses its capacity.
func FloatBufferToFloat32LE(buff []float32, dst []byte) []byte {
	for _, v := range buff {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
