// Package bits implements small generic bit-twiddling helpers shared by the
// tile codec.
package bits

// FoldZigZag maps a signed residual to an unsigned magnitude-interleaved
// integer, so that small magnitudes (positive or negative) map to small
// unsigned values and the result can be fed to a byte-oriented entropy
// coder.
//
// Examples of signed input on the left and folded output on the right:
//
//	 0 => 0
//	-1 => 1
//	 1 => 2
//	-2 => 3
//	 2 => 4
//	-3 => 5
//	 3 => 6
//
// ref: https://developers.google.com/protocol-buffers/docs/encoding
func FoldZigZag(r int32) uint32 {
	return uint32(r<<1) ^ uint32(r>>31)
}

// UnfoldZigZag is the inverse of FoldZigZag.
func UnfoldZigZag(u uint32) int32 {
	return int32(u>>1) ^ -int32(u&1)
}
