package tile

import (
	"bytes"

	"github.com/icza/bitio"

	vbits "github.com/vidpak/vidpak/internal/bits"
)

// highBitWidth returns the number of bits of the folded residual that don't
// fit in the low byte FSE sees. For bpp <= 7 the folded residual already
// fits in a single byte and no side channel is needed.
func highBitWidth(bpp int) uint8 {
	w := bpp + 1 - 8
	if w < 0 {
		return 0
	}
	return uint8(w)
}

// splitResidual decomposes residuals into a low-byte stream (fed to the FSE
// coder) and a tightly bit-packed high-bits side channel (spec §4.1 Stage
// 2). low aliases lowOut and is only valid until lowOut is reused; high is
// freshly allocated on each call.
func splitResidual(residuals []int32, bpp int, lowOut []byte) (low []byte, high []byte, err error) {
	hw := highBitWidth(bpp)
	low = lowOut[:0]
	var highBuf bytes.Buffer
	bw := bitio.NewWriter(&highBuf)
	for _, r := range residuals {
		u := vbits.FoldZigZag(r)
		low = append(low, byte(u))
		if hw > 0 {
			if err := bw.WriteBits(uint64(u>>8), hw); err != nil {
				return nil, nil, err
			}
		}
	}
	if hw > 0 {
		if _, err := bw.Align(); err != nil {
			return nil, nil, err
		}
	}
	return low, highBuf.Bytes(), nil
}

// joinResidual is the inverse of splitResidual: it reconstructs the folded
// residual stream from the low-byte and high-bits streams.
func joinResidual(low, high []byte, bpp int, out []int32) error {
	hw := highBitWidth(bpp)
	br := bitio.NewReader(bytes.NewReader(high))
	for i, lo := range low {
		u := uint32(lo)
		if hw > 0 {
			hi, err := br.ReadBits(hw)
			if err != nil {
				return err
			}
			u |= uint32(hi) << 8
		}
		out[i] = vbits.UnfoldZigZag(u)
	}
	return nil
}

// highBitsWorstCase bounds the packed size, in bytes, of the high-bits side
// channel for a tile of n pixels (spec §4.2).
func highBitsWorstCase(n int, bpp int) int {
	hw := int(highBitWidth(bpp))
	if hw == 0 {
		return 0
	}
	return (n*hw + 7) / 8
}
