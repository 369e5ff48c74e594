// Package tile implements the per-tile codec: a cheap spatial predictor
// feeding an FSE-coded low-byte stream plus a raw high-bits side channel
// (spec §4.1). A tile is the unit of independent, parallelizable coding;
// the frame-level concatenation lives in package frame.
package tile

import (
	"encoding/binary"

	"github.com/mewkiz/pkg/errutil"
)

// headerSize is the size, in bytes, of the two length-prefix fields that
// precede a tile's compressed blobs in the frame payload (spec §4.1 "Tile
// record layout").
const headerSize = 8

// MaxPackedSize returns the worst-case number of bytes Encode can write for
// a tile of w x h pixels at the given bit depth, including the tile's own
// 8-byte length header. It must hold for every possible tile content (spec
// §4.2).
func MaxPackedSize(w, h, bpp int) int {
	n := w * h
	fseWorst := n + 1 + fseOverhead // mode byte + raw fallback + small constant
	highWorst := highBitsWorstCase(n, bpp)
	return headerSize + fseWorst + highWorst
}

// Encode predicts, remaps, and FSE-codes one tile of w x h pixels (in
// raster order) and writes the self-delimiting tile record to dst, which
// must be at least MaxPackedSize(w, h, bpp) bytes. It returns the number of
// bytes written.
func Encode(dst []byte, pix []uint16, w, h, bpp int) (int, error) {
	if len(pix) != w*h {
		return 0, errutil.Newf("tile: pixel count %d does not match tile shape %dx%d", len(pix), w, h)
	}

	residuals := make([]int32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			p := predict(pix, w, x, y, bpp)
			residuals[i] = int32(pix[i]) - int32(p)
		}
	}

	low, high, err := splitResidual(residuals, bpp, make([]byte, 0, w*h))
	if err != nil {
		return 0, errutil.Err(err)
	}
	fseBlob, err := compressLowBytes(low)
	if err != nil {
		return 0, errutil.Err(err)
	}

	need := headerSize + len(fseBlob) + len(high)
	if need > len(dst) {
		return 0, errutil.Newf("tile: encoded size %d exceeds destination buffer %d", need, len(dst))
	}
	binary.LittleEndian.PutUint32(dst[0:4], uint32(len(fseBlob)))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(len(high)))
	n := headerSize
	n += copy(dst[n:], fseBlob)
	n += copy(dst[n:], high)
	return n, nil
}

// Decode is the inverse of Encode: it parses one tile record from the
// front of src, reconstructs the w x h pixel tile into pix (which must have
// length w*h), and returns the number of bytes of src consumed.
func Decode(src []byte, pix []uint16, w, h, bpp int) (int, error) {
	if len(pix) != w*h {
		return 0, errutil.Newf("tile: pixel count %d does not match tile shape %dx%d", len(pix), w, h)
	}
	if len(src) < headerSize {
		return 0, errutil.Newf("tile: truncated tile header")
	}
	fseSize := binary.LittleEndian.Uint32(src[0:4])
	highSize := binary.LittleEndian.Uint32(src[4:8])
	rest := src[headerSize:]
	total := int64(fseSize) + int64(highSize)
	if total > int64(len(rest)) {
		return 0, errutil.Newf("tile: truncated tile payload; need %d bytes, have %d", total, len(rest))
	}
	fseBlob := rest[:fseSize]
	high := rest[fseSize : fseSize+highSize]

	low, err := decompressLowBytes(fseBlob, w*h)
	if err != nil {
		return 0, errutil.Err(err)
	}
	residuals := make([]int32, w*h)
	if err := joinResidual(low, high, bpp, residuals); err != nil {
		return 0, errutil.Err(err)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			p := predict(pix, w, x, y, bpp)
			pix[i] = uint16(int32(p) + residuals[i])
		}
	}
	return headerSize + int(fseSize) + int(highSize), nil
}
