package tile

import (
	"github.com/klauspost/compress/fse"
	"github.com/mewkiz/pkg/errutil"
)

// Mode bytes prefixing a tile's low-byte blob, distinguishing an FSE-coded
// payload from the raw-mode escape (spec §4.1 Stage 3).
const (
	modeRaw byte = 0
	modeFSE byte = 1
)

// fseOverhead bounds the worst-case expansion of compressLowBytes over the
// raw-mode fallback: one mode byte plus the compressed stream's own table
// overhead when a run happens to be "just barely" compressible.
const fseOverhead = 16

// compressLowBytes entropy-codes src with a 12-bit-table FSE coder, falling
// back to a one-byte-tagged raw copy when the histogram is too flat or the
// payload too small for FSE to pay for its own table (spec §4.1 Stage 3).
func compressLowBytes(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{modeRaw}, nil
	}
	var s fse.Scratch
	compressed, err := fse.Compress(src, &s)
	switch err {
	case nil:
		out := make([]byte, 0, len(compressed)+1)
		out = append(out, modeFSE)
		out = append(out, compressed...)
		return out, nil
	case fse.ErrIncompressible, fse.ErrUseRLE:
		out := make([]byte, 0, len(src)+1)
		out = append(out, modeRaw)
		out = append(out, src...)
		return out, nil
	default:
		return nil, errutil.Err(err)
	}
}

// decompressLowBytes is the inverse of compressLowBytes. n is the expected
// number of decoded bytes, known a priori from the tile's pixel count.
func decompressLowBytes(src []byte, n int) ([]byte, error) {
	if len(src) == 0 {
		return nil, errutil.Newf("tile: empty low-byte blob")
	}
	mode, payload := src[0], src[1:]
	switch mode {
	case modeRaw:
		if len(payload) != n {
			return nil, errutil.Newf("tile: raw low-byte blob has %d bytes, want %d", len(payload), n)
		}
		return payload, nil
	case modeFSE:
		var s fse.Scratch
		out, err := fse.Decompress(payload, &s)
		if err != nil {
			return nil, errutil.Err(err)
		}
		if len(out) != n {
			return nil, errutil.Newf("tile: FSE blob decoded to %d bytes, want %d", len(out), n)
		}
		return out, nil
	default:
		return nil, errutil.Newf("tile: unknown low-byte blob mode %d", mode)
	}
}
