// Package rawframe reads and writes frames in the uncompressed raw format
// used by the vidpak-pack and vidpak-unpack commands to interchange with
// other tools: width*height little-endian u16 samples, row-major, with no
// framing of its own. Unlike the container's Reader/Writer, these helpers
// are plain synchronous io.Reader/io.Writer calls; a raw stream has no
// record structure to hand off to a worker goroutine.
package rawframe

import (
	"encoding/binary"
	"io"

	"github.com/vidpak/vidpak/frame"
)

// SampleSize is the on-disk size, in bytes, of one raw sample.
const SampleSize = 2

// ByteSize returns the number of raw bytes one w*h frame occupies.
func ByteSize(width, height int) int {
	return width * height * SampleSize
}

// ReadFrame reads one raw frame from r into f, whose Pix slice must already
// be sized width*height. It returns io.EOF only if zero bytes were read
// before the stream ended; a short, non-empty read is reported as
// io.ErrUnexpectedEOF, matching the reference tool's "incomplete frame"
// stop condition.
func ReadFrame(r io.Reader, f *frame.Frame) error {
	buf := make([]byte, ByteSize(f.Width, f.Height))
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if err == io.ErrUnexpectedEOF && n == 0 {
			return io.EOF
		}
		return err
	}
	for i := range f.Pix {
		f.Pix[i] = binary.LittleEndian.Uint16(buf[i*SampleSize:])
	}
	return nil
}

// WriteFrame writes f to w in raw little-endian form.
func WriteFrame(w io.Writer, f *frame.Frame) error {
	buf := make([]byte, ByteSize(f.Width, f.Height))
	for i, v := range f.Pix {
		binary.LittleEndian.PutUint16(buf[i*SampleSize:], v)
	}
	_, err := w.Write(buf)
	return err
}
