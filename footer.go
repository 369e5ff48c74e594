package vidpak

import (
	"encoding/binary"
	"io"
)

// footerTrailerSize is the fixed size of the trailer that must be the
// final 16 bytes of a v2 file: "VPFooter" + u64 absolute footer start
// offset (spec §3 "Frame index (v2 footer, optional)").
const footerTrailerSize = 8 + 8

// footer is the parsed v2 footer: the frame count and, optionally, the
// byte offset of each frame's record header.
type footer struct {
	FrameCount uint32
	Offsets    []uint64 // nil if the writer omitted the offset table
}

// writeFooter emits the footer body ("VPFootSt" onward) to w and returns
// the number of bytes written. The caller records footerPos (the file
// position before this call) for the trailer (spec §4.4 "close").
func writeFooter(w io.Writer, frameCount uint32, offsets []uint64) (int64, error) {
	var written int64

	n, err := io.WriteString(w, footerStartMagic)
	written += int64(n)
	if err != nil {
		return written, err
	}

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], frameCount)
	n, err = w.Write(hdr[:])
	written += int64(n)
	if err != nil {
		return written, err
	}

	hasOffsets := offsets != nil
	flag := byte(0)
	if hasOffsets {
		flag = 1
	}
	n, err = w.Write([]byte{flag})
	written += int64(n)
	if err != nil {
		return written, err
	}

	if hasOffsets {
		buf := make([]byte, 8*len(offsets))
		for i, off := range offsets {
			binary.LittleEndian.PutUint64(buf[i*8:i*8+8], off)
		}
		n, err = w.Write(buf)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// writeFooterTrailer emits the final 16 bytes of a v2 file: the footer end
// magic plus the absolute offset of the footer start.
func writeFooterTrailer(w io.Writer, footerPos int64) error {
	var buf [footerTrailerSize]byte
	copy(buf[:8], footerEndMagic)
	binary.LittleEndian.PutUint64(buf[8:], uint64(footerPos))
	_, err := w.Write(buf[:])
	return err
}

// readFooter attempts to recover the v2 footer from r, a ReadSeeker
// positioned anywhere (its position is not meaningful on return). It
// returns (nil, nil) — not an error — on any magic mismatch or truncation,
// per spec §4.3 "Footer recovery": callers silently fall back to scan
// mode.
func readFooter(r io.ReadSeeker) (*footer, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if end < footerTrailerSize {
		return nil, nil
	}
	if _, err := r.Seek(-footerTrailerSize, io.SeekEnd); err != nil {
		return nil, err
	}
	trailer := make([]byte, footerTrailerSize)
	if _, err := io.ReadFull(r, trailer); err != nil {
		return nil, nil
	}
	if string(trailer[:8]) != footerEndMagic {
		return nil, nil
	}
	footerPos := int64(binary.LittleEndian.Uint64(trailer[8:]))
	if footerPos < 0 || footerPos > end {
		return nil, nil
	}

	if _, err := r.Seek(footerPos, io.SeekStart); err != nil {
		return nil, nil
	}
	startMagic := make([]byte, 8)
	if _, err := io.ReadFull(r, startMagic); err != nil {
		return nil, nil
	}
	if string(startMagic) != footerStartMagic {
		return nil, nil
	}

	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, nil
	}
	frameCount := binary.LittleEndian.Uint32(countBuf[:])

	var flagBuf [1]byte
	if _, err := io.ReadFull(r, flagBuf[:]); err != nil {
		return nil, nil
	}

	f := &footer{FrameCount: frameCount}
	if flagBuf[0] != 0 {
		raw := make([]byte, 8*int64(frameCount))
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, nil
		}
		f.Offsets = make([]uint64, frameCount)
		for i := range f.Offsets {
			f.Offsets[i] = binary.LittleEndian.Uint64(raw[i*8 : i*8+8])
		}
	}
	return f, nil
}
