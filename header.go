package vidpak

import (
	"encoding/binary"
	"io"
)

// fileHeader holds the parsed fixed portion of a Vidpak file (spec §3
// "File", §6).
type fileHeader struct {
	Version               uint16
	Width, Height         uint32
	Bpp                   uint32
	TileWidth, TileHeight uint32
	Metadata              []byte
}

// readHeader reads and validates the file header from r, including the
// metadata blob (spec §4.3 "Header parse").
func readHeader(r io.Reader) (*fileHeader, error) {
	buf := make([]byte, headerFixedSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, malformedf("vidpak.readHeader", "truncated file header: %v", err)
	}
	if string(buf[:6]) != Magic {
		return nil, malformedf("vidpak.readHeader", "bad magic %q, want %q", buf[:6], Magic)
	}
	version := binary.LittleEndian.Uint16(buf[6:8])
	if version != Version1 && version != Version2 {
		return nil, malformedf("vidpak.readHeader", "unknown file version %d", version)
	}
	h := &fileHeader{
		Version:    version,
		Width:      binary.LittleEndian.Uint32(buf[8:12]),
		Height:     binary.LittleEndian.Uint32(buf[12:16]),
		Bpp:        binary.LittleEndian.Uint32(buf[16:20]),
		TileWidth:  binary.LittleEndian.Uint32(buf[20:24]),
		TileHeight: binary.LittleEndian.Uint32(buf[24:28]),
	}
	metadataLen := binary.LittleEndian.Uint32(buf[28:32])
	h.Metadata = make([]byte, metadataLen)
	if _, err := io.ReadFull(r, h.Metadata); err != nil {
		return nil, malformedf("vidpak.readHeader", "truncated metadata (want %d bytes): %v", metadataLen, err)
	}
	return h, nil
}

// writeHeader emits the fixed header plus metadata, always as version 2
// (spec §4.4 "Header emit"); v1 files are readable but vidpak only writes
// v2.
func writeHeader(w io.Writer, width, height, bpp, tileWidth, tileHeight uint32, metadata []byte) error {
	buf := make([]byte, headerFixedSize)
	copy(buf[:6], Magic)
	binary.LittleEndian.PutUint16(buf[6:8], Version2)
	binary.LittleEndian.PutUint32(buf[8:12], width)
	binary.LittleEndian.PutUint32(buf[12:16], height)
	binary.LittleEndian.PutUint32(buf[16:20], bpp)
	binary.LittleEndian.PutUint32(buf[20:24], tileWidth)
	binary.LittleEndian.PutUint32(buf[24:28], tileHeight)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(len(metadata)))
	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := w.Write(metadata)
	return err
}
