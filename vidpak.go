// Package vidpak implements the Vidpak container: an append-only sequence
// of losslessly compressed scientific video frames, with a fixed header,
// per-frame record framing, asynchronous double-buffered I/O, support for
// reading a file currently being written ("endless mode"), and an optional
// random-access footer index (spec §1–§2).
//
// The per-tile codec (spatial prediction, residual remapping, FSE coding)
// lives in package tile; the per-frame tiling and packed-size bound live in
// package frame. This package owns the file container state machine.
package vidpak

// Magic is the fixed signature at the start of every Vidpak file.
const Magic = "Vidpak"

// Supported file format versions (spec §3 "File").
const (
	Version1 uint16 = 1
	Version2 uint16 = 2
)

// headerFixedSize is the number of bytes in the fixed portion of the file
// header, before the metadata blob (spec §6): 6-byte magic + u16 version +
// six u32 geometry fields.
const headerFixedSize = 6 + 2 + 6*4

// recordHeaderSize is the size, in bytes, of a frame record's fixed header
// (spec §3 "Frame record (on-disk)"): u64 timestamp + u32 data_size + u32
// extra_size.
const recordHeaderSize = 8 + 4 + 4

// sentinelSize32 marks the end-of-stream sentinel record's data_size and
// extra_size fields (spec §3).
const sentinelSize32 = 0xFFFFFFFF

// footerStartMagic and footerEndMagic bracket the optional v2 footer
// (spec §6).
const (
	footerStartMagic = "VPFootSt"
	footerEndMagic   = "VPFooter"
)
