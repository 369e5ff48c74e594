package vidpak

import "encoding/binary"

// recordHeader is the fixed 16-byte header preceding every frame record's
// payload (spec §3 "Frame record (on-disk)").
type recordHeader struct {
	Timestamp uint64
	DataSize  uint32
	ExtraSize uint32
}

// isSentinel reports whether h is the end-of-stream sentinel record (spec
// §3): both size fields set to 0xFFFFFFFF, timestamp ignored.
func (h recordHeader) isSentinel() bool {
	return h.DataSize == sentinelSize32 && h.ExtraSize == sentinelSize32
}

func encodeRecordHeader(h recordHeader) [recordHeaderSize]byte {
	var buf [recordHeaderSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[8:12], h.DataSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.ExtraSize)
	return buf
}

func decodeRecordHeader(buf []byte) recordHeader {
	return recordHeader{
		Timestamp: binary.LittleEndian.Uint64(buf[0:8]),
		DataSize:  binary.LittleEndian.Uint32(buf[8:12]),
		ExtraSize: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// sentinelRecord is the record written by Writer.Close to mark a clean
// end-of-stream in v2 files (spec §4.4 step 1).
func sentinelRecord() recordHeader {
	return recordHeader{Timestamp: 0, DataSize: sentinelSize32, ExtraSize: sentinelSize32}
}
