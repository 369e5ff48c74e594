package vidpak

import (
	"io"
	"os"
	"sync"

	"github.com/vidpak/vidpak/frame"
	"github.com/vidpak/vidpak/internal/bufseekio"
)

// recordAt is a resolved frame record: its header plus the absolute file
// offset of its payload.
type recordAt struct {
	header  recordHeader
	dataPos int64
}

// readResult is the payload a worker job hands back to the caller: the
// decoded header, the packed tile bytes (a slice into one of the Reader's
// two scratch buffers), and the sidecar extra bytes.
type readResult struct {
	header  recordHeader
	payload []byte
	extra   []byte
}

// Reader streams frames out of a Vidpak file, forward-scanning the record
// chain (or consulting the v2 footer, when present) to resolve frame
// indices to file offsets (spec §4.3). Like Writer, a Reader is not safe
// for concurrent use by more than one goroutine, and offloads the actual
// disk reads to one dedicated worker goroutine (spec §5).
type Reader struct {
	mu   sync.Mutex
	cond *sync.Cond

	file     *os.File
	rs       *bufseekio.ReadSeeker // buffered seeking over file, used by the scan path
	ctx      *frame.Context
	metadata []byte

	endless bool

	// Footer-backed random access, when the v2 footer carried an offset
	// table (spec §6 "Frame index").
	haveFooterOffsets bool
	footerOffsets     []uint64

	// Scan-mode state: the forward-only fallback used whenever no footer
	// offset table is available, or the reader was opened in endless mode
	// (spec §4.3 "Footer recovery").
	fileSize        int64
	lastHeaderIndex int
	headerCache     map[int]recordAt
	haveAllHeaders  bool
	frameCountKnown bool
	frameCount      int

	buf       [2][]byte // double buffer, each ctx.MaxPackedSize() bytes
	curBufIdx int       // buffer the most recently completed result lives in

	opened bool
	busy   bool

	curIndex  int // index the worker should resolve next; -1 if none scheduled
	result    *readResult
	workerErr error

	wg sync.WaitGroup
}

// Open opens the Vidpak file at path for reading. When endless is true,
// the footer (if any) is ignored and frame resolution always scans
// forward, tolerating a writer that is still appending (spec §4.3
// "Endless mode").
func Open(path string, endless bool) (*Reader, error) {
	const op = "vidpak.Open"
	f, err := os.Open(path)
	if err != nil {
		return nil, ioFailure(op, err)
	}

	hdr, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	ctx, err := frame.NewContext(int(hdr.Width), int(hdr.Height), int(hdr.Bpp), int(hdr.TileWidth), int(hdr.TileHeight))
	if err != nil {
		f.Close()
		return nil, usagef(op, "%v", err)
	}

	// Resolve the footer, if any, using raw seeks on f directly (it jumps
	// to the end and back, which a fresh bufseekio buffer gains nothing
	// from); the scan path below gets the buffered wrapper instead, since
	// it is a tight forward-seeking loop.
	var footerOffsets []uint64
	var frameCountKnown bool
	var frameCount int
	if !endless && hdr.Version == Version2 {
		if ft, ferr := readFooter(f); ferr == nil && ft != nil {
			frameCountKnown = true
			frameCount = int(ft.FrameCount)
			footerOffsets = ft.Offsets
		}
	}

	r := &Reader{
		file:              f,
		rs:                bufseekio.NewReadSeeker(f),
		ctx:               ctx,
		metadata:          hdr.Metadata,
		endless:           endless,
		haveFooterOffsets: footerOffsets != nil,
		footerOffsets:     footerOffsets,
		fileSize:          int64(headerFixedSize) + int64(len(hdr.Metadata)),
		lastHeaderIndex:   -1,
		headerCache:       make(map[int]recordAt),
		frameCountKnown:   frameCountKnown,
		frameCount:        frameCount,
		curIndex:          -1,
		opened:            true,
	}
	r.cond = sync.NewCond(&r.mu)
	size := ctx.MaxPackedSize()
	r.buf[0] = make([]byte, size)
	r.buf[1] = make([]byte, size)

	r.wg.Add(1)
	go r.loop()
	return r, nil
}

// Width returns the frame width in pixels, as declared in the file header.
func (r *Reader) Width() int { return r.ctx.Width }

// Height returns the frame height in pixels, as declared in the file
// header.
func (r *Reader) Height() int { return r.ctx.Height }

// TileWidth returns the tile width in pixels, as declared in the file
// header.
func (r *Reader) TileWidth() int { return r.ctx.TileWidth }

// TileHeight returns the tile height in pixels, as declared in the file
// header.
func (r *Reader) TileHeight() int { return r.ctx.TileHeight }

// Metadata returns the arbitrary metadata blob stored in the file header
// (spec §3/§6 "Metadata passthrough"). The returned slice must not be
// modified; it is the Reader's own copy.
func (r *Reader) Metadata() []byte { return r.metadata }

// FileSize returns the end offset of the last record resolved by header
// scanning so far. Records resolved through the footer's offset table, and
// a frame count taken from the footer, do not advance it. Once a scan has
// reached the end of the stream, it is the file's size excluding the
// sentinel record and footer.
func (r *Reader) FileSize() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fileSize
}

// resolvePrefetch turns the prefetch argument of ReadFrame into a
// schedule/target pair. A bool false (or nil) disables prefetching; a
// bool true schedules index+1; any non-negative int schedules that exact
// index. This is a deliberate Go-idiom choice: rather than Python's
// implicit "default argument is True", callers must opt in explicitly.
func resolvePrefetch(prefetch interface{}, index int) (bool, int) {
	switch v := prefetch.(type) {
	case bool:
		if !v {
			return false, 0
		}
		return true, index + 1
	case int:
		if v < 0 {
			return false, 0
		}
		return true, v
	default:
		return false, 0
	}
}

// ReadFrame decodes the frame at index, optionally reusing out as the
// destination buffer, and optionally scheduling a background prefetch
// before returning (spec §4.3 "read_frame"). If out is nil a new Frame is
// allocated. It returns ErrFrameNotPresent if index is at or past the
// current end-of-stream.
func (r *Reader) ReadFrame(index int, out *frame.Frame, prefetch interface{}) (uint64, *frame.Frame, []byte, error) {
	const op = "vidpak.ReadFrame"
	if index < 0 {
		return 0, nil, nil, usagef(op, "frame index must be non-negative, got %d", index)
	}
	if out != nil && (out.Width != r.ctx.Width || out.Height != r.ctx.Height || len(out.Pix) != r.ctx.Width*r.ctx.Height) {
		return 0, nil, nil, usagef(op, "frame shape %dx%d does not match file shape %dx%d", out.Width, out.Height, r.ctx.Width, r.ctx.Height)
	}

	r.mu.Lock()
	if !r.opened {
		r.mu.Unlock()
		return 0, nil, nil, usagef(op, "reader is closed")
	}

	if r.curIndex != index {
		for r.busy {
			r.cond.Wait()
		}
		if r.workerErr != nil {
			err := r.workerErr
			r.mu.Unlock()
			r.Close()
			return 0, nil, nil, ioFailure(op, err)
		}
		r.result = nil
		r.curIndex = index
		r.busy = true
		r.cond.Signal()
	}

	for r.busy {
		r.cond.Wait()
	}
	if r.workerErr != nil {
		err := r.workerErr
		r.mu.Unlock()
		r.Close()
		return 0, nil, nil, ioFailure(op, err)
	}
	res := r.result
	r.result = nil

	if doPrefetch, target := resolvePrefetch(prefetch, index); doPrefetch {
		r.curIndex = target
		r.busy = true
		r.cond.Signal()
	} else {
		r.curIndex = -1
	}
	r.mu.Unlock()

	if res == nil {
		return 0, nil, nil, frameNotPresent(op, index)
	}

	if out == nil {
		out = frame.NewFrame(r.ctx.Width, r.ctx.Height)
	}
	if err := r.ctx.Unpack(res.payload, out); err != nil {
		return 0, nil, nil, malformedf(op, "%v", err)
	}
	return res.header.Timestamp, out, res.extra, nil
}

// CountFrames returns the total number of frames currently present in the
// file. In endless mode it always blocks until the writer's end-of-stream
// sentinel appears, since the count is definitionally unknown until then
// (spec §4.3 "count_frames"); maxCounted, when non-nil, bounds how many
// additional frames this call will scan before giving up and returning
// whatever is known so far (nil if still unknown).
func (r *Reader) CountFrames(maxCounted *int) (*int, error) {
	const op = "vidpak.CountFrames"
	if maxCounted != nil && *maxCounted < 0 {
		return nil, usagef(op, "max_counted must be non-negative")
	}

	r.mu.Lock()
	if r.frameCountKnown && !r.endless {
		n := r.frameCount
		r.mu.Unlock()
		return &n, nil
	}
	for r.busy {
		r.cond.Wait()
	}
	if r.workerErr != nil {
		err := r.workerErr
		r.mu.Unlock()
		r.Close()
		return nil, ioFailure(op, err)
	}

	if maxCounted == nil {
		for !r.frameCountKnown {
			if _, _, err := r.readFrameHeaderLocked(len(r.headerCache) + 1000); err != nil {
				r.mu.Unlock()
				return nil, ioFailure(op, err)
			}
		}
	} else if *maxCounted > 0 {
		if _, _, err := r.readFrameHeaderLocked(len(r.headerCache) + *maxCounted - 1); err != nil {
			r.mu.Unlock()
			return nil, ioFailure(op, err)
		}
	}

	var result *int
	if r.frameCountKnown && !r.endless {
		n := r.frameCount
		result = &n
	}
	r.mu.Unlock()
	return result, nil
}

// Close drains the worker and releases the underlying file handle. It is
// safe to call more than once.
func (r *Reader) Close() error {
	r.mu.Lock()
	if !r.opened {
		r.mu.Unlock()
		return nil
	}
	for r.busy {
		r.cond.Wait()
	}
	r.opened = false
	r.cond.Broadcast()
	workerErr := r.workerErr
	r.mu.Unlock()
	r.wg.Wait()

	closeErr := r.file.Close()
	if workerErr != nil {
		return ioFailure("vidpak.Close", workerErr)
	}
	if closeErr != nil {
		return ioFailure("vidpak.Close", closeErr)
	}
	return nil
}

// loop is the reader's dedicated I/O worker goroutine (spec §5). Header
// resolution runs under the lock (it is cheap, and only ever one goroutine
// touches the file at a time); the bulk payload read releases the lock so
// the caller's synchronous unpack of a previous result can overlap with it.
func (r *Reader) loop() {
	defer r.wg.Done()
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		for !r.busy && r.opened {
			r.cond.Wait()
		}
		if !r.opened {
			return
		}

		rec, found, err := r.readFrameHeaderLocked(r.curIndex)
		if err != nil {
			r.workerErr = err
			r.busy = false
			r.cond.Broadcast()
			return
		}
		if !found {
			r.result = nil
			r.busy = false
			r.cond.Broadcast()
			continue
		}

		target := 1 - r.curBufIdx
		dst := r.buf[target]
		r.mu.Unlock()
		n, extra, ioErr := readPayload(r.rs, rec, dst)
		r.mu.Lock()
		if ioErr != nil {
			r.workerErr = ioErr
			r.busy = false
			r.cond.Broadcast()
			return
		}
		r.curBufIdx = target
		r.result = &readResult{header: rec.header, payload: dst[:n], extra: extra}
		r.busy = false
		r.cond.Broadcast()
	}
}

// readFrameHeaderLocked resolves index to its record, either via the
// footer's offset table, the header cache, or by scanning forward from the
// last resolved record. It must be called with r.mu held. found is false
// (with a nil error) whenever index is past the current end-of-stream;
// that is not an error condition.
func (r *Reader) readFrameHeaderLocked(index int) (recordAt, bool, error) {
	if rec, ok := r.headerCache[index]; ok {
		return rec, true, nil
	}

	if r.haveFooterOffsets {
		if index < 0 || index >= len(r.footerOffsets) {
			return recordAt{}, false, nil
		}
		rec, ok, err := r.probeRecordAt(int64(r.footerOffsets[index]))
		if err != nil || !ok {
			return recordAt{}, false, err
		}
		r.headerCache[index] = rec
		return rec, true, nil
	}

	if r.haveAllHeaders {
		return recordAt{}, false, nil
	}

	for {
		nextIdx := r.lastHeaderIndex + 1
		rec, ok, err := r.probeRecordAt(r.fileSize)
		if err != nil {
			return recordAt{}, false, err
		}
		if !ok {
			if !r.endless {
				r.haveAllHeaders = true
				r.frameCountKnown = true
				r.frameCount = len(r.headerCache)
			}
			return recordAt{}, false, nil
		}
		r.headerCache[nextIdx] = rec
		r.lastHeaderIndex = nextIdx
		r.fileSize = rec.dataPos + int64(rec.header.DataSize) + int64(rec.header.ExtraSize)
		if nextIdx == index {
			return rec, true, nil
		}
	}
}

// probeRecordAt attempts to resolve one record header at the given file
// offset. It distinguishes three outcomes: a genuine I/O error (err !=
// nil), a record that is not yet fully present on disk or is the
// end-of-stream sentinel (ok == false, err == nil — a normal, retriable
// state in endless mode), and a fully readable record (ok == true).
// Observing the sentinel permanently disables endless mode, matching the
// writer's guarantee that the sentinel is only ever written once, last.
func (r *Reader) probeRecordAt(pos int64) (recordAt, bool, error) {
	hdrBuf := make([]byte, recordHeaderSize)
	if _, err := r.rs.ReadAt(pos, hdrBuf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return recordAt{}, false, nil
		}
		return recordAt{}, false, err
	}

	hdr := decodeRecordHeader(hdrBuf)
	if hdr.isSentinel() {
		r.endless = false
		return recordAt{}, false, nil
	}

	dataPos := pos + int64(recordHeaderSize)
	end := dataPos + int64(hdr.DataSize) + int64(hdr.ExtraSize)
	if end > dataPos {
		var one [1]byte
		if _, err := r.rs.ReadAt(end-1, one[:]); err != nil {
			return recordAt{}, false, nil
		}
	}
	return recordAt{header: hdr, dataPos: dataPos}, true, nil
}

// readPayload reads one record's packed tile bytes into dst (which must be
// at least rec.header.DataSize long) and its extra sidecar bytes into a
// freshly allocated slice.
func readPayload(rs *bufseekio.ReadSeeker, rec recordAt, dst []byte) (int, []byte, error) {
	n := int(rec.header.DataSize)
	if _, err := rs.ReadAt(rec.dataPos, dst[:n]); err != nil {
		return 0, nil, err
	}
	var extra []byte
	if rec.header.ExtraSize > 0 {
		extra = make([]byte, rec.header.ExtraSize)
		if _, err := io.ReadFull(rs, extra); err != nil {
			return 0, nil, err
		}
	}
	return n, extra, nil
}
