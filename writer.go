package vidpak

import (
	"os"
	"sync"

	"github.com/mewkiz/pkg/errutil"

	"github.com/vidpak/vidpak/frame"
)

// Writer packs and writes frames into a Vidpak file (spec §4.4). A Writer
// is not safe for concurrent use by more than one goroutine; one dedicated
// worker goroutine performs the actual disk writes (spec §5).
type Writer struct {
	mu   sync.Mutex
	cond *sync.Cond

	file *os.File
	ctx  *frame.Context

	width, height, bpp, tileWidth, tileHeight uint32
	metadata                                  []byte

	buf      [2][]byte // double buffer, each ctx.MaxPackedSize() bytes
	frontIdx int

	fileSize   int64
	frameCount uint32
	offsets    []int64

	opened bool
	busy   bool

	job       writeJob
	workerErr error

	wg sync.WaitGroup
}

type writeJob struct {
	header  recordHeader
	payload []byte
	extra   []byte
}

// Create creates (or truncates) the Vidpak file at path and writes its
// header, flushing so that late-attaching readers see a valid header
// immediately (spec §4.4 "Header emit").
func Create(path string, width, height, bpp, tileWidth, tileHeight int, metadata []byte) (*Writer, error) {
	const op = "vidpak.Create"
	ctx, err := frame.NewContext(width, height, bpp, tileWidth, tileHeight)
	if err != nil {
		return nil, usagef(op, "%v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, ioFailure(op, err)
	}

	if err := writeHeader(f, uint32(width), uint32(height), uint32(bpp), uint32(tileWidth), uint32(tileHeight), metadata); err != nil {
		f.Close()
		return nil, ioFailure(op, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, ioFailure(op, err)
	}

	w := &Writer{
		file:       f,
		ctx:        ctx,
		width:      uint32(width),
		height:     uint32(height),
		bpp:        uint32(bpp),
		tileWidth:  uint32(tileWidth),
		tileHeight: uint32(tileHeight),
		metadata:   metadata,
		fileSize:   int64(headerFixedSize) + int64(len(metadata)),
		opened:     true,
	}
	w.cond = sync.NewCond(&w.mu)
	size := ctx.MaxPackedSize()
	w.buf[0] = make([]byte, size)
	w.buf[1] = make([]byte, size)

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// WriteFrame packs f synchronously into the writer's front buffer, then
// hands the framed record off to the I/O worker and swaps to the back
// buffer, so the caller may begin packing frame N+1 while frame N is
// flushing (spec §4.4 "write_frame", §5 "Double buffering").
func (w *Writer) WriteFrame(timestamp uint64, f *frame.Frame, extra []byte) error {
	const op = "vidpak.WriteFrame"

	w.mu.Lock()
	if !w.opened {
		w.mu.Unlock()
		return usagef(op, "writer is closed")
	}
	w.mu.Unlock()

	front := w.buf[w.frontIdx]
	n, err := w.ctx.Pack(front, f)
	if err != nil {
		return usagef(op, "%v", err)
	}

	w.mu.Lock()
	for w.busy {
		w.cond.Wait()
	}
	if w.workerErr != nil {
		err := w.workerErr
		w.mu.Unlock()
		w.Close(true)
		return ioFailure(op, err)
	}
	if !w.opened {
		w.mu.Unlock()
		return usagef(op, "writer is closed")
	}

	w.offsets = append(w.offsets, w.fileSize)
	w.job = writeJob{
		header:  recordHeader{Timestamp: timestamp, DataSize: uint32(n), ExtraSize: uint32(len(extra))},
		payload: front[:n],
		extra:   extra,
	}
	w.fileSize += int64(recordHeaderSize) + int64(n) + int64(len(extra))
	w.frameCount++
	w.busy = true
	w.cond.Signal()
	w.mu.Unlock()

	// Swap to the other buffer; the worker now owns front until it clears
	// the busy flag.
	w.frontIdx ^= 1
	return nil
}

// loop is the writer's dedicated I/O worker goroutine (spec §5).
func (w *Writer) loop() {
	defer w.wg.Done()
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		for !w.busy && w.opened {
			w.cond.Wait()
		}
		if !w.opened {
			return
		}
		job := w.job
		w.mu.Unlock()
		err := writeRecord(w.file, job)
		w.mu.Lock()
		if err != nil {
			w.workerErr = err
		}
		w.busy = false
		w.cond.Broadcast()
	}
}

func writeRecord(f *os.File, job writeJob) error {
	hdr := encodeRecordHeader(job.header)
	if _, err := f.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := f.Write(job.payload); err != nil {
		return err
	}
	if len(job.extra) > 0 {
		if _, err := f.Write(job.extra); err != nil {
			return err
		}
	}
	return f.Sync()
}

// Flush waits until the last write_frame call has been completely written
// and synced, so any open reader can see it (spec §4.4).
func (w *Writer) Flush() error {
	const op = "vidpak.Flush"
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.opened {
		return usagef(op, "writer is closed")
	}
	for w.busy {
		w.cond.Wait()
	}
	if w.workerErr != nil {
		err := w.workerErr
		w.mu.Unlock()
		w.Close(true)
		w.mu.Lock()
		return ioFailure(op, err)
	}
	return nil
}

// Close drains the worker, writes the end-of-stream sentinel and the
// footer (both skipped if the worker previously failed), and closes the
// underlying file (spec §4.4 "close"). writeFramePos controls whether the
// footer includes the per-frame offset table.
func (w *Writer) Close(writeFramePos bool) error {
	const op = "vidpak.Close"
	w.mu.Lock()
	if !w.opened {
		w.mu.Unlock()
		return nil
	}
	for w.busy {
		w.cond.Wait()
	}
	w.opened = false
	w.cond.Broadcast()
	workerErr := w.workerErr
	w.mu.Unlock()
	w.wg.Wait()

	if workerErr == nil {
		workerErr = w.writeFooter(writeFramePos)
	}
	closeErr := w.file.Close()
	if workerErr != nil {
		return ioFailure(op, workerErr)
	}
	if closeErr != nil {
		return ioFailure(op, closeErr)
	}
	return nil
}

// FileSize returns the size of the header plus every frame record handed
// to the worker so far; the most recent record may still be in flight. It
// does not include the sentinel or footer, which are only written by Close.
func (w *Writer) FileSize() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fileSize
}

// Metadata returns the metadata blob this Writer was created with (spec
// §3/§6 "Metadata passthrough"). The returned slice must not be modified.
func (w *Writer) Metadata() []byte { return w.metadata }

func (w *Writer) writeFooter(writeFramePos bool) error {
	sentinel := encodeRecordHeader(sentinelRecord())
	if _, err := w.file.Write(sentinel[:]); err != nil {
		return err
	}
	footerPos, err := w.file.Seek(0, os.SEEK_CUR)
	if err != nil {
		return errutil.Err(err)
	}

	var offsets []uint64
	if writeFramePos {
		offsets = make([]uint64, len(w.offsets))
		for i, o := range w.offsets {
			offsets[i] = uint64(o)
		}
	}
	if _, err := writeFooter(w.file, w.frameCount, offsets); err != nil {
		return err
	}
	return writeFooterTrailer(w.file, footerPos)
}
