package frame

import "github.com/mewkiz/pkg/errutil"

// A Frame is a two-dimensional array of unsigned pixel samples, width x
// height, row-major, left-to-right top-to-bottom (spec §3 "Frame"). Every
// sample must lie in [0, 2^bpp) for the Context it is packed or unpacked
// with.
type Frame struct {
	Width, Height int
	// Pix holds the samples in raster order; len(Pix) == Width*Height.
	Pix []uint16
}

// NewFrame allocates a zeroed frame of the given shape.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint16, width*height),
	}
}

// At returns the sample at (x, y).
func (f *Frame) At(x, y int) uint16 {
	return f.Pix[y*f.Width+x]
}

// Set assigns the sample at (x, y).
func (f *Frame) Set(x, y int, v uint16) {
	f.Pix[y*f.Width+x] = v
}

// checkShape verifies f has exactly the shape c was configured for.
func (c *Context) checkShape(f *Frame) error {
	if f.Width != c.Width || f.Height != c.Height {
		return errutil.Newf("frame: frame shape %dx%d does not match context shape %dx%d", f.Width, f.Height, c.Width, c.Height)
	}
	if len(f.Pix) != c.Width*c.Height {
		return errutil.Newf("frame: frame has %d samples, want %d", len(f.Pix), c.Width*c.Height)
	}
	return nil
}
