package frame

import (
	"github.com/mewkiz/pkg/errutil"

	"github.com/vidpak/vidpak/tile"
)

// tileOffset returns the top-left pixel coordinate of tile (tx, ty) in
// tile-grid order (row-major, spec §4.2 "Concatenation").
func (c *Context) tileOffset(tx, ty int) (x0, y0 int) {
	return tx * c.TileWidth, ty * c.TileHeight
}

// extractTile copies the pixels of tile (tx, ty) out of f into a
// contiguous tw*th scratch buffer, since tile.Encode expects a packed
// tile-local pixel slice.
func (c *Context) extractTile(f *Frame, tx, ty int, scratch []uint16) {
	x0, y0 := c.tileOffset(tx, ty)
	for row := 0; row < c.TileHeight; row++ {
		src := f.Pix[(y0+row)*f.Width+x0 : (y0+row)*f.Width+x0+c.TileWidth]
		copy(scratch[row*c.TileWidth:(row+1)*c.TileWidth], src)
	}
}

// insertTile is the inverse of extractTile: it copies a tw*th scratch
// buffer back into f at tile (tx, ty).
func (c *Context) insertTile(f *Frame, tx, ty int, scratch []uint16) {
	x0, y0 := c.tileOffset(tx, ty)
	for row := 0; row < c.TileHeight; row++ {
		dst := f.Pix[(y0+row)*f.Width+x0 : (y0+row)*f.Width+x0+c.TileWidth]
		copy(dst, scratch[row*c.TileWidth:(row+1)*c.TileWidth])
	}
}

// Pack compresses f into dst, which must be at least c.MaxPackedSize()
// bytes long, and returns the number of bytes written (spec §4.2). Tiles
// are coded independently and emitted in row-major tile order; tile count
// and dimensions are recovered from the file header rather than repeated
// in-stream.
func (c *Context) Pack(dst []byte, f *Frame) (int, error) {
	if err := c.checkShape(f); err != nil {
		return 0, err
	}
	if len(dst) < c.maxPackedSize {
		return 0, errutil.Newf("frame: destination buffer is %d bytes, need at least %d", len(dst), c.maxPackedSize)
	}

	n := c.tilesX * c.tilesY
	written := make([]int, n)
	g := c.newGroup()
	for idx := 0; idx < n; idx++ {
		idx := idx
		tx, ty := idx%c.tilesX, idx/c.tilesX
		off := idx * c.tileMax
		g.Go(func() error {
			scratch := make([]uint16, c.TileWidth*c.TileHeight)
			c.extractTile(f, tx, ty, scratch)
			m, err := tile.Encode(dst[off:off+c.tileMax], scratch, c.TileWidth, c.TileHeight, c.Bpp)
			if err != nil {
				return errutil.Err(err)
			}
			written[idx] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	// Tiles were encoded into fixed-stride slots sized for the worst case;
	// compact them into a contiguous payload in tile order.
	total := 0
	for idx := 0; idx < n; idx++ {
		off := idx * c.tileMax
		if idx != 0 {
			copy(dst[total:total+written[idx]], dst[off:off+written[idx]])
		}
		total += written[idx]
	}
	return total, nil
}
