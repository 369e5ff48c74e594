// Package frame implements the frame-level pack context: tiling a frame,
// concatenating per-tile compressed blobs, and bounding the worst-case
// packed size (spec §4.2). The per-tile codec itself lives in package
// tile.
package frame

import (
	"github.com/mewkiz/pkg/errutil"
	"golang.org/x/sync/errgroup"

	"github.com/vidpak/vidpak/tile"
)

// Context is the immutable configuration derived from (width, height, bpp,
// tileWidth, tileHeight). It is created once per reader/writer and
// destroyed on close (spec §3 "Pack context").
type Context struct {
	Width, Height       int
	Bpp                 int
	TileWidth, TileHeight int

	tilesX, tilesY int
	tileMax        int // MaxPackedSize of a single tile
	maxPackedSize  int
}

// NewContext validates the geometry and builds a Context. It returns a
// UsageError-flavored error (via errutil, wrapped by callers that care
// about error kind) for non-divisible tile sizes, non-positive dimensions,
// or bpp outside [1,16].
func NewContext(width, height, bpp, tileWidth, tileHeight int) (*Context, error) {
	if width <= 0 || height <= 0 {
		return nil, errutil.Newf("frame: width and height must be positive, got %dx%d", width, height)
	}
	if bpp < 1 || bpp > 16 {
		return nil, errutil.Newf("frame: bpp must be in [1,16], got %d", bpp)
	}
	if tileWidth <= 0 || tileHeight <= 0 {
		return nil, errutil.Newf("frame: tile size must be positive, got %dx%d", tileWidth, tileHeight)
	}
	if width%tileWidth != 0 {
		return nil, errutil.Newf("frame: tile width %d does not divide frame width %d", tileWidth, width)
	}
	if height%tileHeight != 0 {
		return nil, errutil.Newf("frame: tile height %d does not divide frame height %d", tileHeight, height)
	}

	c := &Context{
		Width:      width,
		Height:     height,
		Bpp:        bpp,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		tilesX:     width / tileWidth,
		tilesY:     height / tileHeight,
	}
	c.tileMax = tile.MaxPackedSize(tileWidth, tileHeight, bpp)
	c.maxPackedSize = c.tilesX * c.tilesY * c.tileMax
	return c, nil
}

// NumTiles returns the number of tiles a frame is partitioned into.
func (c *Context) NumTiles() int {
	return c.tilesX * c.tilesY
}

// MaxPackedSize returns the tight worst-case byte length of a packed frame
// under this context (spec §4.2), used by callers to preallocate a single
// scratch buffer that is guaranteed to hold any packed frame.
func (c *Context) MaxPackedSize() int {
	return c.maxPackedSize
}

// parallelLimit is the errgroup limit on how many tiles a single
// Pack/Unpack call encodes/decodes concurrently. Tile-level parallelism
// inside one call is permitted, not required, by spec §4.2. The limit is
// the tile count itself, so every tile gets its own goroutine.
func (c *Context) parallelLimit() int {
	n := c.NumTiles()
	if n < 2 {
		return 1
	}
	return n
}

// newGroup returns an errgroup bounded to this context's tile-parallelism
// limit, used by Pack and Unpack to fan out across tiles.
func (c *Context) newGroup() *errgroup.Group {
	g := new(errgroup.Group)
	g.SetLimit(c.parallelLimit())
	return g
}
