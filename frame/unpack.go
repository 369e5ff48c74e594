package frame

import (
	"encoding/binary"

	"github.com/mewkiz/pkg/errutil"

	"github.com/vidpak/vidpak/tile"
)

// Unpack decompresses src, previously produced by Pack, into f (spec
// §4.2). It errors if the payload is truncated, if the declared tile
// blobs don't fit the remaining bytes, or if an FSE block is malformed.
func (c *Context) Unpack(src []byte, f *Frame) error {
	if err := c.checkShape(f); err != nil {
		return err
	}

	n := c.tilesX * c.tilesY
	offsets := make([]int, n)
	lengths := make([]int, n)
	pos := 0
	for idx := 0; idx < n; idx++ {
		if pos+8 > len(src) {
			return errutil.Newf("frame: truncated payload; tile %d header missing (have %d of needed %d bytes)", idx, len(src), pos+8)
		}
		fseSize := int(binary.LittleEndian.Uint32(src[pos : pos+4]))
		highSize := int(binary.LittleEndian.Uint32(src[pos+4 : pos+8]))
		length := 8 + fseSize + highSize
		if pos+length > len(src) {
			return errutil.Newf("frame: truncated payload; tile %d needs %d bytes, only %d remain", idx, length, len(src)-pos)
		}
		offsets[idx] = pos
		lengths[idx] = length
		pos += length
	}

	g := c.newGroup()
	for idx := 0; idx < n; idx++ {
		idx := idx
		tx, ty := idx%c.tilesX, idx/c.tilesX
		off, length := offsets[idx], lengths[idx]
		g.Go(func() error {
			scratch := make([]uint16, c.TileWidth*c.TileHeight)
			consumed, err := tile.Decode(src[off:off+length], scratch, c.TileWidth, c.TileHeight, c.Bpp)
			if err != nil {
				return errutil.Err(err)
			}
			if consumed != length {
				return errutil.Newf("frame: tile %d decode consumed %d bytes, expected %d", idx, consumed, length)
			}
			c.insertTile(f, tx, ty, scratch)
			return nil
		})
	}
	return g.Wait()
}
