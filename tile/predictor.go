package tile

// predict returns the predicted value for the pixel at (x, y) within a tile
// of the given width, given the pixels already reconstructed in raster
// order before it (pix holds only those pixels; pix[y*w+x] for positions at
// or after the current one is not yet valid).
//
// The predictor is MED-like but deliberately cheap: it never looks at more
// than the immediate left and top neighbors, trading compression ratio for
// throughput (see spec §4.1 Stage 1).
func predict(pix []uint16, w, x, y, bpp int) uint16 {
	switch {
	case x == 0 && y == 0:
		// Midpoint of the pixel range; there is no neighbor to predict from.
		return uint16(1) << uint(bpp-1)
	case y == 0:
		return pix[y*w+x-1]
	case x == 0:
		return pix[(y-1)*w+x]
	default:
		left := uint32(pix[y*w+x-1])
		top := uint32(pix[(y-1)*w+x])
		return uint16((left + top) >> 1)
	}
}
