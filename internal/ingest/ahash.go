package ingest

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// averageHash computes a 64-bit perceptual hash of an image: grayscale,
// shrink to 8x8, then one bit per cell set when the cell is brighter than
// the mean. Near-duplicate images land within a small Hamming
// distance of each other. Returned as 16 lowercase hex characters.
func averageHash(img image.Image) string {
	small := imaging.Grayscale(imaging.Resize(img, 8, 8, imaging.Lanczos))

	var cells [64]uint32
	var sum uint64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			r, _, _, _ := small.At(x, y).RGBA()
			cells[y*8+x] = r
			sum += uint64(r)
		}
	}
	mean := uint32(sum / 64)

	var bits uint64
	for i, c := range cells {
		if c > mean {
			bits |= 1 << uint(63-i)
		}
	}

	return fmt.Sprintf("%016x", bits)
}
