package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/disintegration/imaging"

	"media-vault/internal/logging"
	"media-vault/internal/metrics"
)

const (
	// TargetWidth is the fixed thumbnail width in logical pixels. Height
	// follows the source aspect ratio.
	TargetWidth = 500

	// JPEGQuality is the re-encode quality for thumbnails.
	JPEGQuality = 80
)

// Generator renders thumbnails for ingested images.
type Generator struct {
	useVips bool
}

// NewGenerator creates a Generator. When useVips is set and libvips has been
// initialized (see InitVips), file-based rendering goes through vips first.
func NewGenerator(useVips bool) *Generator {
	return &Generator{useVips: useVips}
}

// Render produces thumbnail JPEG bytes from an already-decoded image.
// srcPath points at the stored original; it is only consulted by the vips
// path, which re-decodes with shrink-on-load instead of resizing the
// in-memory image.
func (g *Generator) Render(img image.Image, srcPath string) ([]byte, error) {
	if g.useVips && IsVipsAvailable() && srcPath != "" {
		start := time.Now()
		data, err := renderWithVips(srcPath)
		if err == nil {
			metrics.ThumbnailDuration.WithLabelValues("vips").Observe(time.Since(start).Seconds())
			return data, nil
		}
		logging.Debug("vips thumbnail failed for %s, falling back to imaging: %v", srcPath, err)
	}

	start := time.Now()
	thumb := imaging.Resize(img, TargetWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	metrics.ThumbnailDuration.WithLabelValues("imaging").Observe(time.Since(start).Seconds())
	return buf.Bytes(), nil
}
