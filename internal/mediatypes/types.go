package mediatypes

import (
	"path/filepath"
	"strings"
)

// Format is a canonical image format name as reported by sniffing.
type Format string

const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG Format = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG Format = "png"
	// FormatGIF is the GIF image format.
	FormatGIF Format = "gif"
	// FormatWebP is the WebP image format.
	FormatWebP Format = "webp"
	// FormatBMP is the BMP image format.
	FormatBMP Format = "bmp"
	// FormatUnknown is returned when no known signature matches.
	FormatUnknown Format = ""
)

// acceptedFormats are the formats the ingest pipeline admits. Everything the
// vault stores must decode with one of the registered Go image decoders.
var acceptedFormats = map[Format]bool{
	FormatJPEG: true,
	FormatPNG:  true,
	FormatGIF:  true,
	FormatWebP: true,
	FormatBMP:  true,
}

// formatMimeTypes maps canonical formats to their MIME types.
var formatMimeTypes = map[Format]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatGIF:  "image/gif",
	FormatWebP: "image/webp",
	FormatBMP:  "image/bmp",
}

// IsAccepted reports whether the format is admitted by the ingest pipeline.
func IsAccepted(f Format) bool {
	return acceptedFormats[f]
}

// MimeType returns the MIME type for a canonical format, or the generic
// binary type when the format is unknown.
func MimeType(f Format) string {
	if mime, ok := formatMimeTypes[f]; ok {
		return mime
	}
	return "application/octet-stream"
}

// Ext returns the lowercased extension of a file name, including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Sniff identifies an image format from the leading bytes of a file.
// It recognizes the signatures of the accepted formats and returns
// FormatUnknown for anything else.
func Sniff(header []byte) Format {
	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return FormatJPEG

	case len(header) >= 8 && header[0] == 0x89 && header[1] == 0x50 && header[2] == 0x4E && header[3] == 0x47 &&
		header[4] == 0x0D && header[5] == 0x0A && header[6] == 0x1A && header[7] == 0x0A:
		return FormatPNG

	case len(header) >= 6 && header[0] == 0x47 && header[1] == 0x49 && header[2] == 0x46 && header[3] == 0x38 &&
		(header[4] == 0x37 || header[4] == 0x39) && header[5] == 0x61:
		return FormatGIF

	case len(header) >= 12 && header[0] == 0x52 && header[1] == 0x49 && header[2] == 0x46 && header[3] == 0x46 &&
		header[8] == 0x57 && header[9] == 0x45 && header[10] == 0x42 && header[11] == 0x50:
		return FormatWebP

	case len(header) >= 2 && header[0] == 0x42 && header[1] == 0x4D:
		return FormatBMP
	}

	return FormatUnknown
}
