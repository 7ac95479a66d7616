// Package preview renders the thumbnail stored in every media container: a
// proportional resize to a fixed 500-pixel width, re-encoded as JPEG at
// quality 80. The portable path runs on disintegration/imaging; when libvips
// is enabled it takes over decoding and shrinking, which is considerably
// faster and lighter on memory for large originals, with imaging as the
// fallback.
package preview
