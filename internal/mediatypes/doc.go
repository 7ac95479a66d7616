// Package mediatypes identifies the image formats the vault accepts.
// Format detection sniffs leading magic bytes rather than trusting file
// extensions; extensions are only used for MIME fallbacks and labels.
package mediatypes
