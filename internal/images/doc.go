// Package images transcodes static raster images into web-delivery variants:
// a width-capped full tier and a square-cropped thumbnail tier, each encoded
// as webp (libvips) and jpeg (pure Go).
package images
