// Package manifest defines the records describing produced assets and
// serializes them for the browser-side gallery.
package manifest
