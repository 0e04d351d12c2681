// Package assets discovers source media files and classifies them by
// extension into static and animated kinds.
package assets
