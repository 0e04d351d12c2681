// Package pipeline sequences discovered assets through the static and
// animated transcoders, isolating per-item failures so one broken file never
// aborts the batch.
package pipeline
