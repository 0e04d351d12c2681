// Package workers calculates how many image encodes may run concurrently
// for one asset, respecting container CPU limits.
package workers
