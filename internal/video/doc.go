// Package video renders animated images to webm via an external encoder,
// with an ordered profile fallback chain and a hard per-invocation timeout.
package video
