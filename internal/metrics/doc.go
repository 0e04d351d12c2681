// Package metrics records Prometheus counters for pipeline runs and writes
// them to a textfile, since a batch process has no scrape endpoint.
package metrics
