// Package logging provides leveled logging with environment-based
// configuration via LOG_LEVEL or DEBUG.
package logging
