package images

import (
	"sync"

	"gallery-pipeline/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
)

// InitVips initializes the libvips library.
// This should be called once at startup, before any encodes run.
func InitVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return
	}

	// Route vips messages into our logger, suppressing chatter below the
	// configured level.
	var vipsLevel vips.LogLevel
	if logging.IsDebugEnabled() {
		vipsLevel = vips.LogLevelInfo
	} else {
		vipsLevel = vips.LogLevelWarning
	}
	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		switch {
		case level <= vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case level == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}, vipsLevel)

	// Conservative memory settings: the encode fan-out of a single asset is
	// the only concurrency, and ffmpeg needs headroom on the same machine.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
}

// ShutdownVips cleans up libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		logging.Debug("libvips shutdown complete")
	}
}
