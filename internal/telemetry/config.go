package telemetry

import (
	"os"
	"sync"
)

// ObserveEnv overrides the configured switch when set to "0" or "1".
const ObserveEnv = "TOOLCHAT_OBSERVE_JSON"

// DefaultDir is used when Configure is given an empty directory.
const DefaultDir = ".toolchat"

var (
	mu      sync.RWMutex
	enabled bool
	dir     = DefaultDir
)

// Configure sets the startup switch and the directory holding events.jsonl.
func Configure(on bool, eventsDir string) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
	if eventsDir == "" {
		eventsDir = DefaultDir
	}
	dir = eventsDir
}

// Enabled reports whether events are written. The environment wins over Configure
// so a single run can be observed without touching the config file.
func Enabled() bool {
	switch os.Getenv(ObserveEnv) {
	case "1":
		return true
	case "0":
		return false
	}
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Dir returns the configured events directory.
func Dir() string {
	mu.RLock()
	defer mu.RUnlock()
	return dir
}
