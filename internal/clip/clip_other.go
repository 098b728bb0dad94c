//go:build !darwin && !windows && !linux

package clip

// New returns the headless no-op backend on platforms without a supported
// system clipboard.
func New() Backend {
	return newHeadless()
}
