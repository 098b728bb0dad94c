//go:build !darwin && !windows && !linux

package fill

// NewInjector reports paste injection as unsupported on this platform.
func NewInjector() Injector {
	return noopInjector{}
}
