package fill

import "errors"

// ErrUnsupported is returned by Paste on platforms without a keystroke
// injector. The commit itself is unaffected.
var ErrUnsupported = errors.New("paste injection not supported on this platform")

// Injector delivers the platform paste keystroke (Ctrl+V / Cmd+V) to
// whichever foreign window currently holds input focus. Build constraints
// select the implementation; see inject_*.go.
type Injector interface {
	Paste() error
}

// noopInjector stands in when paste simulation is disabled.
type noopInjector struct{}

func (noopInjector) Paste() error { return ErrUnsupported }
