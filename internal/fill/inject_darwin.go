//go:build darwin

package fill

import (
	"fmt"
	"os/exec"
	"time"
)

// NewInjector returns the macOS paste injector. It drives System Events via
// osascript, which requires the accessibility permission; failures surface
// as a recoverable PasteError at commit time.
func NewInjector() Injector {
	return &darwinInjector{delay: 100 * time.Millisecond}
}

type darwinInjector struct {
	// delay gives the foreign window time to regain focus after the
	// overlay hides before the keystroke lands.
	delay time.Duration
}

func (i *darwinInjector) Paste() error {
	time.Sleep(i.delay)
	cmd := exec.Command("osascript", "-e",
		`tell application "System Events" to keystroke "v" using command down`)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %v: %s", err, out)
	}
	return nil
}
