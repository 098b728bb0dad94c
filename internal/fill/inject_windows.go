//go:build windows

package fill

// #cgo LDFLAGS: -luser32
//
// #include <windows.h>
//
// static void clipvault_send_paste() {
//     INPUT inputs[4] = {0};
//     inputs[0].type = INPUT_KEYBOARD;
//     inputs[0].ki.wVk = VK_CONTROL;
//     inputs[1].type = INPUT_KEYBOARD;
//     inputs[1].ki.wVk = 'V';
//     inputs[2].type = INPUT_KEYBOARD;
//     inputs[2].ki.wVk = 'V';
//     inputs[2].ki.dwFlags = KEYEVENTF_KEYUP;
//     inputs[3].type = INPUT_KEYBOARD;
//     inputs[3].ki.wVk = VK_CONTROL;
//     inputs[3].ki.dwFlags = KEYEVENTF_KEYUP;
//     SendInput(4, inputs, sizeof(INPUT));
// }
import "C"

import "time"

// NewInjector returns the Windows paste injector backed by SendInput.
func NewInjector() Injector {
	return windowsInjector{}
}

type windowsInjector struct{}

func (windowsInjector) Paste() error {
	// Let the foreign window regain focus after the overlay hides.
	time.Sleep(100 * time.Millisecond)
	C.clipvault_send_paste()
	return nil
}
