// Package ipc provides the local control channel between the clipvault
// daemon and its CLI sub-commands (history/fill/translate/...). On unix it
// is a socket under XDG_RUNTIME_DIR; on Windows a named pipe. The daemon
// listens, the sub-commands dial.
package ipc

import (
	"net"
	"os"
)

// SocketPath returns the control-channel endpoint, honoring
// $CLIPVAULT_SOCKET.
func SocketPath() string {
	if s := os.Getenv("CLIPVAULT_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a daemon appears to be listening on the control
// channel. A cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := dialIPC(SocketPath())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates the control-channel listener, removing any stale socket
// file from a previous crashed run first.
func Listen() (net.Listener, error) {
	path := SocketPath()
	_ = os.Remove(path)
	return listenIPC(path)
}

// Dial connects to a running daemon's control channel.
func Dial() (net.Conn, error) {
	return dialIPC(SocketPath())
}
