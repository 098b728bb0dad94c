package main

import (
	"encoding/base64"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipvault/internal/ipc"
	"go.klb.dev/clipvault/internal/message"
	"go.klb.dev/clipvault/internal/secretbox"
	"go.klb.dev/clipvault/internal/wire"
)

// addClientFlags adds the flags every daemon-talking sub-command shares.
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("server", "", "daemon TCP address (default: local socket)")
	f.String("token", "", "shared secret for TCP connections")
	addConfigFlag(cmd)
}

// dialDaemon connects to a running daemon: the local socket when reachable,
// otherwise the TCP address from --server.
func dialDaemon(v *viper.Viper) (*wire.Conn, error) {
	serverAddr := v.GetString("server")

	if serverAddr == "" {
		conn, err := ipc.Dial()
		if err != nil {
			return nil, fmt.Errorf("no daemon on %s (is \"clipvault serve\" running?): %w", ipc.SocketPath(), err)
		}
		return wire.New(conn, nil), nil
	}

	token := v.GetString("token")
	var key *[32]byte
	if token != "" {
		var err error
		key, err = secretbox.DeriveKey(token)
		if err != nil {
			return nil, fmt.Errorf("key derivation: %w", err)
		}
	}

	conn, err := net.DialTimeout("tcp", serverAddr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", serverAddr, err)
	}
	wc := wire.New(conn, key)
	if token != "" {
		if err := wc.WriteMsg(&message.Message{
			Type:    message.TypeAuth,
			Payload: base64.StdEncoding.EncodeToString([]byte(token)),
		}); err != nil {
			wc.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	return wc, nil
}

// request performs one request/response exchange, turning ERROR responses
// into Go errors.
func request(conn *wire.Conn, req *message.Message) (*message.Message, error) {
	if err := conn.WriteMsg(req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := conn.ReadMsg()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if resp.Type == message.TypeError {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}

// oneShot dials, performs a single exchange, and closes.
func oneShot(v *viper.Viper, req *message.Message) (*message.Message, error) {
	conn, err := dialDaemon(v)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return request(conn, req)
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	return t.Format("15:04:05")
}
