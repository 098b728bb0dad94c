package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipvault/internal/message"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream daemon events to stdout",
		Long: `Subscribes to the daemon's event stream and prints every event until
interrupted: clipboard captures, overlay transitions, and AI streaming
fragments. Useful for building UI around the daemon or for debugging.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runWatch(v) },
	}

	cmd.Flags().Bool("json", false, "one JSON object per line instead of human-readable")
	addClientFlags(cmd)
	return cmd
}

func runWatch(v *viper.Viper) error {
	conn, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := request(conn, &message.Message{Type: message.TypeWatch}); err != nil {
		return err
	}

	jsonOut := v.GetBool("json")
	for {
		msg, err := conn.ReadMsg()
		if err != nil {
			return fmt.Errorf("stream ended: %w", err)
		}
		if msg.Type != message.TypeEvent || msg.Event == nil {
			continue
		}
		if jsonOut {
			enc, _ := json.Marshal(msg.Event)
			fmt.Println(string(enc))
			continue
		}
		printEvent(msg.Event)
	}
}

func printEvent(e *message.EventInfo) {
	switch e.Kind {
	case "capture-changed":
		fmt.Printf("%-18s %s (%s)\n", e.Kind, e.MIME, fmtSize(e.Size))
	case "show-overlay":
		fmt.Printf("%-18s %d entries, selected %d\n", e.Kind, len(e.Entries), e.SelectedIndex)
	case "overlay-hidden":
		fmt.Printf("%-18s %s\n", e.Kind, e.Reason)
	case "streaming-reset":
		fmt.Printf("%-18s %s session %s\n", e.Kind, e.Consumer, e.SessionID)
	case "streaming-fragment":
		fmt.Printf("%-18s %s %q\n", e.Kind, e.Consumer, e.Content)
	case "streaming-done":
		fmt.Printf("%-18s %s session %s\n", e.Kind, e.Consumer, e.SessionID)
	case "streaming-error":
		fmt.Printf("%-18s %s [%s] %s\n", e.Kind, e.Consumer, e.Category, e.Message)
	default:
		fmt.Printf("%-18s\n", e.Kind)
	}
}
