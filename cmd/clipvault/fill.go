package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipvault/internal/message"
)

func newFillCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "fill [index]",
		Short: "Commit a history entry back to the clipboard",
		Long: `Writes the history entry at index onto the system clipboard, hides the
overlay if it is up, and simulates a paste keystroke where the platform
supports it. Without an index the daemon commits the overlay's current
selection.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, args []string) error { return runFill(v, args) },
	}

	addClientFlags(cmd)
	return cmd
}

func runFill(v *viper.Viper, args []string) error {
	req := &message.Message{Type: message.TypeFill}
	if len(args) == 1 {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("index must be a number: %q", args[0])
		}
		req = message.NewIndexRequest(message.TypeFill, index)
	}

	resp, err := oneShot(v, req)
	if err != nil {
		return err
	}
	// OK with a non-empty error means the clipboard write succeeded but
	// the paste keystroke did not.
	if resp.Error != "" {
		fmt.Printf("filled (paste simulation failed: %s)\n", resp.Error)
	}
	return nil
}
