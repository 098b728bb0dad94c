package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipvault/internal/message"
)

func newShowCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "show [index]",
		Short: "Bring up the history overlay",
		Long: `Makes the overlay visible with a snapshot of the current history,
selecting index (default 0). If the overlay is already up, the displayed
snapshot is replaced and the cursor reset. Watch clients receive the
snapshot as a show-overlay event.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, args []string) error { return runShow(v, args) },
	}

	addClientFlags(cmd)
	return cmd
}

func runShow(v *viper.Viper, args []string) error {
	req := &message.Message{Type: message.TypeShow}
	if len(args) == 1 {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("index must be a number: %q", args[0])
		}
		req = message.NewIndexRequest(message.TypeShow, index)
	}
	_, err := oneShot(v, req)
	return err
}

func newHideCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "hide",
		Short:   "Dismiss the history overlay",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, _ []string) error {
			req := &message.Message{Type: message.TypeHide, Reason: v.GetString("reason")}
			_, err := oneShot(v, req)
			return err
		},
	}

	cmd.Flags().String("reason", "dismiss", "hide reason: dismiss|blur")
	addClientFlags(cmd)
	return cmd
}
