package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipvault/internal/message"
)

func newRemoveCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "remove <index>",
		Short:   "Delete a history entry (or --all to clear)",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, args []string) error { return runRemove(v, args) },
	}

	cmd.Flags().Bool("all", false, "clear the whole history")
	addClientFlags(cmd)
	return cmd
}

func runRemove(v *viper.Viper, args []string) error {
	if v.GetBool("all") {
		_, err := oneShot(v, &message.Message{Type: message.TypeClear})
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("an index (or --all) is required")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be a number: %q", args[0])
	}
	_, err = oneShot(v, message.NewIndexRequest(message.TypeRemove, index))
	return err
}
