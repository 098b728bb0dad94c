package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipvault/internal/message"
)

func newPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Print the current clipboard to stdout (like pbpaste)",
		Long: `Prints the current clipboard content. When the daemon has no usable
clipboard backend (headless hosts) the newest history entry is printed
instead.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runPaste(v) },
	}

	cmd.Flags().String("mime", "text/plain", "which representation to print")
	addClientFlags(cmd)
	return cmd
}

func runPaste(v *viper.Viper) error {
	resp, err := oneShot(v, &message.Message{Type: message.TypePaste})
	if err != nil {
		return err
	}

	want := v.GetString("mime")
	for _, it := range resp.Items {
		if it.MIME != want {
			continue
		}
		data, err := it.Decode()
		if err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	return fmt.Errorf("clipboard has no %s representation", want)
}
