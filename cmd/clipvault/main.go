// clipvault: clipboard history daemon with AI translate/explain.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/clipvault/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipvault",
		Short: "Clipboard history with AI translate/explain",
		Long: `clipvault watches the system clipboard and keeps a bounded,
deduplicated history of captures. A picker overlay navigates the history and
commits an entry back to the clipboard (optionally simulating a paste
keystroke), and any text entry can be streamed through an OpenAI-compatible
provider for translation or explanation.

Run "clipvault serve" to start the daemon. The remaining sub-commands talk
to it over a local socket: history/fill/remove manage entries, copy/paste
move data, show/hide drive the overlay, translate/explain start AI sessions,
and watch streams daemon events.

Config file search order (first found wins):
  /etc/clipvault/clipvault.toml
  $HOME/.config/clipvault/clipvault.toml
  path supplied via --config

All flags can be set via CLIPVAULT_<FLAG> env vars or config-file keys.
See "clipvault serve --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newHistoryCmd(),
		newFillCmd(),
		newRemoveCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newShowCmd(),
		newHideCmd(),
		newWatchCmd(),
		newTranslateCmd(),
		newExplainCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipvault %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
