package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipvault/internal/ipc"
	"go.klb.dev/clipvault/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state",
		Long: `Displays the running daemon's state: clipboard backend, history usage,
overlay visibility, watch subscribers and active AI sessions.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStatus(v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)
	return cmd
}

func runStatus(v *viper.Viper) error {
	resp, err := oneShot(v, &message.Message{Type: message.TypeStatus})
	if err != nil {
		return err
	}
	if resp.Status == nil {
		return fmt.Errorf("malformed status response")
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp.Status, "", "  ")
		fmt.Println(string(enc))
		return nil
	}

	transport := fmt.Sprintf("socket (%s)", ipc.SocketPath())
	if addr := v.GetString("server"); addr != "" {
		transport = fmt.Sprintf("tcp (%s)", addr)
	}

	st := resp.Status
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", st.Version)
	fmt.Fprintf(w, "Transport:\t%s\n", transport)
	fmt.Fprintf(w, "Backend:\t%s\n", st.Backend)
	fmt.Fprintf(w, "History:\t%d / %d entries\n", st.Entries, st.Capacity)
	fmt.Fprintf(w, "Overlay:\t%s\n", visibility(st.OverlayUp))
	fmt.Fprintf(w, "Watchers:\t%d\n", st.Watchers)
	if st.JournalPath != "" {
		fmt.Fprintf(w, "Database:\t%s\n", st.JournalPath)
	}
	_ = w.Flush()

	if len(st.Sessions) == 0 {
		return nil
	}
	fmt.Println()
	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "CONSUMER\tSTATUS\tSTARTED\tSESSION\n")
	for _, s := range st.Sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Consumer, s.Status, fmtAge(s.StartedAt), s.ID)
	}
	return tw.Flush()
}

func visibility(up bool) string {
	if up {
		return "visible"
	}
	return "hidden"
}
