package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipvault/internal/message"
)

func newHistoryCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the clipboard history",
		Long: `Lists the stored clipboard entries, newest first. Index 0 is the most
recent capture; use the index with fill/remove/translate/explain.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runHistory(v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)
	return cmd
}

func runHistory(v *viper.Viper) error {
	resp, err := oneShot(v, &message.Message{Type: message.TypeHistory})
	if err != nil {
		return err
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp.Entries, "", "  ")
		fmt.Println(string(enc))
		return nil
	}

	if len(resp.Entries) == 0 {
		fmt.Println("History is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "INDEX\tTYPE\tSIZE\tCAPTURED\tPREVIEW\n")
	for _, e := range resp.Entries {
		preview := strings.ReplaceAll(e.Preview, "\n", "⏎")
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			e.Index, e.MIME, fmtSize(e.Size), fmtAge(e.CapturedAt), preview)
	}
	return tw.Flush()
}

func fmtSize(n int) string {
	if n < 1024 {
		return strconv.Itoa(n) + "B"
	}
	if n < 1024*1024 {
		return fmt.Sprintf("%.1fKiB", float64(n)/1024)
	}
	return fmt.Sprintf("%.1fMiB", float64(n)/(1024*1024))
}
