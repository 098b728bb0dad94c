package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipvault/internal/message"
	"go.klb.dev/clipvault/internal/session"
	"go.klb.dev/clipvault/internal/wire"
)

func newTranslateCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "translate [index]",
		Short: "Translate a history entry with the configured AI provider",
		Long: `Starts a translation session for the text entry at index (default 0,
the newest capture) or for --text. The translated text streams to stdout as
it arrives. Starting a new translation while one is running cancels the old
one and discards its partial output.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, args []string) error {
			return runStream(v, args, message.TypeTranslate, session.ConsumerTranslation)
		},
	}

	f := cmd.Flags()
	f.String("text", "", "translate this text instead of a history entry")
	f.String("from", "auto", "source language")
	f.String("to", "English", "target language")
	f.Bool("detach", false, "start the session and exit without waiting for output")
	f.Bool("cancel", false, "cancel the running translation instead of starting one")
	addClientFlags(cmd)
	return cmd
}

func newExplainCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "explain [index]",
		Short: "Explain a history entry with the configured AI provider",
		Long: `Starts an explanation session for the text entry at index (default 0)
or for --text, streaming the explanation to stdout. Explanations run in
their own slot: they never cancel a running translation.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, args []string) error {
			return runStream(v, args, message.TypeExplain, session.ConsumerExplanation)
		},
	}

	f := cmd.Flags()
	f.String("text", "", "explain this text instead of a history entry")
	f.String("to", "English", "answer language")
	f.Bool("detach", false, "start the session and exit without waiting for output")
	f.Bool("cancel", false, "cancel the running explanation instead of starting one")
	addClientFlags(cmd)
	return cmd
}

func runStream(v *viper.Viper, args []string, t message.Type, consumer string) error {
	if v.GetBool("cancel") {
		_, err := oneShot(v, &message.Message{Type: message.TypeCancel, Consumer: consumer})
		return err
	}

	req := &message.Message{
		Type:           t,
		Text:           v.GetString("text"),
		SourceLanguage: v.GetString("from"),
		TargetLanguage: v.GetString("to"),
	}
	if len(args) == 1 {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("index must be a number: %q", args[0])
		}
		req.Index = &index
	}

	conn, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer conn.Close()

	detach := v.GetBool("detach")
	if !detach {
		// Subscribe before starting so no fragment can slip past.
		if _, err := request(conn, &message.Message{Type: message.TypeWatch}); err != nil {
			return err
		}
	}

	resp, err := requestSkippingEvents(conn, req)
	if err != nil {
		return err
	}
	if detach {
		fmt.Println(resp.SessionID)
		return nil
	}
	return followSession(conn, consumer, resp.SessionID)
}

// requestSkippingEvents is request() for connections that already have an
// event subscription: events arriving between write and response are
// discarded.
func requestSkippingEvents(conn *wire.Conn, req *message.Message) (*message.Message, error) {
	if err := conn.WriteMsg(req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	for {
		resp, err := conn.ReadMsg()
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		if resp.Type == message.TypeEvent {
			continue
		}
		if resp.Type == message.TypeError {
			return nil, fmt.Errorf("%s", resp.Error)
		}
		return resp, nil
	}
}

// followSession prints the session's fragments until it finishes. A reset
// for the same consumer but a different session means we were superseded.
func followSession(conn *wire.Conn, consumer, id string) error {
	for {
		msg, err := conn.ReadMsg()
		if err != nil {
			return fmt.Errorf("stream ended: %w", err)
		}
		if msg.Type != message.TypeEvent || msg.Event == nil {
			continue
		}
		e := msg.Event
		switch e.Kind {
		case "streaming-fragment":
			if e.SessionID == id {
				fmt.Print(e.Content)
			}
		case "streaming-done":
			if e.SessionID == id {
				fmt.Println()
				return nil
			}
		case "streaming-error":
			if e.SessionID == id {
				return fmt.Errorf("[%s] %s", e.Category, e.Message)
			}
		case "streaming-reset":
			if e.Consumer == consumer && e.SessionID != id {
				fmt.Fprintln(os.Stderr, "superseded by a newer session")
				return nil
			}
		}
	}
}
