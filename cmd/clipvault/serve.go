package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/clipvault/internal/ai"
	"go.klb.dev/clipvault/internal/clip"
	"go.klb.dev/clipvault/internal/event"
	"go.klb.dev/clipvault/internal/fill"
	"go.klb.dev/clipvault/internal/history"
	"go.klb.dev/clipvault/internal/ipc"
	"go.klb.dev/clipvault/internal/overlay"
	"go.klb.dev/clipvault/internal/secretbox"
	"go.klb.dev/clipvault/internal/server"
	"go.klb.dev/clipvault/internal/session"
	"go.klb.dev/clipvault/internal/store"
	"go.klb.dev/clipvault/internal/watcher"
)

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the clipboard history daemon",
		Long: `Starts the clipvault daemon: watches the clipboard, maintains the
history, and serves the control socket the other sub-commands talk to.

By default only the local socket is served. Pass --addr to additionally
listen on TCP; combine with --token to require auth and encrypt the link
with a key derived from the token.

AI settings live under the [ai] table of the config file (provider,
base_url, model, api_key, timeout, max_tokens) and are re-read while the
daemon runs whenever the config file changes. The api_key can also come
from CLIPVAULT_AI_API_KEY.

Config file search order:
  /etc/clipvault/clipvault.toml
  $HOME/.config/clipvault/clipvault.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPVAULT_* env vars → flags`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
			return bindViper(cmd, v)
		},
		RunE: func(_ *cobra.Command, _ []string) error { return runServe(v) },
	}

	f := cmd.Flags()
	f.String("addr", "", "TCP listen address for remote control (empty = local socket only)")
	f.String("token", "", "shared secret for TCP connections (empty = no auth, no encryption)")
	f.Int("capacity", history.DefaultCapacity, "maximum history entries to keep")
	f.String("db", store.DefaultPath(), "history database path")
	f.Bool("no-persist", false, "keep history in memory only")
	f.Bool("no-clipboard", false, "do not touch the system clipboard (in-memory backend)")
	f.Bool("no-paste", false, "never simulate a paste keystroke after fill")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

// aiConfigFrom assembles the AI client config, preferring [ai] table keys.
func aiConfigFrom(v *viper.Viper) ai.Config {
	return ai.Config{
		Provider:  v.GetString("ai.provider"),
		BaseURL:   v.GetString("ai.base_url"),
		Model:     v.GetString("ai.model"),
		APIKey:    v.GetString("ai.api_key"),
		Timeout:   v.GetDuration("ai.timeout"),
		MaxTokens: v.GetInt("ai.max_tokens"),
	}
}

func runServe(v *viper.Viper) error {
	setupLogging(v)

	addr := v.GetString("addr")
	token := v.GetString("token")

	var key *[32]byte
	if token != "" {
		var err error
		key, err = secretbox.DeriveKey(token)
		if err != nil {
			return fmt.Errorf("key derivation: %w", err)
		}
	}

	hist := history.New(v.GetInt("capacity"))

	journalPath := ""
	if !v.GetBool("no-persist") {
		journalPath = v.GetString("db")
		journal, err := store.Open(journalPath)
		if err != nil {
			return fmt.Errorf("opening history db: %w", err)
		}
		defer journal.Close()

		entries, err := journal.Load()
		if err != nil {
			slog.Warn("history db unreadable, starting empty", "err", err)
		} else {
			hist.Restore(entries)
		}
		hist.SetJournal(journal)
	}

	var backend clip.Backend
	if v.GetBool("no-clipboard") {
		backend = clip.NewMemory()
	} else {
		backend = clip.New()
	}
	defer backend.Close()

	var injector fill.Injector
	if !v.GetBool("no-paste") {
		injector = fill.NewInjector()
	}

	bus := event.New()
	w := watcher.New(backend, hist, bus)
	ov := overlay.New(bus)
	committer := fill.New(hist, backend, w, ov, injector)
	sessions := session.NewManager(bus, ai.NewClient(aiConfigFrom(v)))
	defer sessions.Close()

	slog.Info("clipvault starting",
		"version", Version,
		"backend", backend.Name(),
		"capacity", hist.Capacity(),
		"entries", hist.Len(),
		"persist", journalPath != "",
		"tcp", addr,
		"encrypted", key != nil,
	)

	// Hot-reload AI settings and capacity when the config file changes.
	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			slog.Info("config reloaded", "file", e.Name)
			sessions.SetClient(ai.NewClient(aiConfigFrom(v)))
			hist.SetCapacity(v.GetInt("capacity"))
		})
		v.WatchConfig()
	}

	srv := &server.Server{
		Version:     Version,
		Token:       token,
		JournalPath: journalPath,
		Store:       hist,
		Overlay:     ov,
		Committer:   committer,
		Sessions:    sessions,
		Bus:         bus,
		Backend:     backend,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return w.Run(ctx) })

	ipcLn, err := ipc.Listen()
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	slog.Info("control socket listening", "path", ipc.SocketPath())
	g.Go(func() error { return srv.Serve(ctx, ipcLn, nil, false) })

	if addr != "" {
		tcpLn, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		slog.Info("tcp listening", "addr", tcpLn.Addr())
		g.Go(func() error { return srv.Serve(ctx, tcpLn, key, true) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	slog.Info("clipvault stopped")
	return err
}
