package server

import (
	"context"
	"encoding/base64"
	"net"
	"testing"
	"time"

	"go.klb.dev/clipvault/internal/ai"
	"go.klb.dev/clipvault/internal/clip"
	"go.klb.dev/clipvault/internal/event"
	"go.klb.dev/clipvault/internal/fill"
	"go.klb.dev/clipvault/internal/history"
	"go.klb.dev/clipvault/internal/message"
	"go.klb.dev/clipvault/internal/overlay"
	"go.klb.dev/clipvault/internal/secretbox"
	"go.klb.dev/clipvault/internal/session"
	"go.klb.dev/clipvault/internal/watcher"
	"go.klb.dev/clipvault/internal/wire"
)

type fixture struct {
	srv     *Server
	store   *history.Store
	backend *clip.Memory
	bus     *event.Bus
}

func startServer(t *testing.T, token string, key *[32]byte) (*fixture, *wire.Conn) {
	t.Helper()

	store := history.New(10)
	bus := event.New()
	backend := clip.NewMemory()
	w := watcher.New(backend, store, bus)
	ov := overlay.New(bus)
	committer := fill.New(store, backend, w, ov, nil)
	sessions := session.NewManager(bus, ai.NewClient(ai.Config{}))
	t.Cleanup(sessions.Close)

	f := &fixture{
		srv: &Server{
			Version:   "test",
			Token:     token,
			Store:     store,
			Overlay:   ov,
			Committer: committer,
			Sessions:  sessions,
			Bus:       bus,
			Backend:   backend,
		},
		store:   store,
		backend: backend,
		bus:     bus,
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go f.srv.Serve(ctx, ln, key, token != "")

	raw, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn := wire.New(raw, key)
	t.Cleanup(func() { conn.Close() })
	return f, conn
}

func roundTrip(t *testing.T, conn *wire.Conn, req *message.Message) *message.Message {
	t.Helper()
	if err := conn.WriteMsg(req); err != nil {
		t.Fatalf("write %s: %v", req.Type, err)
	}
	resp, err := conn.ReadMsg()
	if err != nil {
		t.Fatalf("read response to %s: %v", req.Type, err)
	}
	return resp
}

func TestPingPong(t *testing.T) {
	_, conn := startServer(t, "", nil)
	resp := roundTrip(t, conn, &message.Message{Type: message.TypePing})
	if resp.Type != message.TypePong {
		t.Fatalf("response = %s, want PONG", resp.Type)
	}
}

func TestHistoryListing(t *testing.T) {
	f, conn := startServer(t, "", nil)
	f.store.Push(history.NewTextEntry("older"))
	f.store.Push(history.NewTextEntry("newest"))

	resp := roundTrip(t, conn, &message.Message{Type: message.TypeHistory})
	if resp.Type != message.TypeHistoryResponse {
		t.Fatalf("response = %s", resp.Type)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(resp.Entries))
	}
	if resp.Entries[0].Preview != "newest" || resp.Entries[0].Index != 0 {
		t.Fatalf("entry 0 = %+v", resp.Entries[0])
	}
}

func TestFillWritesClipboardAndHidesOverlay(t *testing.T) {
	f, conn := startServer(t, "", nil)
	f.store.Push(history.NewTextEntry("target"))
	f.srv.Overlay.Show(f.store.Snapshot(), 0)

	resp := roundTrip(t, conn, message.NewIndexRequest(message.TypeFill, 0))
	if resp.Type != message.TypeOK {
		t.Fatalf("response = %s (%s)", resp.Type, resp.Error)
	}
	items, err := f.backend.Read()
	if err != nil || len(items) != 1 || string(items[0].Data) != "target" {
		t.Fatalf("clipboard after fill = %v, %v", items, err)
	}
	if f.srv.Overlay.Visible() {
		t.Fatal("overlay still visible after fill")
	}
}

func TestFillWithoutSelectionFails(t *testing.T) {
	_, conn := startServer(t, "", nil)
	resp := roundTrip(t, conn, &message.Message{Type: message.TypeFill})
	if resp.Type != message.TypeError {
		t.Fatalf("response = %s, want ERROR", resp.Type)
	}
}

func TestFillCommitsOverlayCursor(t *testing.T) {
	f, conn := startServer(t, "", nil)
	f.store.Push(history.NewTextEntry("b"))
	f.store.Push(history.NewTextEntry("a"))

	if resp := roundTrip(t, conn, &message.Message{Type: message.TypeShow}); resp.Type != message.TypeOK {
		t.Fatalf("SHOW = %s (%s)", resp.Type, resp.Error)
	}
	if resp := roundTrip(t, conn, &message.Message{Type: message.TypeNext}); resp.Type != message.TypeOK {
		t.Fatalf("NEXT = %s", resp.Type)
	}
	if resp := roundTrip(t, conn, &message.Message{Type: message.TypeFill}); resp.Type != message.TypeOK {
		t.Fatalf("FILL = %s (%s)", resp.Type, resp.Error)
	}

	items, err := f.backend.Read()
	if err != nil || string(items[0].Data) != "b" {
		t.Fatalf("clipboard = %v, %v, want entry at cursor 1", items, err)
	}
}

func TestRemoveAdjustsOverlay(t *testing.T) {
	f, conn := startServer(t, "", nil)
	f.store.Push(history.NewTextEntry("b"))
	f.store.Push(history.NewTextEntry("a"))
	f.srv.Overlay.Show(f.store.Snapshot(), 1)

	resp := roundTrip(t, conn, message.NewIndexRequest(message.TypeRemove, 1))
	if resp.Type != message.TypeOK {
		t.Fatalf("response = %s (%s)", resp.Type, resp.Error)
	}
	if f.store.Len() != 1 {
		t.Fatalf("store len = %d", f.store.Len())
	}
	if got := f.srv.Overlay.Cursor(); got != 0 {
		t.Fatalf("cursor = %d, want clamped to 0", got)
	}

	resp = roundTrip(t, conn, message.NewIndexRequest(message.TypeRemove, 5))
	if resp.Type != message.TypeError {
		t.Fatalf("out-of-range remove = %s, want ERROR", resp.Type)
	}
}

func TestCopyRoundTrip(t *testing.T) {
	f, conn := startServer(t, "", nil)
	resp := roundTrip(t, conn, &message.Message{
		Type:  message.TypeCopy,
		Items: []message.Item{message.NewTextItem("copied")},
	})
	if resp.Type != message.TypeOK {
		t.Fatalf("COPY = %s (%s)", resp.Type, resp.Error)
	}
	items, err := f.backend.Read()
	if err != nil || string(items[0].Data) != "copied" {
		t.Fatalf("clipboard = %v, %v", items, err)
	}
	// A daemon-originated write must not enter history.
	if f.store.Len() != 0 {
		t.Fatalf("history len = %d after COPY", f.store.Len())
	}
}

func TestPasteReturnsClipboard(t *testing.T) {
	f, conn := startServer(t, "", nil)
	f.backend.SetItems([]clip.Item{clip.TextItem("on the clipboard")})

	resp := roundTrip(t, conn, &message.Message{Type: message.TypePaste})
	if resp.Type != message.TypeOK {
		t.Fatalf("PASTE = %s (%s)", resp.Type, resp.Error)
	}
	if resp.TextPayload() != "on the clipboard" {
		t.Fatalf("payload = %q", resp.TextPayload())
	}
}

func TestPasteFallsBackToHistory(t *testing.T) {
	f, conn := startServer(t, "", nil)
	f.backend.Fail(clip.ErrUnavailable)
	f.store.Push(history.NewTextEntry("from history"))

	resp := roundTrip(t, conn, &message.Message{Type: message.TypePaste})
	if resp.Type != message.TypeOK || resp.TextPayload() != "from history" {
		t.Fatalf("PASTE = %s %q", resp.Type, resp.TextPayload())
	}
}

func TestWatchStreamsEvents(t *testing.T) {
	f, conn := startServer(t, "", nil)
	if resp := roundTrip(t, conn, &message.Message{Type: message.TypeWatch}); resp.Type != message.TypeOK {
		t.Fatalf("WATCH = %s", resp.Type)
	}

	f.bus.Publish(event.CaptureChanged{MIME: "text/plain", Size: 5})

	conn.SetReadDeadline(5 * time.Second)
	resp, err := conn.ReadMsg()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if resp.Type != message.TypeEvent || resp.Event == nil {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Event.Kind != "capture-changed" || resp.Event.Size != 5 {
		t.Fatalf("event = %+v", resp.Event)
	}
}

func TestStatus(t *testing.T) {
	f, conn := startServer(t, "", nil)
	f.store.Push(history.NewTextEntry("x"))

	resp := roundTrip(t, conn, &message.Message{Type: message.TypeStatus})
	if resp.Type != message.TypeStatusResponse || resp.Status == nil {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Status.Entries != 1 || resp.Status.Capacity != 10 || resp.Status.Version != "test" {
		t.Fatalf("status = %+v", resp.Status)
	}
}

func TestTranslateRejectsNonText(t *testing.T) {
	f, conn := startServer(t, "", nil)
	f.store.Push(history.NewEntry("image/png", []byte{1, 2, 3}))

	resp := roundTrip(t, conn, &message.Message{Type: message.TypeTranslate, TargetLanguage: "English"})
	if resp.Type != message.TypeError {
		t.Fatalf("TRANSLATE on image = %s, want ERROR", resp.Type)
	}
}

func TestTranslateReportsConfigError(t *testing.T) {
	_, conn := startServer(t, "", nil)
	resp := roundTrip(t, conn, &message.Message{Type: message.TypeTranslate, Text: "hola"})
	if resp.Type != message.TypeError || resp.Error == "" {
		t.Fatalf("response = %+v, want config ERROR", resp)
	}
}

func TestAuthRequired(t *testing.T) {
	_, conn := startServer(t, "secret", nil)

	bad := &message.Message{
		Type:    message.TypeAuth,
		Payload: base64.StdEncoding.EncodeToString([]byte("wrong")),
	}
	resp := roundTrip(t, conn, bad)
	if resp.Type != message.TypeError || resp.Error != "auth_failed" {
		t.Fatalf("response = %+v, want auth_failed", resp)
	}
}

func TestAuthAndEncryptedChannel(t *testing.T) {
	key, err := secretbox.DeriveKey("token123")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	f, conn := startServer(t, "token123", key)
	f.store.Push(history.NewTextEntry("secret entry"))

	if err := conn.WriteMsg(&message.Message{
		Type:    message.TypeAuth,
		Payload: base64.StdEncoding.EncodeToString([]byte("token123")),
	}); err != nil {
		t.Fatalf("auth write: %v", err)
	}

	resp := roundTrip(t, conn, &message.Message{Type: message.TypeHistory})
	if resp.Type != message.TypeHistoryResponse || len(resp.Entries) != 1 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestShowWhileVisibleRefreshesSnapshot(t *testing.T) {
	f, conn := startServer(t, "", nil)
	f.store.Push(history.NewTextEntry("first"))

	if resp := roundTrip(t, conn, &message.Message{Type: message.TypeShow}); resp.Type != message.TypeOK {
		t.Fatalf("SHOW = %s (%s)", resp.Type, resp.Error)
	}

	// A capture lands while the overlay is open.
	f.store.Push(history.NewTextEntry("second"))

	resp := roundTrip(t, conn, message.NewIndexRequest(message.TypeShow, 1))
	if resp.Type != message.TypeOK {
		t.Fatalf("indexed SHOW = %s (%s)", resp.Type, resp.Error)
	}

	snap := f.srv.Overlay.Snapshot()
	if len(snap) != 2 || snap[0].Text() != "second" {
		t.Fatalf("displayed snapshot = %v, want refreshed [second first]", snap)
	}
	if got := f.srv.Overlay.Cursor(); got != 1 {
		t.Fatalf("cursor = %d, want requested index 1", got)
	}
}
