// Package server runs the daemon side of the clipvault control protocol. It
// accepts connections from the local IPC socket and (optionally) a
// token-protected TCP listener, dispatches requests against the history
// store, overlay controller, committer and session manager, and streams bus
// events to WATCH subscribers.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
	"unicode/utf8"

	"go.klb.dev/clipvault/internal/clip"
	"go.klb.dev/clipvault/internal/event"
	"go.klb.dev/clipvault/internal/fill"
	"go.klb.dev/clipvault/internal/history"
	"go.klb.dev/clipvault/internal/message"
	"go.klb.dev/clipvault/internal/overlay"
	"go.klb.dev/clipvault/internal/session"
	"go.klb.dev/clipvault/internal/wire"
)

const (
	authTimeout  = 10 * time.Second
	sendBuffer   = 64
	previewRunes = 80
)

// Server holds the daemon state a control connection can reach.
type Server struct {
	Version     string
	Token       string
	JournalPath string

	Store     *history.Store
	Overlay   *overlay.Controller
	Committer *fill.Committer
	Sessions  *session.Manager
	Bus       *event.Bus
	Backend   clip.Backend
}

// Serve accepts connections on ln until ctx is cancelled. key enables
// secretbox framing; requireAuth additionally demands an AUTH handshake
// (used for TCP, never for the local socket).
func (s *Server) Serve(ctx context.Context, ln net.Listener, key *[32]byte, requireAuth bool) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, wire.New(conn, key), requireAuth)
	}
}

func (s *Server) handleConn(ctx context.Context, conn *wire.Conn, requireAuth bool) {
	defer conn.Close()
	log := slog.With("peer", conn.RemoteAddr().String())

	if requireAuth && s.Token != "" {
		conn.SetReadDeadline(authTimeout)
		msg, err := conn.ReadMsg()
		if err != nil {
			log.Warn("auth read failed", "err", err)
			return
		}
		conn.SetReadDeadline(0)

		tokenBytes, _ := base64.StdEncoding.DecodeString(msg.Payload)
		if msg.Type != message.TypeAuth || string(tokenBytes) != s.Token {
			log.Warn("auth failed")
			_ = conn.WriteMsg(message.NewError("auth_failed"))
			return
		}
		log.Info("authenticated")
	}

	c := &client{conn: conn, sendCh: make(chan *message.Message, sendBuffer), log: log}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for msg := range c.sendCh {
			if err := conn.WriteMsg(msg); err != nil {
				log.Error("write failed", "err", err)
				conn.Close()
				return
			}
		}
	}()

	s.readLoop(ctx, c)

	// The forwarder must drain out before sendCh closes.
	if c.sub != nil {
		s.Bus.Unsubscribe(c.sub)
		<-c.watchDone
	}
	close(c.sendCh)
	wg.Wait()
}

// client is one control connection's send side.
type client struct {
	conn      *wire.Conn
	sendCh    chan *message.Message
	log       *slog.Logger
	sub       *event.Subscription
	watchDone chan struct{}
}

func (c *client) send(msg *message.Message) {
	select {
	case c.sendCh <- msg:
	default:
		c.log.Warn("send channel full, dropping", "type", msg.Type)
	}
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	for {
		msg, err := c.conn.ReadMsg()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				c.log.Debug("connection closed", "err", err)
			}
			return
		}
		c.send(s.dispatch(c, msg))
	}
}

// dispatch handles one request and returns its response.
func (s *Server) dispatch(c *client, msg *message.Message) *message.Message {
	switch msg.Type {
	case message.TypePing:
		return &message.Message{Type: message.TypePong}

	case message.TypeHistory:
		return &message.Message{
			Type:    message.TypeHistoryResponse,
			Entries: entryInfos(s.Store.Snapshot()),
		}

	case message.TypeFill:
		return s.handleFill(msg)

	case message.TypeRemove:
		return s.handleRemove(msg)

	case message.TypeClear:
		s.Store.Clear()
		if s.Overlay.Visible() {
			s.Overlay.EntryRemoved(nil)
		}
		return &message.Message{Type: message.TypeOK}

	case message.TypeCopy:
		return s.handleCopy(msg)

	case message.TypePaste:
		return s.handlePaste()

	case message.TypeShow:
		return s.handleShow(msg)

	case message.TypeNext:
		s.Overlay.Next()
		return &message.Message{Type: message.TypeOK}

	case message.TypePrev:
		s.Overlay.Prev()
		return &message.Message{Type: message.TypeOK}

	case message.TypeHide:
		if msg.Reason == "blur" {
			s.Overlay.Blur()
		} else {
			s.Overlay.Dismiss()
		}
		return &message.Message{Type: message.TypeOK}

	case message.TypeWatch:
		if c.sub == nil {
			c.sub = s.Bus.Subscribe(c.conn.RemoteAddr().String(), sendBuffer)
			c.watchDone = make(chan struct{})
			go s.forwardEvents(c)
		}
		return &message.Message{Type: message.TypeOK}

	case message.TypeTranslate, message.TypeExplain:
		return s.handleStream(msg)

	case message.TypeCancel:
		if !s.Sessions.Cancel(msg.Consumer) {
			return message.NewError("no running %s session", msg.Consumer)
		}
		return &message.Message{Type: message.TypeOK}

	case message.TypeStatus:
		return s.handleStatus()

	default:
		return message.NewError("unexpected message type %q", msg.Type)
	}
}

func (s *Server) handleFill(msg *message.Message) *message.Message {
	index := -1
	if msg.Index != nil {
		index = *msg.Index
	} else if s.Overlay.Visible() {
		index = s.Overlay.Cursor()
	}
	if index < 0 {
		return message.NewError("no entry selected")
	}

	_, err := s.Committer.Commit(index)
	if err != nil && !fill.IsPasteError(err) {
		return message.NewError("fill: %v", err)
	}
	resp := &message.Message{Type: message.TypeOK}
	if fill.IsPasteError(err) {
		// The clipboard holds the entry; only the keystroke failed.
		resp.Error = err.Error()
	}
	return resp
}

func (s *Server) handleRemove(msg *message.Message) *message.Message {
	if msg.Index == nil {
		return message.NewError("REMOVE requires an index")
	}
	if err := s.Store.RemoveAt(*msg.Index); err != nil {
		return message.NewError("remove: %v", err)
	}
	if s.Overlay.Visible() {
		s.Overlay.EntryRemoved(s.Store.Snapshot())
	}
	return &message.Message{Type: message.TypeOK}
}

func (s *Server) handleCopy(msg *message.Message) *message.Message {
	if len(msg.Items) == 0 {
		return message.NewError("COPY requires at least one item")
	}
	items := make([]clip.Item, 0, len(msg.Items))
	for _, it := range msg.Items {
		data, err := it.Decode()
		if err != nil {
			return message.NewError("copy: bad payload: %v", err)
		}
		items = append(items, clip.Item{MIME: it.MIME, Data: data})
	}
	if err := s.Committer.Copy(items); err != nil {
		return message.NewError("copy: %v", err)
	}
	return &message.Message{Type: message.TypeOK}
}

// handlePaste returns the current clipboard, falling back to the newest
// history entry when no clipboard backend is usable (headless daemons).
func (s *Server) handlePaste() *message.Message {
	items, err := s.Backend.Read()
	if err == nil && len(items) > 0 {
		out := make([]message.Item, 0, len(items))
		for _, it := range items {
			out = append(out, message.NewBinaryItem(it.MIME, it.Data))
		}
		return &message.Message{Type: message.TypeOK, Items: out}
	}

	entry, err := s.Store.Get(0)
	if err != nil {
		return message.NewError("clipboard unavailable and history empty")
	}
	return &message.Message{
		Type:  message.TypeOK,
		Items: []message.Item{message.NewBinaryItem(entry.MIME, entry.Data)},
	}
}

// handleShow always takes a fresh store snapshot: a show-trigger while the
// overlay is already up replaces what it displays (captures that landed in
// the meantime become visible) and resets the cursor to the requested
// index. Cursor-only moves go through NEXT/PREV.
func (s *Server) handleShow(msg *message.Message) *message.Message {
	index := 0
	if msg.Index != nil {
		index = *msg.Index
	}
	s.Overlay.Show(s.Store.Snapshot(), index)
	return &message.Message{Type: message.TypeOK}
}

func (s *Server) handleStream(msg *message.Message) *message.Message {
	text := msg.Text
	if text == "" {
		index := 0
		if msg.Index != nil {
			index = *msg.Index
		}
		entry, err := s.Store.Get(index)
		if err != nil {
			return message.NewError("%v", err)
		}
		if entry.MIME != history.MIMEText {
			return message.NewError("entry %d is not text (%s)", index, entry.MIME)
		}
		text = entry.Text()
	}

	target := msg.TargetLanguage
	if target == "" {
		target = "English"
	}

	var (
		id  string
		err error
	)
	if msg.Type == message.TypeTranslate {
		id, err = s.Sessions.Translate(text, msg.SourceLanguage, target)
	} else {
		id, err = s.Sessions.Explain(text, target)
	}
	if err != nil {
		return message.NewError("%v", err)
	}
	return &message.Message{Type: message.TypeOK, SessionID: id}
}

func (s *Server) handleStatus() *message.Message {
	info := &message.StatusInfo{
		Version:     s.Version,
		Backend:     s.Backend.Name(),
		Entries:     s.Store.Len(),
		Capacity:    s.Store.Capacity(),
		OverlayUp:   s.Overlay.Visible(),
		Watchers:    s.Bus.Subscribers(),
		JournalPath: s.JournalPath,
	}
	for _, sess := range s.Sessions.Active() {
		info.Sessions = append(info.Sessions, message.SessionInfo{
			ID:        sess.ID,
			Consumer:  sess.Consumer,
			Status:    string(sess.Status),
			Error:     sess.Error,
			StartedAt: sess.StartedAt,
		})
	}
	return &message.Message{Type: message.TypeStatusResponse, Status: info}
}

func (s *Server) forwardEvents(c *client) {
	defer close(c.watchDone)
	for e := range c.sub.C {
		c.send(&message.Message{Type: message.TypeEvent, Event: eventInfo(e)})
	}
}

// eventInfo maps a bus event onto the wire representation.
func eventInfo(e event.Event) *message.EventInfo {
	info := &message.EventInfo{Kind: event.Kind(e)}
	switch e := e.(type) {
	case event.CaptureChanged:
		info.MIME = e.MIME
		info.Size = e.Size
	case event.ShowOverlay:
		info.Entries = entryInfos(e.Entries)
		info.SelectedIndex = e.SelectedIndex
	case event.OverlayHidden:
		info.Reason = e.Reason
	case event.StreamReset:
		info.SessionID = e.SessionID
		info.Consumer = e.Consumer
	case event.StreamFragment:
		info.SessionID = e.SessionID
		info.Consumer = e.Consumer
		info.Content = e.Content
	case event.StreamDone:
		info.SessionID = e.SessionID
		info.Consumer = e.Consumer
	case event.StreamError:
		info.SessionID = e.SessionID
		info.Consumer = e.Consumer
		info.Category = e.Category
		info.Message = e.Message
	}
	return info
}

func entryInfos(entries []history.Entry) []message.EntryInfo {
	out := make([]message.EntryInfo, 0, len(entries))
	for i, e := range entries {
		out = append(out, message.EntryInfo{
			Index:      i,
			MIME:       e.MIME,
			Size:       len(e.Data),
			Preview:    preview(e),
			CapturedAt: e.CapturedAt,
		})
	}
	return out
}

func preview(e history.Entry) string {
	if e.MIME != history.MIMEText {
		return ""
	}
	text := e.Text()
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "…"
}
