package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.klb.dev/clipvault/internal/clip"
	"go.klb.dev/clipvault/internal/event"
	"go.klb.dev/clipvault/internal/history"
)

func startWatcher(t *testing.T) (*clip.Memory, *history.Store, *event.Subscription, *Watcher) {
	t.Helper()
	backend := clip.NewMemory()
	store := history.New(10)
	bus := event.New()
	sub := bus.Subscribe("test", 16)
	w := New(backend, store, bus)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { bus.Unsubscribe(sub) })
	go func() { _ = w.Run(ctx) }()
	return backend, store, sub, w
}

func waitCapture(t *testing.T, sub *event.Subscription) event.CaptureChanged {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case e := <-sub.C:
			if c, ok := e.(event.CaptureChanged); ok {
				return c
			}
		case <-deadline:
			t.Fatal("timeout waiting for capture event")
		}
	}
}

func TestNewContentIsCaptured(t *testing.T) {
	backend, store, sub, _ := startWatcher(t)

	backend.SetItems([]clip.Item{clip.TextItem("hello")})

	ev := waitCapture(t, sub)
	if ev.MIME != "text/plain" || ev.Size != 5 {
		t.Fatalf("capture event = %+v", ev)
	}
	snap := store.Snapshot()
	if len(snap) != 1 || snap[0].Text() != "hello" {
		t.Fatalf("store = %v, want [hello]", snap)
	}
}

func TestUnchangedContentNotRecaptured(t *testing.T) {
	backend, store, sub, _ := startWatcher(t)

	backend.SetItems([]clip.Item{clip.TextItem("once")})
	waitCapture(t, sub)

	backend.Signal() // change notification with identical content
	time.Sleep(50 * time.Millisecond)

	if store.Len() != 1 {
		t.Fatalf("store len = %d, want 1", store.Len())
	}
}

func TestSelfOriginatedWriteSuppressed(t *testing.T) {
	backend, store, sub, w := startWatcher(t)

	items := []clip.Item{clip.TextItem("from-fill")}
	w.MarkSelf(items)
	backend.SetItems(items)
	time.Sleep(50 * time.Millisecond)

	if store.Len() != 0 {
		t.Fatal("self-originated write must not enter history")
	}
	select {
	case e := <-sub.C:
		t.Fatalf("unexpected event %T for self write", e)
	default:
	}

	// The mark is consumed: the same content copied externally later is a
	// real capture again.
	backend.SetItems([]clip.Item{clip.TextItem("other")})
	waitCapture(t, sub)
	backend.SetItems(items)
	waitCapture(t, sub)
	if store.Len() != 2 {
		t.Fatalf("store len = %d, want 2", store.Len())
	}
}

func TestReadFailureIsTransient(t *testing.T) {
	backend, store, sub, _ := startWatcher(t)

	backend.Fail(errors.New("denied"))
	backend.Signal()
	time.Sleep(50 * time.Millisecond)

	backend.Fail(nil)
	backend.SetItems([]clip.Item{clip.TextItem("recovered")})
	waitCapture(t, sub)

	if store.Len() != 1 {
		t.Fatal("watcher did not survive a failed read")
	}
}

func TestWhitespaceOnlyTextIgnored(t *testing.T) {
	backend, store, _, _ := startWatcher(t)

	backend.SetItems([]clip.Item{clip.TextItem("  \n\t ")})
	time.Sleep(50 * time.Millisecond)

	if store.Len() != 0 {
		t.Fatal("whitespace-only capture should be dropped")
	}
}

func TestImageFallback(t *testing.T) {
	backend, store, sub, _ := startWatcher(t)

	backend.SetItems([]clip.Item{{MIME: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}})
	ev := waitCapture(t, sub)
	if ev.MIME != "image/png" {
		t.Fatalf("capture MIME = %q, want image/png", ev.MIME)
	}
	if store.Len() != 1 {
		t.Fatal("image capture missing from store")
	}
}
