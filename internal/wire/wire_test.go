package wire

import (
	"net"
	"testing"

	"go.klb.dev/clipvault/internal/message"
	"go.klb.dev/clipvault/internal/secretbox"
)

func pipePair(key *[32]byte) (*Conn, *Conn) {
	a, b := net.Pipe()
	return New(a, key), New(b, key)
}

func TestPlainRoundTrip(t *testing.T) {
	a, b := pipePair(nil)
	defer a.Close()
	defer b.Close()

	go func() {
		_ = a.WriteMsg(&message.Message{
			Type:  message.TypeCopy,
			Items: []message.Item{message.NewTextItem("over the wire")},
		})
	}()

	got, err := b.ReadMsg()
	if err != nil {
		t.Fatalf("ReadMsg: %v", err)
	}
	if got.Type != message.TypeCopy || got.TextPayload() != "over the wire" {
		t.Fatalf("got %+v", got)
	}
}

func TestEncryptedRoundTrip(t *testing.T) {
	key, err := secretbox.DeriveKey("shared-token")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	a, b := pipePair(key)
	defer a.Close()
	defer b.Close()

	go func() {
		_ = a.WriteMsg(&message.Message{Type: message.TypePing})
	}()

	got, err := b.ReadMsg()
	if err != nil {
		t.Fatalf("ReadMsg: %v", err)
	}
	if got.Type != message.TypePing {
		t.Fatalf("got %+v", got)
	}
}

func TestWrongKeyFails(t *testing.T) {
	keyA, _ := secretbox.DeriveKey("token-a")
	keyB, _ := secretbox.DeriveKey("token-b")

	a, bRaw := net.Pipe()
	sender := New(a, keyA)
	receiver := New(bRaw, keyB)
	defer sender.Close()
	defer receiver.Close()

	go func() {
		_ = sender.WriteMsg(&message.Message{Type: message.TypePing})
	}()

	if _, err := receiver.ReadMsg(); err == nil {
		t.Fatal("ReadMsg succeeded with mismatched keys")
	}
}
