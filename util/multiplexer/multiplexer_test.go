package multiplexer

import (
	"errors"
	"testing"
)

func TestManyToOneSurvivesClose(t *testing.T) {
	ch := make(chan int, 4)
	m := NewManyToOne(ch)
	if err := m.Send(1); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	m.Close()
	if err := m.Send(2); !errors.Is(err, ErrClosed) {
		t.Errorf("send after close returned %v, want ErrClosed", err)
	}
	// A second close must not blow up
	m.Close()

	if v := <-ch; v != 1 {
		t.Errorf("buffered message lost, got %d", v)
	}
	if _, ok := <-ch; ok {
		t.Errorf("channel still open after close")
	}
}

func TestOneToManyFansOut(t *testing.T) {
	plex := NewOneToMany[string]()
	go plex.StartPlexer()

	a, err := plex.MakeReceiver("a")
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	b, err := plex.MakeReceiver("b")
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}
	if _, err := plex.MakeReceiver("a"); err == nil {
		t.Errorf("duplicate name accepted")
	}

	plex.GetSender() <- "ping"
	if got := <-a; got != "ping" {
		t.Errorf("receiver a got %q", got)
	}
	if got := <-b; got != "ping" {
		t.Errorf("receiver b got %q", got)
	}

	// Dropping one receiver leaves the other fed
	plex.CloseReceiver("b")
	if _, ok := <-b; ok {
		t.Errorf("closed receiver still open")
	}
	plex.GetSender() <- "pong"
	if got := <-a; got != "pong" {
		t.Errorf("surviving receiver got %q", got)
	}

	plex.CloseSender()
	if _, ok := <-a; ok {
		t.Errorf("receiver still open after the sender closed")
	}
}
