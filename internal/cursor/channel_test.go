package cursor

import (
	"testing"
	"time"
)

func TestChannelPushPop(t *testing.T) {
	ch := NewChannel(4)
	ch.Push(Entry{ShardIndex: 0, Reply: "a"})
	ch.Push(Entry{ShardIndex: 1, Reply: "b"})

	e, ok, err := ch.Pop(time.Time{})
	if err != nil || !ok || e.ShardIndex != 0 {
		t.Fatalf("first Pop() = (%v, %v, %v)", e, ok, err)
	}
	e, ok, err = ch.Pop(time.Time{})
	if err != nil || !ok || e.ShardIndex != 1 {
		t.Fatalf("second Pop() = (%v, %v, %v)", e, ok, err)
	}
}

func TestChannelPopDeadlineExceeded(t *testing.T) {
	ch := NewChannel(1)
	_, ok, err := ch.Pop(time.Now().Add(-time.Second))
	if ok {
		t.Error("Pop() with a past deadline and no entry should not be ok")
	}
	if err != ErrPopTimeout {
		t.Errorf("Pop() err = %v, want ErrPopTimeout", err)
	}
}

func TestChannelPopPastDeadlineStillDrainsBuffered(t *testing.T) {
	ch := NewChannel(1)
	ch.Push(Entry{ShardIndex: 0})
	e, ok, err := ch.Pop(time.Now().Add(-time.Second))
	if err != nil || !ok || e.ShardIndex != 0 {
		t.Errorf("Pop() past deadline with buffered entry = (%v, %v, %v)", e, ok, err)
	}
}

func TestChannelCloseDrainsThenEOF(t *testing.T) {
	ch := NewChannel(2)
	ch.Push(Entry{ShardIndex: 0})
	ch.Close()

	_, ok, err := ch.Pop(time.Time{})
	if err != nil || !ok {
		t.Fatalf("Pop() after Close() with buffered entry = (ok=%v, err=%v)", ok, err)
	}
	_, ok, err = ch.Pop(time.Time{})
	if err != nil || ok {
		t.Errorf("Pop() after Close() and drain = (ok=%v, err=%v), want ok=false", ok, err)
	}
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	ch := NewChannel(1)
	ch.Close()
	ch.Close() // must not panic (double close on the underlying chan)
}

func TestChannelPushAfterCloseIsDropped(t *testing.T) {
	ch := NewChannel(1)
	ch.Close()
	ch.Push(Entry{ShardIndex: 0}) // must not panic
	_, ok, _ := ch.Pop(time.Time{})
	if ok {
		t.Error("Pop() returned an entry pushed after Close()")
	}
}

func TestChannelLen(t *testing.T) {
	ch := NewChannel(4)
	if ch.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", ch.Len())
	}
	ch.Push(Entry{})
	ch.Push(Entry{})
	if ch.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ch.Len())
	}
}
