package cursor

import "testing"

func TestCountBarrierReadyOnceEveryShardResponds(t *testing.T) {
	b := NewCountBarrier(2)
	if b.Ready() {
		t.Fatal("Ready() true before any Notify")
	}
	b.Notify(0, 10, false)
	if b.Ready() {
		t.Fatal("Ready() true after only one of two shards responded")
	}
	b.Notify(1, 7, false)
	if !b.Ready() {
		t.Fatal("Ready() false after every shard responded")
	}
	if got := b.Total(); got != 17 {
		t.Errorf("Total() = %d, want 17", got)
	}
}

func TestCountBarrierIgnoresDuplicateNotifyForSameShard(t *testing.T) {
	b := NewCountBarrier(1)
	b.Notify(0, 10, false)
	b.Notify(0, 999, false) // a later cursor page from the same shard
	if got := b.Total(); got != 10 {
		t.Errorf("Total() = %d, want 10 (second Notify for shard 0 must not double count)", got)
	}
}

func TestCountBarrierTracksShardError(t *testing.T) {
	b := NewCountBarrier(2)
	b.Notify(0, 5, false)
	b.Notify(1, 0, true)
	if !b.Ready() {
		t.Fatal("Ready() false after both shards notified, one with an error")
	}
	if !b.HasShardError() {
		t.Error("HasShardError() false despite an errored shard")
	}
}

func TestCountBarrierZeroShardsIsImmediatelyReady(t *testing.T) {
	b := NewCountBarrier(0)
	if !b.Ready() {
		t.Error("Ready() false for a zero-shard barrier")
	}
}
