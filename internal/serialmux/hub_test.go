package serialmux

import (
	"testing"
	"time"
)

func TestHub_PublishAndShutdown(t *testing.T) {
	h := newHub(2)
	_, a := h.add(false)
	idB, b := h.add(false)
	if h.count() != 2 {
		t.Fatalf("count = %d", h.count())
	}

	h.publish("one")
	h.remove(idB)
	h.publish("two")
	h.publish("three") // a is full

	if got := drain(a); len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("a got %q", got)
	}
	if got := drain(b); len(got) != 1 || got[0] != "one" {
		t.Errorf("b got %q", got)
	}
	if h.dropped.Load() != 1 {
		t.Errorf("dropped = %d, want 1", h.dropped.Load())
	}

	if !h.shutdown() {
		t.Error("first shutdown should report true")
	}
	if h.shutdown() {
		t.Error("second shutdown should report false")
	}
	if _, ok := <-a; ok {
		t.Error("subscriber not closed by shutdown")
	}
	h.publish("after") // no subscribers, no panic
}

func TestHub_LosslessWaitsForSubscriber(t *testing.T) {
	h := newHub(1)
	_, lossy := h.add(false)
	_, ch := h.add(true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, l := range []string{"a", "b", "c"} {
			h.publish(l)
		}
	}()

	var got []string
	for len(got) < 3 {
		select {
		case l := <-ch:
			got = append(got, l)
		case <-time.After(2 * time.Second):
			t.Fatalf("lossless subscriber got %q, want 3 lines", got)
		}
	}
	<-done

	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("lossless subscriber got %q", got)
	}
	if l := drain(lossy); len(l) != 1 {
		t.Errorf("lossy subscriber got %q, want only the first line", l)
	}
	if h.dropped.Load() != 2 {
		t.Errorf("dropped = %d, want 2", h.dropped.Load())
	}
}

func TestHub_RemoveReleasesBlockedPublish(t *testing.T) {
	h := newHub(0)
	id, ch := h.add(true)

	done := make(chan struct{})
	go func() {
		h.publish("stuck")
		close(done)
	}()

	h.remove(id)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish still blocked after remove")
	}
	if _, ok := <-ch; ok {
		t.Error("removed subscriber not closed")
	}
}

func TestHub_ShutdownReleasesBlockedPublish(t *testing.T) {
	h := newHub(0)
	_, ch := h.add(true)

	done := make(chan struct{})
	go func() {
		h.publish("stuck")
		close(done)
	}()

	h.shutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish still blocked after shutdown")
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber not closed by shutdown")
	}
}
