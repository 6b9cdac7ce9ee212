package bus

import (
	"sync"
	"testing"
	"time"
)

func TestOverwriteSemantics(t *testing.T) {
	l := NewListener[int]()

	if !l.AddMessage(1) {
		t.Fatal("first add should succeed")
	}
	if !l.AddMessage(2) {
		t.Fatal("second add should succeed")
	}

	got, ok := l.Take()
	if !ok {
		t.Fatal("expected a message")
	}
	if got != 2 {
		t.Errorf("expected only the latest message (2) to be visible, got %d", got)
	}

	if _, ok := l.Take(); ok {
		t.Error("inbox should be empty after Take")
	}
}

func TestTakeOnEmptyReturnsFalse(t *testing.T) {
	l := NewListener[string]()
	if _, ok := l.Take(); ok {
		t.Error("expected no message on an empty inbox")
	}
}

func TestOverloadDrop(t *testing.T) {
	l := NewListener[int]()
	l.SetTimeout(200 * time.Microsecond)

	// Hold the inbox's lock to simulate a consumer draining it, forcing
	// concurrent producers to either wait out the timeout or drop.
	l.mu.Lock()
	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.AddMessage(i)
		}(i)
	}

	time.Sleep(2 * time.Millisecond)
	l.mu.Unlock()
	wg.Wait()

	dropped := false
	for _, ok := range results {
		if !ok {
			dropped = true
		}
	}
	if !dropped {
		t.Error("expected at least one addMessage to fail under contention")
	}
}
