package mailbox_test

import (
	"sync"
	"testing"

	"github.com/transitlab/bustrack/mailbox"
)

func TestTakeEmpty(t *testing.T) {
	var box mailbox.Mailbox[int]
	if _, ok := box.Take(); ok {
		t.Error("empty mailbox must report not ok")
	}
}

func TestPutTake(t *testing.T) {
	var box mailbox.Mailbox[string]
	box.Put("hello")

	v, ok := box.Take()
	if !ok || v != "hello" {
		t.Errorf("Take = %q, %v", v, ok)
	}

	// A value is delivered once.
	if _, ok := box.Take(); ok {
		t.Error("second Take must report not ok")
	}
}

func TestPutOverwrites(t *testing.T) {
	var box mailbox.Mailbox[int]
	box.Put(1)
	box.Put(2)

	v, ok := box.Take()
	if !ok || v != 2 {
		t.Errorf("Take = %d, %v, want latest value", v, ok)
	}
}

func TestConcurrentAccess(t *testing.T) {
	var box mailbox.Mailbox[int]
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			box.Put(i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			box.Take()
		}
	}()
	wg.Wait()

	box.Put(42)
	if v, ok := box.Take(); !ok || v != 42 {
		t.Errorf("Take = %d, %v, want 42", v, ok)
	}
}
