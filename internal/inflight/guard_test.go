package inflight_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/blackwell-systems/libctl/internal/inflight"
)

func TestBeginBusyDone(t *testing.T) {
	g := inflight.New()
	key := inflight.Key(inflight.KindAccept, 12)
	if key != "accept:12" {
		t.Fatalf("Key = %q", key)
	}

	_, done, err := g.Begin(context.Background(), key)
	if err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	if !g.Busy(key) {
		t.Error("key should be busy")
	}

	if _, _, err := g.Begin(context.Background(), key); !errors.Is(err, inflight.ErrBusy) {
		t.Errorf("second Begin err = %v, want ErrBusy", err)
	}
	if _, d2, err := g.Begin(context.Background(), inflight.Key(inflight.KindAccept, 13)); err != nil {
		t.Errorf("other key should not be busy: %v", err)
	} else {
		d2()
	}

	done()
	done()
	if g.Busy(key) {
		t.Error("key should be released after done")
	}
	if _, d3, err := g.Begin(context.Background(), key); err != nil {
		t.Errorf("Begin after done: %v", err)
	} else {
		d3()
	}
}

func TestCancel(t *testing.T) {
	var g inflight.Guard
	key := inflight.Key(inflight.KindReturn, 3)
	ctx, done, err := g.Begin(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	defer done()

	if !g.Cancel(key) {
		t.Fatal("Cancel should report an in-flight call")
	}
	<-ctx.Done()
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("ctx.Err() = %v", ctx.Err())
	}
	if !g.Busy(key) {
		t.Error("key stays busy until done")
	}
	if g.Cancel("missing:1") {
		t.Error("Cancel on idle key should report false")
	}
}

func TestCancelAll(t *testing.T) {
	g := inflight.New()
	ctxA, doneA, _ := g.Begin(context.Background(), "a")
	ctxB, doneB, _ := g.Begin(context.Background(), "b")
	defer doneA()
	defer doneB()

	g.CancelAll()
	<-ctxA.Done()
	<-ctxB.Done()
	if g.Len() != 2 {
		t.Errorf("Len = %d, want 2", g.Len())
	}
}

func TestConcurrentBeginAdmitsOne(t *testing.T) {
	g := inflight.New()
	const n = 50
	var (
		attempted sync.WaitGroup
		finished  sync.WaitGroup
		mu        sync.Mutex
		started   int
		release   = make(chan struct{})
	)
	attempted.Add(n)
	finished.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer finished.Done()
			_, done, err := g.Begin(context.Background(), "request:BK1")
			if err == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
			attempted.Done()
			if err != nil {
				return
			}
			<-release
			done()
		}()
	}
	attempted.Wait()
	if started != 1 {
		t.Errorf("started = %d, want 1", started)
	}
	close(release)
	finished.Wait()
	if g.Len() != 0 {
		t.Errorf("Len = %d after all done", g.Len())
	}
}
