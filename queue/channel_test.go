package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestChannel_PushPopFIFO(t *testing.T) {
	c := New[int](4)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := c.Push(ctx, i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	for i := 0; i < 4; i++ {
		got, ok, err := c.Pop(ctx)
		if err != nil || !ok {
			t.Fatalf("pop %d: got=%v ok=%v err=%v", i, got, ok, err)
		}
		if got != i {
			t.Errorf("pop %d: want %d, got %d", i, i, got)
		}
	}
}

func TestChannel_PushBlocksUntilSpace(t *testing.T) {
	c := New[int](1)
	ctx := context.Background()

	if err := c.Push(ctx, 1); err != nil {
		t.Fatalf("first push: %v", err)
	}

	pushed := make(chan struct{})
	go func() {
		if err := c.Push(ctx, 2); err != nil {
			t.Errorf("second push: %v", err)
		}
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("second push returned before the channel had space")
	case <-time.After(30 * time.Millisecond):
	}

	if _, _, err := c.Pop(ctx); err != nil {
		t.Fatalf("pop: %v", err)
	}

	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("second push never unblocked after Pop freed space")
	}
}

func TestChannel_CloseWakesBlockedPop(t *testing.T) {
	c := New[int](1)

	done := make(chan struct{})
	var gotOK bool
	go func() {
		_, gotOK, _ = c.Pop(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	c.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up after Close")
	}
	if gotOK {
		t.Error("expected closed-and-drained Pop to report ok=false")
	}
}

func TestChannel_CloseDrainsBufferedItemsFirst(t *testing.T) {
	c := New[int](2)
	ctx := context.Background()
	if err := c.Push(ctx, 10); err != nil {
		t.Fatalf("push: %v", err)
	}
	c.Close()

	got, ok, err := c.Pop(ctx)
	if err != nil || !ok || got != 10 {
		t.Fatalf("expected to drain buffered item 10 first, got=%v ok=%v err=%v", got, ok, err)
	}

	_, ok, err = c.Pop(ctx)
	if err != nil || ok {
		t.Fatalf("expected end-of-stream after drain, got ok=%v err=%v", ok, err)
	}
}

func TestChannel_PushAfterCloseFails(t *testing.T) {
	c := New[int](1)
	c.Close()
	if err := c.Push(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	c := New[int](1)
	c.Close()
	c.Close() // must not panic
	if !c.Closed() {
		t.Error("expected Closed() to report true")
	}
}

func TestChannel_PopRespectsCancellation(t *testing.T) {
	c := New[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := c.Pop(ctx)
	if ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got ok=%v err=%v", ok, err)
	}
}

func TestChannel_TryPopTimesOut(t *testing.T) {
	c := New[int](1)
	_, ok, err := c.TryPop(10 * time.Millisecond)
	if ok || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got ok=%v err=%v", ok, err)
	}
}

func TestChannel_TryPopReturnsAvailableItem(t *testing.T) {
	c := New[int](1)
	if err := c.Push(context.Background(), 7); err != nil {
		t.Fatalf("push: %v", err)
	}
	got, ok, err := c.TryPop(time.Second)
	if err != nil || !ok || got != 7 {
		t.Fatalf("got=%v ok=%v err=%v", got, ok, err)
	}
}

func TestChannel_PerProducerFIFOUnderFanIn(t *testing.T) {
	c := New[int](100)
	ctx := context.Background()

	var wg sync.WaitGroup
	producers := 5
	perProducer := 20
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := c.Push(ctx, base*1000+i); err != nil {
					t.Errorf("push: %v", err)
				}
			}
		}(p)
	}
	wg.Wait()
	c.Close()

	lastSeenPerProducer := make(map[int]int)
	for {
		item, ok, err := c.Pop(ctx)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if !ok {
			break
		}
		producer := item / 1000
		seq := item % 1000
		if last, seen := lastSeenPerProducer[producer]; seen && seq <= last {
			t.Fatalf("producer %d: out-of-order frame, last=%d got=%d", producer, last, seq)
		}
		lastSeenPerProducer[producer] = seq
	}
	if len(lastSeenPerProducer) != producers {
		t.Fatalf("expected to observe all %d producers, saw %d", producers, len(lastSeenPerProducer))
	}
}
