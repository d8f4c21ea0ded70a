package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitDone(t *testing.T, n interface{ Done() <-chan struct{} }) {
	t.Helper()
	select {
	case <-n.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("notifier did not stop")
	}
}

func TestNotifier_DeliversInSubmissionOrder(t *testing.T) {
	var got []int
	n := New(func(v int) error {
		got = append(got, v)
		return nil
	})

	for i := 0; i < 100; i++ {
		n.Submit(i)
	}
	n.Stop()

	if err := n.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("delivered %d events, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("event %d = %d, out of order", i, v)
		}
	}
}

func TestNotifier_ConcurrentProducersSingleConsumer(t *testing.T) {
	type event struct{ producer, seq int }

	var (
		active   atomic.Int32
		overlap  atomic.Bool
		lastSeen = map[int]int{}
		total    int
	)
	n := New(func(ev event) error {
		if active.Add(1) > 1 {
			overlap.Store(true)
		}
		defer active.Add(-1)

		if prev, ok := lastSeen[ev.producer]; ok && ev.seq <= prev {
			t.Errorf("producer %d: seq %d after %d", ev.producer, ev.seq, prev)
		}
		lastSeen[ev.producer] = ev.seq
		total++
		return nil
	}, WithPollInterval[event](10*time.Millisecond))
	n.Start(context.Background())

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for s := 0; s < 50; s++ {
				n.Submit(event{producer: p, seq: s})
			}
		}(p)
	}
	wg.Wait()
	n.Stop()
	waitDone(t, n)

	if overlap.Load() {
		t.Error("handler ran concurrently with itself")
	}
	if total != 400 {
		t.Errorf("delivered %d events, want 400", total)
	}
}

func TestNotifier_StopDrainsAndRejectsLater(t *testing.T) {
	var delivered atomic.Int32
	n := New(func(int) error {
		delivered.Add(1)
		return nil
	})

	n.Submit(1)
	n.Submit(2)
	n.Stop()
	if n.Submit(3) {
		t.Error("Submit after Stop should report false")
	}
	n.Stop()

	if got := n.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}

	n.Start(context.Background())
	waitDone(t, n)

	if got := delivered.Load(); got != 2 {
		t.Errorf("delivered %d events, want 2", got)
	}
}

func TestNotifier_HandlerErrorsAndPanics(t *testing.T) {
	var (
		mu     sync.Mutex
		errs   []error
		values []int
	)
	boom := errors.New("boom")

	n := New(func(v int) error {
		switch v {
		case 1:
			return boom
		case 2:
			panic("bad event")
		}
		mu.Lock()
		values = append(values, v)
		mu.Unlock()
		return nil
	}, WithErrorHandler[int](func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}))

	for _, v := range []int{0, 1, 2, 3} {
		n.Submit(v)
	}
	n.Stop()
	if err := n.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
	if !errors.Is(errs[0], boom) {
		t.Errorf("first error = %v, want boom", errs[0])
	}
	if len(values) != 2 || values[0] != 0 || values[1] != 3 {
		t.Errorf("loop must survive handler failures, delivered %v", values)
	}
}

func TestNotifier_ContextCancelStopsLoop(t *testing.T) {
	n := New(func(int) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- n.Run(ctx) }()

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNotifier_RunTwice(t *testing.T) {
	n := New(func(int) error { return nil })
	n.Start(context.Background())
	defer n.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for !n.running.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := n.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestNotifier_IdleWakeup(t *testing.T) {
	got := make(chan string, 1)
	n := New(func(s string) error {
		got <- s
		return nil
	}, WithPollInterval[string](time.Hour))
	n.Start(context.Background())
	defer n.Stop()

	time.Sleep(20 * time.Millisecond)
	n.Submit("late")

	select {
	case s := <-got:
		if s != "late" {
			t.Errorf("got %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("submitted event was not delivered while idle")
	}
}
