package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register(":TEST:", func(e Event) (any, error) {
		called = true
		return "result", nil
	})

	result, err := d.Dispatch(Event{Command: ":TEST:", Args: []string{"arg1"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: ":UNKNOWN:"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDispatcher_DeferredHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var order []string
	d.Register(":A:", func(e Event) (any, error) {
		order = append(order, "a"+e.Args[0])
		return nil, nil
	}, Deferred())
	d.Register(":B:", func(e Event) (any, error) {
		order = append(order, "b"+e.Args[0])
		return nil, nil
	}, Deferred())

	for i, cmd := range []string{":A:", ":B:", ":A:"} {
		result, err := d.Dispatch(Event{Command: cmd, Args: []string{fmt.Sprint(i)}})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected 'queued', got %v", result)
		}
	}

	if len(order) != 0 {
		t.Fatalf("handlers ran before Drain: %v", order)
	}
	if d.Pending() != 3 {
		t.Errorf("expected 3 pending, got %d", d.Pending())
	}

	if n := d.Drain(); n != 3 {
		t.Errorf("expected 3 drained, got %d", n)
	}
	want := []string{"a0", "b1", "a2"}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
	if d.Drain() != 0 {
		t.Error("second drain should be empty")
	}
}

func TestDispatcher_DeferredReply(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register(":ECHO:", func(e Event) (any, error) {
		return e.Args[0], nil
	}, Deferred())

	var got any
	if _, err := d.DispatchLine(`:echo: "hi there"`, func(r any, err error) { got = r }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Drain()

	if got != "hi there" {
		t.Errorf("expected reply 'hi there', got %v", got)
	}
}

func TestDispatcher_DeferredDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register(":FULL:", func(e Event) (any, error) { return nil, nil }, Deferred())

	for i := 0; i < DefaultQueueSize; i++ {
		if _, err := d.Dispatch(Event{Command: ":FULL:"}); err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
	}

	_, err := d.Dispatch(Event{Command: ":FULL:"})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatcher_DeferredBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register(":BLOCKING:", func(e Event) (any, error) { return nil, nil }, Deferred(), Blocking())

	for i := 0; i < DefaultQueueSize; i++ {
		d.Dispatch(Event{Command: ":BLOCKING:"})
	}

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":BLOCKING:"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - dispatch is blocking
	}

	d.Drain()
	<-done
}

func TestParseLine(t *testing.T) {
	e, err := ParseLine(":arm: 3 120.5 -40 standard")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Command != ":ARM:" {
		t.Errorf("expected :ARM:, got %s", e.Command)
	}
	if len(e.Args) != 4 || e.Args[3] != "standard" {
		t.Errorf("unexpected args %v", e.Args)
	}

	for _, bad := range []string{"", "   ", "arm 1 2", ":", `:X: "open`} {
		if _, err := ParseLine(bad); !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseLine(%q): expected ErrMalformed, got %v", bad, err)
		}
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":LOGGED:", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: ":LOGGED:", Args: []string{"a", "b"}})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":ERROR:", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(Event{Command: ":ERROR:"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if len(msg) >= 5 && msg[:5] == "ERROR" {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":EXISTS:", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler(":EXISTS:") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler(":NOT_EXISTS:") {
		t.Error("expected handler to not exist")
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	processed := 0
	d.Register(":COMBINED:", func(e Event) (any, error) {
		processed++
		return "done", nil
	}, Deferred(), Logged())

	result, err := d.Dispatch(Event{Command: ":COMBINED:"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "queued" {
		t.Errorf("expected 'queued', got %v", result)
	}

	logger.mu.Lock()
	before := len(logger.messages)
	logger.mu.Unlock()
	if before != 0 {
		t.Errorf("logging should happen when the handler runs, got %d messages", before)
	}

	d.Drain()

	if processed != 1 {
		t.Errorf("expected 1 processed, got %d", processed)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected log messages, got %d", len(logger.messages))
	}
}
