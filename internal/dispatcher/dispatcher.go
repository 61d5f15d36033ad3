package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OCAP2/artillery/internal/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultQueueSize is the capacity of the deferred queue.
const DefaultQueueSize = 256

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
	ErrMalformed      = errors.New("malformed command")
)

// Event represents an incoming command.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
	// Reply, if set, receives the result of a deferred handler once it has run.
	Reply func(result any, err error)
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	deferred bool
	blocking bool
	logged   bool
}

// Deferred queues events for the handler until Drain is called. Handlers that touch state
// owned by the frame loop are registered this way and drained once per frame.
func Deferred() Option {
	return func(c *config) {
		c.deferred = true
	}
}

// Blocking makes a deferred handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type pending struct {
	e       Event
	h       HandlerFunc
	command attribute.KeyValue
}

// Dispatcher routes events to registered handlers. Dispatch may be called from any goroutine;
// Drain must be called from the goroutine that owns the deferred handlers' state.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger
	queue    chan pending

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
		queue:    make(chan pending, DefaultQueueSize),
	}

	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of deferred events"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.queueSize, int64(len(d.queue)))
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
// Register is not safe to call concurrently with Dispatch.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.deferred {
		handler = d.withQueue(command, cfg.blocking, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("%s: %w", e.Command, ErrUnknownCommand)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// DispatchLine parses a text command such as `:ARM: 3 120 -40 standard` and dispatches it.
func (d *Dispatcher) DispatchLine(line string, reply func(any, error)) (any, error) {
	e, err := ParseLine(line)
	if err != nil {
		return nil, err
	}
	e.Reply = reply
	return d.Dispatch(e)
}

// ParseLine splits a text command into an Event. Commands are wrapped in colons.
func ParseLine(line string) (Event, error) {
	fields, err := util.SplitArgs(line)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(fields) == 0 {
		return Event{}, fmt.Errorf("empty line: %w", ErrMalformed)
	}
	cmd := strings.ToUpper(fields[0])
	if len(cmd) < 3 || !strings.HasPrefix(cmd, ":") || !strings.HasSuffix(cmd, ":") {
		return Event{}, fmt.Errorf("command %q: %w", fields[0], ErrMalformed)
	}
	return Event{Command: cmd, Args: fields[1:]}, nil
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Pending returns the number of deferred events waiting for Drain.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Drain runs every deferred event queued so far, in arrival order, and returns how many ran.
func (d *Dispatcher) Drain() int {
	n := 0
	for {
		select {
		case p := <-d.queue:
			result, err := p.h(p.e)
			d.processed.Add(context.Background(), 1, metric.WithAttributes(p.command))
			if p.e.Reply != nil {
				p.e.Reply(result, err)
			}
			n++
		default:
			return n
		}
	}
}

func (d *Dispatcher) withQueue(command string, blocking bool, h HandlerFunc) HandlerFunc {
	cmdAttr := attribute.String("command", command)

	if blocking {
		return func(e Event) (any, error) {
			d.queue <- pending{e: e, h: h, command: cmdAttr}
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		select {
		case d.queue <- pending{e: e, h: h, command: cmdAttr}:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("%s: %w", command, ErrQueueFull)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
