package command

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/event"
)

// Command builds a transaction from an editor state. It must not retain
// or modify the state.
type Command func(st engine.State, p Params) (*transform.Transaction, error)

// Target is an editing session commands are executed against.
// *engine.Editor implements it.
type Target interface {
	State() engine.State
	Apply(ctx context.Context, tr *transform.Transaction) error
	Undo(ctx context.Context) error
	Redo(ctx context.Context) error
}

// Metrics records command activity.
type Metrics interface {
	CommandExecuted(name string, ok bool, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) CommandExecuted(string, bool, time.Duration) {}

// ParamClipboard is the parameter under which Execute passes the
// dispatcher's clipboard node to commands.
const ParamClipboard = "clipboard"

// MetaClipboard on a transaction hands a node to the dispatcher's
// clipboard once the transaction is applied.
const MetaClipboard = "clipboard"

// Dispatcher maps command names to commands and applies them.
type Dispatcher struct {
	mu        sync.RWMutex
	commands  map[string]Command
	clipboard *model.Node

	logger    *slog.Logger
	publisher engine.Publisher
	metrics   Metrics
	retries   int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithPublisher sets where CommandExecuted events are published.
func WithPublisher(p engine.Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithRetries sets how often Execute rebuilds a transaction that lost a
// race with a concurrent edit. The default is 2.
func WithRetries(n int) Option {
	return func(d *Dispatcher) { d.retries = max(n, 0) }
}

// New creates a dispatcher with no commands.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		commands: make(map[string]Command),
		logger:   slog.Default(),
		metrics:  nopMetrics{},
		retries:  2,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "command")
	return d
}

// NewWithDefaults creates a dispatcher with the built-in commands.
func NewWithDefaults(opts ...Option) *Dispatcher {
	d := New(opts...)
	RegisterBuiltins(d)
	return d
}

// Register adds a command under name.
func (d *Dispatcher) Register(name string, cmd Command) error {
	if name == "" || cmd == nil {
		return ErrInvalidCommand
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.commands[name]; ok {
		return &CommandError{Command: name, Err: ErrDuplicateCommand}
	}
	d.commands[name] = cmd
	return nil
}

// Unregister removes a command. It reports whether one was registered.
func (d *Dispatcher) Unregister(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.commands[name]
	delete(d.commands, name)
	return ok
}

// Has reports whether a command is registered under name.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.commands[name]
	return ok
}

// Names returns the registered command names, sorted.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run builds the transaction for a command without applying it.
func (d *Dispatcher) Run(st engine.State, name string, p Params) (tr *transform.Transaction, err error) {
	d.mu.RLock()
	cmd, ok := d.commands[name]
	d.mu.RUnlock()
	if !ok {
		return nil, &CommandError{Command: name, Err: ErrUnknownCommand}
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("command panicked", "command", name, "panic", r)
			tr, err = nil, &CommandError{Command: name, Reason: "panic"}
		}
	}()

	tr, err = cmd(st, p)
	if err == nil && tr == nil {
		err = failf("no transaction")
	}
	if err == nil {
		err = tr.Err()
	}
	if err != nil {
		return nil, named(name, err)
	}
	tr.SetMeta(transform.MetaCommand, name)
	return tr, nil
}

// CanApply reports whether a command would succeed against st.
func (d *Dispatcher) CanApply(st engine.State, name string, p Params) bool {
	tr, err := d.Run(st, name, p)
	if err != nil {
		return false
	}
	if sel, ok := tr.Selection(); ok && tr.Doc() != nil {
		return sel.Validate(tr.Doc()) == nil
	}
	return true
}

// Execute runs a command against the target's current state and applies
// the result. A transaction that loses a race with a concurrent edit is
// rebuilt against the new state.
func (d *Dispatcher) Execute(ctx context.Context, target Target, name string, p Params) (*transform.Transaction, error) {
	start := time.Now()
	if clip := d.Clipboard(); clip != nil && !p.Has(ParamClipboard) {
		p = p.With(ParamClipboard, clip)
	}

	var (
		tr  *transform.Transaction
		err error
	)
	for attempt := 0; ; attempt++ {
		tr, err = d.Run(target.State(), name, p)
		if err != nil {
			break
		}
		err = target.Apply(ctx, tr)
		if err == nil || !errors.Is(err, transform.ErrVersionMismatch) || attempt >= d.retries {
			break
		}
		d.logger.Debug("command retry", "command", name, "attempt", attempt+1)
	}
	d.metrics.CommandExecuted(name, err == nil, time.Since(start))
	if err != nil {
		d.logger.Debug("command failed", "command", name, "error", err)
		return nil, named(name, err)
	}

	if clip, ok := tr.Meta(MetaClipboard); ok {
		if n, ok := clip.(*model.Node); ok {
			d.mu.Lock()
			d.clipboard = n
			d.mu.Unlock()
		}
	}
	if d.publisher != nil {
		ev := event.NewEvent(event.TopicCommandExecuted, event.CommandExecuted{Name: name, TransactionID: tr.ID}, "command")
		if err := d.publisher.Publish(ctx, ev.WithCorrelation(tr.ID)); err != nil {
			d.logger.Debug("event publish failed", "error", err)
		}
	}
	return tr, nil
}

// Undo reverts the target's newest history entry.
func (d *Dispatcher) Undo(ctx context.Context, target Target) error {
	return target.Undo(ctx)
}

// Redo reapplies the target's newest undone entry.
func (d *Dispatcher) Redo(ctx context.Context, target Target) error {
	return target.Redo(ctx)
}

// Clipboard returns the node last copied with copy-node, or nil.
func (d *Dispatcher) Clipboard() *model.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.clipboard
}

// SetClipboard replaces the clipboard node.
func (d *Dispatcher) SetClipboard(n *model.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clipboard = n
}

// named wraps err in a CommandError carrying name.
func named(name string, err error) error {
	var ce *CommandError
	if errors.As(err, &ce) {
		if ce.Command == "" {
			ce.Command = name
		}
		return err
	}
	return &CommandError{Command: name, Err: err}
}
