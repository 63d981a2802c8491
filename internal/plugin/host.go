package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/folio/internal/command"
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/transform"
	plua "github.com/dshills/folio/internal/plugin/lua"
	"github.com/dshills/folio/internal/serial"
)

// ModuleName is the name plugins pass to require.
const ModuleName = "folio"

// DefaultGroup is the slash menu group of plugin commands that name none.
const DefaultGroup = "Plugins"

// Host loads plugins and wires their commands into a dispatcher and a
// slash catalog. It is safe for concurrent use.
type Host struct {
	dispatcher *command.Dispatcher
	catalog    *command.Catalog
	logger     *slog.Logger
	timeout    time.Duration

	mu      sync.Mutex
	plugins map[string]*loaded
}

// loaded is a running plugin.
type loaded struct {
	manifest *Manifest
	state    *plua.State
	logger   *slog.Logger
	commands []string
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets the host logger.
func WithLogger(l *slog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithTimeout bounds each script execution.
func WithTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.timeout = d
	}
}

// NewHost creates a host registering commands on d and menu items on c.
func NewHost(d *command.Dispatcher, c *command.Catalog, opts ...HostOption) *Host {
	h := &Host{
		dispatcher: d,
		catalog:    c,
		logger:     slog.Default(),
		timeout:    plua.DefaultExecutionTimeout,
		plugins:    make(map[string]*loaded),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "plugin")
	return h
}

// LoadDir loads every plugin under dir and returns how many loaded. A
// plugin that fails is skipped and reported in the joined error.
func (h *Host) LoadDir(ctx context.Context, dir string) (int, error) {
	manifests, err := Discover(dir)
	errs := []error{err}
	n := 0
	for _, m := range manifests {
		if err := h.Load(ctx, m); err != nil {
			h.logger.Warn("plugin load failed", "plugin", m.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Load runs the plugin's entry script. Commands it registered are removed
// again when the script fails.
func (h *Host) Load(ctx context.Context, m *Manifest) error {
	h.mu.Lock()
	if _, ok := h.plugins[m.Name]; ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, m.Name)
	}
	logger := h.logger.With("plugin", m.Name)
	p := &loaded{manifest: m, logger: logger}
	p.state = plua.NewState(
		plua.WithExecutionTimeout(h.timeout),
		plua.WithPrint(func(s string) { logger.Info(s) }),
	)
	h.plugins[m.Name] = p
	h.mu.Unlock()

	err := p.state.Preload(ModuleName, h.module(p))
	if err == nil {
		err = p.state.DoFile(ctx, m.EntryPath())
	}
	if err != nil {
		h.unload(p)
		return fmt.Errorf("plugin %s: %w", m.Name, err)
	}
	logger.Info("plugin loaded", "version", m.Version, "commands", len(p.commands))
	return nil
}

// Unload removes a plugin and its commands.
func (h *Host) Unload(name string) error {
	h.mu.Lock()
	p, ok := h.plugins[name]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	h.unload(p)
	return nil
}

func (h *Host) unload(p *loaded) {
	h.mu.Lock()
	delete(h.plugins, p.manifest.Name)
	cmds := p.commands
	p.commands = nil
	h.mu.Unlock()

	for _, name := range cmds {
		h.dispatcher.Unregister(name)
		h.catalog.Remove(name)
	}
	_ = p.state.Close()
}

// Plugins returns the names of the loaded plugins, sorted.
func (h *Host) Plugins() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.plugins))
	for name := range h.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands returns the commands a plugin registered.
func (h *Host) Commands(name string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.plugins[name]; ok {
		return append([]string(nil), p.commands...)
	}
	return nil
}

// Close unloads every plugin.
func (h *Host) Close() error {
	for _, name := range h.Plugins() {
		_ = h.Unload(name)
	}
	return nil
}

// module builds the folio module for one plugin.
func (h *Host) module(p *loaded) lua.LGFunction {
	return func(L *lua.LState) int {
		mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
			"register": func(L *lua.LState) int {
				if err := h.register(p, L.CheckTable(1)); err != nil {
					L.RaiseError("%s", err.Error())
				}
				return 0
			},
			"log": func(L *lua.LState) int {
				p.logger.Info(L.CheckString(1))
				return 0
			},
		})
		L.SetField(mod, "plugin", lua.LString(p.manifest.Name))
		L.Push(mod)
		return 1
	}
}

// register adds one command from a folio.register spec table.
func (h *Host) register(p *loaded, spec *lua.LTable) error {
	name, _ := plua.TableString(spec, "name")
	if !namePattern.MatchString(name) {
		return fmt.Errorf("register: invalid command name %q", name)
	}
	run, ok := plua.TableFunc(spec, "run")
	if !ok {
		return fmt.Errorf("register %s: run must be a function", name)
	}
	full := p.manifest.Name + "." + name

	item := command.Item{Title: name, Group: DefaultGroup, Command: full}
	if s, ok := plua.TableString(spec, "title"); ok {
		item.Title = s
	}
	if s, ok := plua.TableString(spec, "group"); ok {
		item.Group = s
	}
	if s, ok := plua.TableString(spec, "description"); ok {
		item.Description = s
	}
	item.Keywords = command.Params{"k": plua.ToGo(spec.RawGetString("keywords"))}.Strings("k")
	if params, ok := plua.ToGo(spec.RawGetString("params")).(map[string]any); ok {
		item.Params = params
	}

	if err := h.dispatcher.Register(full, h.command(p, full, run)); err != nil {
		return err
	}
	h.mu.Lock()
	p.commands = append(p.commands, full)
	h.mu.Unlock()
	h.catalog.Add(item)
	return nil
}

// command wraps a Lua run function as a dispatcher command.
func (h *Host) command(p *loaded, name string, run *lua.LFunction) command.Command {
	return func(st engine.State, params command.Params) (*transform.Transaction, error) {
		out, err := p.state.CallFunction(context.Background(), run, runContext(st, params))
		if err != nil {
			return nil, &command.CommandError{Command: name, Reason: "plugin error", Err: err}
		}
		var result any
		if len(out) > 0 {
			result = out[0]
		}
		return h.interpret(st, name, result)
	}
}

// interpret turns a run result into a transaction.
func (h *Host) interpret(st engine.State, name string, result any) (*transform.Transaction, error) {
	if result == nil || result == false {
		return nil, &command.CommandError{Command: name, Reason: "declined"}
	}
	m, ok := result.(map[string]any)
	if !ok {
		return nil, &command.CommandError{Command: name, Err: fmt.Errorf("%w: %T", ErrBadResult, result)}
	}

	if raw, ok := m["node"]; ok {
		tree, err := portable(raw)
		if err != nil {
			return nil, &command.CommandError{Command: name, Err: err}
		}
		n, err := serial.NodeFromPortable(st.Schema, tree)
		if err != nil {
			return nil, &command.CommandError{Command: name, Reason: "invalid node", Err: err}
		}
		return h.dispatcher.Run(st, command.PasteNode, command.Params{"node": n})
	}

	target, _ := m["command"].(string)
	if target == "" {
		return nil, &command.CommandError{Command: name, Err: fmt.Errorf("%w: want node or command", ErrBadResult)}
	}
	// Plugin commands carry a dot; delegating to one could recurse.
	if strings.Contains(target, ".") {
		return nil, &command.CommandError{Command: name, Reason: fmt.Sprintf("cannot delegate to plugin command %s", target)}
	}
	params, _ := m["params"].(map[string]any)
	return h.dispatcher.Run(st, target, params)
}

// runContext is the table passed to a run function.
func runContext(st engine.State, params command.Params) map[string]any {
	sel := st.Selection
	ctx := map[string]any{
		"version": st.Version,
		"selection": map[string]any{
			"kind":  sel.Kind.String(),
			"from":  sel.From(),
			"to":    sel.To(),
			"empty": sel.Empty(),
		},
		"params": plain(params),
	}
	if rp, err := model.Resolve(st.Doc, sel.Head); err == nil {
		parent := rp.Parent()
		ctx["block"] = parent.Type().Name()
		if parent.IsTextblock() {
			ctx["text"] = parent.TextContent()
		}
	}
	if !sel.Empty() {
		ctx["selectedText"] = st.Doc.TextBetween(sel.From(), sel.To(), "\n")
	}
	return ctx
}

// plain keeps the params Lua can represent.
func plain(params command.Params) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if _, ok := v.(*model.Node); ok {
			continue
		}
		out[k] = v
	}
	return out
}

// portable converts a Lua node table into a portable tree.
func portable(v any) (*serial.PortableNode, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: node must be a table, got %T", ErrBadResult, v)
	}
	n := &serial.PortableNode{}
	n.Type, _ = m["type"].(string)
	if n.Type == "" {
		return nil, fmt.Errorf("%w: node without type", ErrBadResult)
	}
	n.Text, _ = m["text"].(string)
	if attrs, ok := m["attrs"].(map[string]any); ok && len(attrs) > 0 {
		n.Attrs = attrs
	}
	for _, c := range list(m["content"]) {
		child, err := portable(c)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, child)
	}
	for _, raw := range list(m["marks"]) {
		mm, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: mark must be a table", ErrBadResult)
		}
		mark := serial.PortableMark{}
		mark.Type, _ = mm["type"].(string)
		if attrs, ok := mm["attrs"].(map[string]any); ok && len(attrs) > 0 {
			mark.Attrs = attrs
		}
		n.Marks = append(n.Marks, mark)
	}
	return n, nil
}

// list reads a Lua array. An empty table converts to an empty map.
func list(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}
