package lua

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
)

func TestStateDoString(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(context.Background(), `x = 1 + 1`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := state.L.GetGlobal("x"); got != glua.LNumber(2) {
		t.Errorf("x = %v, want 2", got)
	}
}

func TestStateSandbox(t *testing.T) {
	state := NewState()
	defer state.Close()
	ctx := context.Background()

	blocked := []string{
		`dofile("x.lua")`,
		`loadstring("return 1")()`,
		`io.write("x")`,
		`os.exit(1)`,
		`require("os")`,
		`require("socket")`,
	}
	for _, code := range blocked {
		if err := state.DoString(ctx, code); err == nil {
			t.Errorf("DoString(%q) succeeded, want error", code)
		}
	}

	if err := state.DoString(ctx, `local s = require("string"); y = s.upper("ok")`); err != nil {
		t.Fatalf("require(string) error = %v", err)
	}
	if got := state.L.GetGlobal("y"); got != glua.LString("OK") {
		t.Errorf("y = %v, want OK", got)
	}
}

func TestStatePreload(t *testing.T) {
	state := NewState()
	defer state.Close()

	err := state.Preload("greet", func(L *glua.LState) int {
		mod := L.NewTable()
		L.SetField(mod, "name", glua.LString("folio"))
		L.Push(mod)
		return 1
	})
	if err != nil {
		t.Fatalf("Preload() error = %v", err)
	}
	if err := state.DoString(context.Background(), `n = require("greet").name`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := state.L.GetGlobal("n"); got != glua.LString("folio") {
		t.Errorf("n = %v, want folio", got)
	}
}

func TestStatePrint(t *testing.T) {
	var lines []string
	state := NewState(WithPrint(func(s string) { lines = append(lines, s) }))
	defer state.Close()

	if err := state.DoString(context.Background(), `print("a", 1, true)`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if len(lines) != 1 || lines[0] != "a\t1\ttrue" {
		t.Errorf("print lines = %q", lines)
	}
}

func TestStateTimeout(t *testing.T) {
	state := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer state.Close()

	err := state.DoString(context.Background(), `while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("DoString() error = %v, want ErrExecutionTimeout", err)
	}

	// The state stays usable after a timeout.
	if err := state.DoString(context.Background(), `z = 3`); err != nil {
		t.Fatalf("DoString() after timeout error = %v", err)
	}
}

func TestStateCallFunction(t *testing.T) {
	state := NewState()
	defer state.Close()
	ctx := context.Background()

	if err := state.DoString(ctx, `function swap(t) return { a = t.b, b = t.a }, #t.list end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	fn, ok := state.L.GetGlobal("swap").(*glua.LFunction)
	if !ok {
		t.Fatal("swap is not a function")
	}

	out, err := state.CallFunction(ctx, fn, map[string]any{"a": "x", "b": 2, "list": []string{"p", "q"}})
	if err != nil {
		t.Fatalf("CallFunction() error = %v", err)
	}
	want := []any{map[string]any{"a": int64(2), "b": "x"}, int64(2)}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("CallFunction() = %#v, want %#v", out, want)
	}

	if err := state.DoString(ctx, `function boom() error("bad input") end`); err != nil {
		t.Fatal(err)
	}
	boom := state.L.GetGlobal("boom").(*glua.LFunction)
	if _, err := state.CallFunction(ctx, boom); err == nil || !strings.Contains(err.Error(), "bad input") {
		t.Errorf("CallFunction(boom) error = %v", err)
	}
}

func TestStateClosed(t *testing.T) {
	state := NewState()
	if err := state.Close(); err != nil {
		t.Fatal(err)
	}
	if !state.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if err := state.DoString(context.Background(), `x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() error = %v, want ErrStateClosed", err)
	}
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestToGo(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	if err := L.DoString(`v = { 1, 2.5, "s", { k = true } }; e = {}; c = {}; c.self = c`); err != nil {
		t.Fatal(err)
	}
	want := []any{int64(1), 2.5, "s", map[string]any{"k": true}}
	if got := ToGo(L.GetGlobal("v")); !reflect.DeepEqual(got, want) {
		t.Errorf("ToGo(v) = %#v, want %#v", got, want)
	}
	if got := ToGo(L.GetGlobal("e")); !reflect.DeepEqual(got, map[string]any{}) {
		t.Errorf("ToGo(e) = %#v, want empty map", got)
	}
	if got := ToGo(L.GetGlobal("c")); !reflect.DeepEqual(got, map[string]any{"self": nil}) {
		t.Errorf("ToGo(c) = %#v, want cycle broken", got)
	}
	if got := ToGo(glua.LNil); got != nil {
		t.Errorf("ToGo(nil) = %v", got)
	}
}
