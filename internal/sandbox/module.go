package sandbox

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"

	"github.com/vovakirdan/tui-player/internal/canvas"
	"github.com/vovakirdan/tui-player/internal/core"
	"github.com/vovakirdan/tui-player/internal/game"
)

var (
	// ErrNoDefaultExport is returned when a module does not export a
	// default game object.
	ErrNoDefaultExport = errors.New("sandbox: module has no default export object")

	// ErrImportUnsupported is returned for modules that import other
	// modules. The sandbox has no module loader.
	ErrImportUnsupported = errors.New("sandbox: import statements are not supported")
)

const exportsName = "__exports"

// Statements may start a line or follow ; { } on the same line, as in
// minified bundles. The boundary is captured and written back.
const stmtStart = `(^|[;{}\n])([ \t\r]*)`

var (
	reImport        = regexp.MustCompile(stmtStart + `(?:import(?:[ \t]+[\w{*]|[ \t]*[{*'"])|export[ \t]*\*)`)
	reExportDefault = regexp.MustCompile(stmtStart + `export[ \t]+default[ \t]+`)
	reExportDecl    = regexp.MustCompile(stmtStart + `export[ \t]+((?:async[ \t]+)?function\b|const\b|let\b|var\b|class\b)`)
	reExportList    = regexp.MustCompile(stmtStart + `export[ \t]*\{([^}]*)\}`)
)

// Transform rewrites ES module syntax into a plain script body that
// assigns exports onto an object. Only the export forms a game file uses
// are supported; any import is rejected.
func Transform(code string) (string, error) {
	if loc := reImport.FindStringSubmatchIndex(code); loc != nil {
		line := strings.Count(code[:loc[5]], "\n") + 1
		return "", fmt.Errorf("%w (line %d)", ErrImportUnsupported, line)
	}

	out := reExportList.ReplaceAllStringFunc(code, func(m string) string {
		sub := reExportList.FindStringSubmatch(m)
		var b strings.Builder
		b.WriteString(sub[1] + sub[2])
		for _, item := range strings.Split(sub[3], ",") {
			fields := strings.Fields(item)
			switch {
			case len(fields) == 1:
				fmt.Fprintf(&b, "%s.%s = %s;", exportsName, fields[0], fields[0])
			case len(fields) == 3 && fields[1] == "as":
				fmt.Fprintf(&b, "%s[%q] = %s;", exportsName, fields[2], fields[0])
			}
		}
		return b.String()
	})
	out = reExportDefault.ReplaceAllString(out, "${1}${2}"+exportsName+".default = ")
	out = reExportDecl.ReplaceAllString(out, "${1}${2}${3}")

	return "(function (" + exportsName + ") {\"use strict\";\n" + out + "\n})", nil
}

// recoverHost turns a Go panic raised by a host binding during a call into
// JS into an error. goja only converts its own exceptions.
func recoverHost(err *error) {
	if x := recover(); x != nil {
		*err = fmt.Errorf("sandbox: host panic: %v", x)
	}
}

// evaluate runs code in vm and returns the module's default export.
func evaluate(vm *goja.Runtime, code string) (_ *goja.Object, err error) {
	defer recoverHost(&err)
	script, err := Transform(code)
	if err != nil {
		return nil, err
	}
	prog, err := goja.Compile("game.js", script, true)
	if err != nil {
		return nil, fmt.Errorf("sandbox: compile: %w", err)
	}
	wrapper, err := vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, errors.New("sandbox: module wrapper is not callable")
	}
	exports := vm.NewObject()
	if _, err := fn(goja.Undefined(), exports); err != nil {
		return nil, err
	}

	def := exports.Get("default")
	if def == nil || goja.IsUndefined(def) || goja.IsNull(def) {
		return nil, ErrNoDefaultExport
	}
	obj, ok := def.(*goja.Object)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNoDefaultExport, def.ExportType())
	}
	return obj, nil
}

// spawner runs work off the sandbox goroutine and delivers its result back
// on it, unless the module has been replaced in the meantime.
type spawner func(work func(ctx context.Context) (any, error), done func(any, error))

// jsModule adapts a JS default export to the game capability interfaces.
type jsModule struct {
	vm    *goja.Runtime
	obj   *goja.Object
	spawn spawner

	init, update, render goja.Callable

	input    *core.InputState
	inputVal goja.Value
	surface  game.Surface
	ctxVal   goja.Value
}

func newJSModule(vm *goja.Runtime, obj *goja.Object, spawn spawner) *jsModule {
	m := &jsModule{vm: vm, obj: obj, spawn: spawn}
	m.init, _ = goja.AssertFunction(obj.Get("init"))
	m.update, _ = goja.AssertFunction(obj.Get("update"))
	m.render, _ = goja.AssertFunction(obj.Get("render"))
	return m
}

type initPart struct{ m *jsModule }
type updatePart struct{ m *jsModule }
type renderPart struct{ m *jsModule }

func (p initPart) Init(api *game.API) (game.Pending, error)      { return p.m.callInit(api) }
func (p updatePart) Update(dt float64, in *core.InputState) error { return p.m.callUpdate(dt, in) }
func (p renderPart) Render(s game.Surface) error                  { return p.m.callRender(s) }

// module returns a game.Module implementing exactly the phases the export
// defines.
func (m *jsModule) module() game.Module {
	i, u, r := initPart{m}, updatePart{m}, renderPart{m}
	hasI, hasU, hasR := m.init != nil, m.update != nil, m.render != nil
	switch {
	case hasI && hasU && hasR:
		return struct {
			initPart
			updatePart
			renderPart
		}{i, u, r}
	case hasI && hasU:
		return struct {
			initPart
			updatePart
		}{i, u}
	case hasI && hasR:
		return struct {
			initPart
			renderPart
		}{i, r}
	case hasU && hasR:
		return struct {
			updatePart
			renderPart
		}{u, r}
	case hasI:
		return i
	case hasU:
		return u
	case hasR:
		return r
	}
	return struct{}{}
}

func (m *jsModule) callInit(api *game.API) (_ game.Pending, err error) {
	defer recoverHost(&err)
	res, err := m.init(m.obj, m.apiValue(api))
	if err != nil {
		return nil, err
	}
	then := thenOf(res)
	if then == nil {
		return nil, nil
	}
	return &promise{vm: m.vm, val: res, then: then}, nil
}

func (m *jsModule) callUpdate(dt float64, in *core.InputState) (err error) {
	defer recoverHost(&err)
	if in != m.input {
		m.input = in
		m.inputVal = inputValue(m.vm, in)
	}
	_, err = m.update(m.obj, m.vm.ToValue(dt), m.inputVal)
	return err
}

func (m *jsModule) callRender(s game.Surface) (err error) {
	defer recoverHost(&err)
	if s != m.surface {
		m.surface = s
		m.ctxVal = goja.Undefined()
		if c, ok := s.(*canvas.Canvas); ok {
			m.ctxVal = m.vm.ToValue(c.Context())
		}
	}
	_, err = m.render(m.obj, m.ctxVal)
	return err
}

// thenOf returns the then method of a thenable, or nil.
func thenOf(v goja.Value) goja.Callable {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	then, ok := goja.AssertFunction(obj.Get("then"))
	if !ok {
		return nil
	}
	return then
}

// promise is an in-flight async init. Its callbacks run from the VM's job
// queue, which drains on the sandbox goroutine.
type promise struct {
	vm   *goja.Runtime
	val  goja.Value
	then goja.Callable
}

func (p *promise) Settle(cb func(error)) {
	var settled bool
	defer func() {
		if x := recover(); x != nil && !settled {
			settled = true
			cb(fmt.Errorf("sandbox: host panic: %v", x))
		}
	}()
	onFulfilled := func(goja.FunctionCall) goja.Value {
		if !settled {
			settled = true
			cb(nil)
		}
		return goja.Undefined()
	}
	onRejected := func(call goja.FunctionCall) goja.Value {
		if !settled {
			settled = true
			cb(rejection(call.Argument(0)))
		}
		return goja.Undefined()
	}
	if _, err := p.then(p.val, p.vm.ToValue(onFulfilled), p.vm.ToValue(onRejected)); err != nil && !settled {
		settled = true
		cb(err)
	}
}

// rejection converts a rejection reason into an error, preferring the
// message of Error objects.
func rejection(reason goja.Value) error {
	if obj, ok := reason.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			return errors.New(msg.String())
		}
	}
	if reason == nil || goja.IsUndefined(reason) {
		return errors.New("rejected")
	}
	return errors.New(reason.String())
}

// describe renders a JS or Go error for the log, with the JS stack when
// there is one.
func describe(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) && ex.Value() != nil {
		msg := ex.Value().String()
		if obj, ok := ex.Value().(*goja.Object); ok {
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				if s := stack.String(); s != "" && s != msg {
					return s
				}
			}
		}
		return msg
	}
	return err.Error()
}
