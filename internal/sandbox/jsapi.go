package sandbox

import (
	"context"
	"errors"
	"strings"

	"github.com/dop251/goja"

	"github.com/vovakirdan/tui-player/internal/bridge"
	"github.com/vovakirdan/tui-player/internal/canvas"
	"github.com/vovakirdan/tui-player/internal/core"
	"github.com/vovakirdan/tui-player/internal/game"
)

// loadImageFactory wraps a native loader in a function returning a Promise.
const loadImageFactory = `(function (load) {
	return function loadImage(url) {
		return new Promise(function (resolve, reject) { load(String(url), resolve, reject); });
	};
})`

// newVM creates a JS runtime with the sandbox globals installed.
func newVM(send func(bridge.Message)) *goja.Runtime {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	vm.SetMaxCallStackSize(1024)

	// No module system, process or timers inside the sandbox.
	for _, name := range []string{"require", "process", "module", "exports", "setTimeout", "setInterval"} {
		vm.Set(name, goja.Undefined())
	}

	console := vm.NewObject()
	for name, level := range map[string]bridge.Level{
		"log":   bridge.LevelInfo,
		"info":  bridge.LevelInfo,
		"debug": bridge.LevelInfo,
		"warn":  bridge.LevelWarn,
		"error": bridge.LevelError,
	} {
		console.Set(name, consoleFunc(send, level))
	}
	vm.Set("console", console)
	return vm
}

func consoleFunc(send func(bridge.Message), level bridge.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		send(bridge.Log(strings.Join(parts, " "), level))
		return goja.Undefined()
	}
}

// apiValue builds the JS object handed to init.
func (m *jsModule) apiValue(api *game.API) goja.Value {
	vm := m.vm
	obj := vm.NewObject()

	obj.Set("canvas", api.Surface)
	if c, ok := api.Surface.(*canvas.Canvas); ok {
		m.surface = api.Surface
		m.ctxVal = vm.ToValue(c.Context())
		obj.Set("ctx", m.ctxVal)
	}

	obj.Set("loadImage", m.loadImageFunc(api.LoadImage))

	obj.Set("playBeep", func(goja.FunctionCall) goja.Value {
		if api.PlayBeep != nil {
			api.PlayBeep()
		}
		return goja.Undefined()
	})

	obj.Set("setButtons", func(call goja.FunctionCall) goja.Value {
		if api.SetButtons == nil {
			return goja.Undefined()
		}
		var names []string
		if err := vm.ExportTo(call.Argument(0), &names); err != nil {
			panic(vm.NewTypeError("setButtons expects an array of names"))
		}
		api.SetButtons(names)
		return goja.Undefined()
	})
	return obj
}

func (m *jsModule) loadImageFunc(load game.ImageLoader) goja.Value {
	vm := m.vm
	native := func(call goja.FunctionCall) goja.Value {
		url := call.Argument(0).String()
		resolve, _ := goja.AssertFunction(call.Argument(1))
		reject, _ := goja.AssertFunction(call.Argument(2))
		if load == nil {
			reject(goja.Undefined(), vm.NewGoError(errors.New("loadImage is not available")))
			return goja.Undefined()
		}
		m.spawn(
			func(ctx context.Context) (any, error) { return load(ctx, url) },
			func(img any, err error) {
				if err != nil {
					reject(goja.Undefined(), vm.NewGoError(err))
					return
				}
				resolve(goja.Undefined(), vm.ToValue(img))
			},
		)
		return goja.Undefined()
	}

	factory, err := vm.RunString(loadImageFactory)
	if err != nil {
		return goja.Undefined()
	}
	wrap, _ := goja.AssertFunction(factory)
	fn, err := wrap(goja.Undefined(), vm.ToValue(native))
	if err != nil {
		return goja.Undefined()
	}
	return fn
}

// inputValue exposes in read-only: keys.has(k), keys.size, keys.forEach
// and mouse.x, mouse.y, mouse.down. Reads are live.
func inputValue(vm *goja.Runtime, in *core.InputState) goja.Value {
	getter := func(f func() any) goja.Value {
		return vm.ToValue(func(goja.FunctionCall) goja.Value { return vm.ToValue(f()) })
	}

	keys := vm.NewObject()
	keys.Set("has", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(in.Keys.Has(call.Argument(0).String()))
	})
	keys.Set("forEach", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("forEach expects a function"))
		}
		for _, k := range in.Keys.Sorted() {
			if _, err := fn(goja.Undefined(), vm.ToValue(k), vm.ToValue(k), keys); err != nil {
				panic(err)
			}
		}
		return goja.Undefined()
	})
	keys.DefineAccessorProperty("size", getter(func() any { return in.Keys.Len() }), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	mouse := vm.NewObject()
	mouse.DefineAccessorProperty("x", getter(func() any { return in.Mouse.X }), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	mouse.DefineAccessorProperty("y", getter(func() any { return in.Mouse.Y }), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	mouse.DefineAccessorProperty("down", getter(func() any { return in.Mouse.Down }), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	input := vm.NewObject()
	input.DefineDataProperty("keys", keys, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
	input.DefineDataProperty("mouse", mouse, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
	return input
}
