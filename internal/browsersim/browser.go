// Package browsersim runs inline page scripts against a minimal model of the
// browser globals they touch: localStorage, matchMedia, the root document
// element and window load listeners.
//
// Each Browser owns a goja runtime and is not safe for concurrent use.
package browsersim

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// DarkSchemeQuery is the media query answered by the PrefersDark option.
const DarkSchemeQuery = "(prefers-color-scheme: dark)"

const defaultTimeout = 2 * time.Second

// ErrTimeout is returned when a script or listener exceeds Options.Timeout.
var ErrTimeout = errors.New("script execution timed out")

// Options describes the environment a simulated page runs in.
type Options struct {
	// Storage holds persisted localStorage values.
	Storage map[string]string

	// StorageError makes every localStorage access throw with this message,
	// as browsers do when storage is denied.
	StorageError string

	// StorageUndefined removes localStorage from the global scope.
	StorageUndefined bool

	// PrefersDark is the answer to the dark color-scheme media query.
	PrefersDark bool

	// MatchMediaUnsupported removes window.matchMedia.
	MatchMediaUnsupported bool

	// Timeout bounds each Run and DispatchLoad call. Zero means two seconds.
	Timeout time.Duration
}

// Browser is one simulated page context.
type Browser struct {
	vm        *goja.Runtime
	opts      Options
	root      *element
	listeners []goja.Callable
	loaded    bool
	mutations []Mutation
}

// New builds a page context for opts.
func New(opts Options) *Browser {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	b := &Browser{
		vm:   goja.New(),
		opts: opts,
		root: newElement("html"),
	}
	b.install()
	return b
}

// Run executes script in the page context. An exception escaping the script
// is returned as an error; Run itself never panics.
func (b *Browser) Run(name, script string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script %s: runtime panic: %v", name, r)
		}
	}()

	prog, err := goja.Compile(name, script, false)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	return b.guard(func() error {
		_, runErr := b.vm.RunProgram(prog)
		return runErr
	})
}

// DispatchLoad fires the window load event. Load fires at most once per page,
// so later calls are no-ops. Listener exceptions are joined into the returned
// error after every listener has run.
func (b *Browser) DispatchLoad() (err error) {
	if b.loaded {
		return nil
	}
	b.loaded = true

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load listener: runtime panic: %v", r)
		}
	}()

	pending := b.listeners
	b.listeners = nil
	event := b.vm.NewObject()
	_ = event.Set("type", "load")

	var errs []error
	for i, fn := range pending {
		callErr := b.guard(func() error {
			_, e := fn(b.vm.GlobalObject(), event)
			return e
		})
		if callErr != nil {
			slog.Debug("Load listener failed", "index", i, "error", callErr)
			errs = append(errs, fmt.Errorf("load listener %d: %w", i, callErr))
		}
	}
	return errors.Join(errs...)
}

// Loaded reports whether the load event has fired.
func (b *Browser) Loaded() bool {
	return b.loaded
}

// PendingLoadListeners returns the number of load listeners not yet fired.
func (b *Browser) PendingLoadListeners() int {
	return len(b.listeners)
}

// Root returns a snapshot of the root element.
func (b *Browser) Root() Snapshot {
	return b.root.snapshot()
}

// Mutations returns every observable side effect in the order it happened.
func (b *Browser) Mutations() []Mutation {
	return slices.Clone(b.mutations)
}

func (b *Browser) guard(fn func() error) error {
	timer := time.AfterFunc(b.opts.Timeout, func() {
		b.vm.Interrupt(ErrTimeout)
	})
	defer func() {
		timer.Stop()
		b.vm.ClearInterrupt()
	}()

	err := fn()
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return ErrTimeout
	}
	return err
}

func (b *Browser) record(op MutationOp, name, value string) {
	b.mutations = append(b.mutations, Mutation{Op: op, Name: name, Value: value, AfterLoad: b.loaded})
}

func (b *Browser) install() {
	vm := b.vm
	global := vm.GlobalObject()

	_ = global.Set("window", global)
	_ = global.Set("self", global)
	_ = global.Set("document", b.documentObject())
	_ = global.Set("addEventListener", b.addEventListener)
	_ = global.Set("removeEventListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })

	if !b.opts.MatchMediaUnsupported {
		_ = global.Set("matchMedia", b.matchMedia)
	}
	if !b.opts.StorageUndefined {
		_ = global.Set("localStorage", b.storageObject())
	}
}

func (b *Browser) addEventListener(call goja.FunctionCall) goja.Value {
	eventType := call.Argument(0).String()
	fn, ok := goja.AssertFunction(call.Argument(1))
	if !ok || eventType != "load" {
		return goja.Undefined()
	}
	b.listeners = append(b.listeners, fn)
	b.record(OpAddEventListener, eventType, "")
	return goja.Undefined()
}

func (b *Browser) matchMedia(call goja.FunctionCall) goja.Value {
	query := call.Argument(0).String()
	result := b.vm.NewObject()
	_ = result.Set("media", query)
	_ = result.Set("matches", b.opts.PrefersDark && normalizeQuery(query) == DarkSchemeQuery)
	return result
}

func (b *Browser) storageObject() *goja.Object {
	vm := b.vm
	storage := vm.NewObject()

	denied := func() {
		if b.opts.StorageError != "" {
			panic(vm.NewGoError(errors.New(b.opts.StorageError)))
		}
	}

	_ = storage.Set("getItem", func(call goja.FunctionCall) goja.Value {
		denied()
		v, ok := b.opts.Storage[call.Argument(0).String()]
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = storage.Set("setItem", func(call goja.FunctionCall) goja.Value {
		denied()
		key, value := call.Argument(0).String(), call.Argument(1).String()
		if b.opts.Storage == nil {
			b.opts.Storage = map[string]string{}
		}
		b.opts.Storage[key] = value
		b.record(OpStorageWrite, key, value)
		return goja.Undefined()
	})
	_ = storage.Set("removeItem", func(call goja.FunctionCall) goja.Value {
		denied()
		key := call.Argument(0).String()
		delete(b.opts.Storage, key)
		b.record(OpStorageWrite, key, "")
		return goja.Undefined()
	})
	return storage
}

func (b *Browser) documentObject() *goja.Object {
	vm := b.vm
	doc := vm.NewObject()
	root := b.elementObject(b.root)

	_ = doc.Set("documentElement", root)
	_ = doc.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		switch strings.TrimSpace(call.Argument(0).String()) {
		case "html", ":root":
			return root
		default:
			return goja.Null()
		}
	})
	return doc
}

func (b *Browser) elementObject(el *element) *goja.Object {
	vm := b.vm
	obj := vm.NewObject()

	_ = obj.Set("tagName", strings.ToUpper(el.tag))
	_ = obj.Set("setAttribute", func(name, value string) {
		el.attrs[strings.ToLower(name)] = value
		b.record(OpSetAttribute, strings.ToLower(name), value)
	})
	_ = obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := el.attrs[strings.ToLower(call.Argument(0).String())]
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = obj.Set("hasAttribute", func(name string) bool {
		_, ok := el.attrs[strings.ToLower(name)]
		return ok
	})
	_ = obj.Set("removeAttribute", func(name string) {
		delete(el.attrs, strings.ToLower(name))
		b.record(OpRemoveAttribute, strings.ToLower(name), "")
	})

	classList := vm.NewObject()
	_ = classList.Set("add", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			name := arg.String()
			el.addClass(name)
			b.record(OpAddClass, name, "")
		}
		return goja.Undefined()
	})
	_ = classList.Set("remove", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			name := arg.String()
			el.removeClass(name)
			b.record(OpRemoveClass, name, "")
		}
		return goja.Undefined()
	})
	_ = classList.Set("contains", func(name string) bool {
		return el.hasClass(name)
	})
	_ = obj.Set("classList", classList)

	return obj
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
