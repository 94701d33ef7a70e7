package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dop251/goja"
)

const callTimeout = 30 * time.Second

// Runtime hosts one plugin script in its own goja VM. A runtime is not
// safe for concurrent calls; the provider adapter serializes access.
type Runtime struct {
	vm       *goja.Runtime
	manifest *Manifest
	host     *hostAPI
}

// NewRuntime loads and executes a plugin script, verifying that it exports
// the provider entry points.
func NewRuntime(manifest *Manifest, pluginDir string) (*Runtime, error) {
	vm := goja.New()

	host := newHostAPI(vm, manifest.ID)
	host.inject()

	// Flatten config defaults so plugin code reads plain values.
	config := make(map[string]any)
	for k, v := range manifest.Config {
		if spec, ok := v.(map[string]any); ok {
			if def, ok := spec["default"]; ok {
				config[k] = def
				continue
			}
		}
		config[k] = v
	}
	host.setConfig(config)

	scriptPath := filepath.Join(pluginDir, manifest.EntryPoint)
	scriptData, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin script: %w", err)
	}

	exports := vm.NewObject()
	vm.Set("exports", exports)

	// CommonJS-style wrapper so top-level plugin vars stay module-local.
	wrapped := fmt.Sprintf("(function(exports) {\n%s\n})(exports);", string(scriptData))
	if _, err := vm.RunString(wrapped); err != nil {
		return nil, fmt.Errorf("failed to execute plugin script: %w", err)
	}

	for _, name := range []string{"getInfo", "search", "getChapters"} {
		fn := exports.Get(name)
		if fn == nil || goja.IsUndefined(fn) {
			return nil, fmt.Errorf("plugin missing required export: %s", name)
		}
		if _, ok := goja.AssertFunction(fn); !ok {
			return nil, fmt.Errorf("plugin export %s is not a function", name)
		}
	}

	return &Runtime{vm: vm, manifest: manifest, host: host}, nil
}

// Manifest returns the loaded plugin manifest.
func (r *Runtime) Manifest() *Manifest {
	return r.manifest
}

// Call invokes an exported plugin function. The call runs on a separate
// goroutine so a hung script cannot wedge the caller; on timeout or context
// cancellation the VM is interrupted.
func (r *Runtime) Call(ctx context.Context, functionName string, args ...any) (goja.Value, error) {
	// A previous timed-out call may have left an interrupt pending.
	r.vm.ClearInterrupt()

	exports := r.vm.Get("exports").ToObject(r.vm)
	fn := exports.Get(functionName)
	if fn == nil || goja.IsUndefined(fn) {
		return nil, &PluginError{PluginID: r.manifest.ID, Function: functionName, Message: "function not found"}
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, &PluginError{PluginID: r.manifest.ID, Function: functionName, Message: "export is not callable"}
	}

	gojaArgs := make([]goja.Value, len(args))
	for i, arg := range args {
		gojaArgs[i] = r.vm.ToValue(arg)
	}

	done := make(chan goja.Value, 1)
	errc := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				errc <- &PluginError{
					PluginID: r.manifest.ID,
					Function: functionName,
					Message:  fmt.Sprintf("panic: %v", p),
					IsPanic:  true,
				}
			}
		}()
		val, err := callable(goja.Undefined(), gojaArgs...)
		if err != nil {
			errc <- &PluginError{
				PluginID: r.manifest.ID,
				Function: functionName,
				Message:  err.Error(),
				Cause:    err,
			}
			return
		}
		done <- val
	}()

	select {
	case val := <-done:
		return val, nil
	case err := <-errc:
		return nil, err
	case <-ctx.Done():
		r.vm.Interrupt("call cancelled")
		return nil, &PluginError{PluginID: r.manifest.ID, Function: functionName, Message: ctx.Err().Error(), IsTimeout: true}
	case <-time.After(callTimeout):
		r.vm.Interrupt("call timed out")
		return nil, &PluginError{PluginID: r.manifest.ID, Function: functionName, Message: "timeout", IsTimeout: true}
	}
}
