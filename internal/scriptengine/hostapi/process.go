package hostapi

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"

	"github.com/risor-io/risor/object"
)

// runningProcess is a Process API handle: a spawned command plus pipes
// for its stdio, drained into buffers by goroutines so stdout/stderr
// reads never block on the child's own buffering.
type runningProcess struct {
	cmd *exec.Cmd

	stdin io.WriteCloser

	mu       sync.Mutex
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	waitErr  error
	waitDone chan struct{}
}

// ProcessAPI returns the "process" namespace. It is privileged: spec.md
// §4.M gates it behind a module's ExtProcessAPI flag, so the engine only
// installs this namespace into a module's globals when that flag is set
// — callers that don't set it simply never see a "process" global.
func ProcessAPI() object.Object {
	handles := NewRegistry[*runningProcess]()
	return object.NewMap(map[string]object.Object{
		"exec":     object.NewBuiltin("process.exec", processExec),
		"open":     object.NewBuiltin("process.open", processOpen(handles)),
		"stdin":    object.NewBuiltin("process.stdin", processStdin(handles)),
		"stdout":   object.NewBuiltin("process.stdout", processStdout(handles)),
		"stderr":   object.NewBuiltin("process.stderr", processStderr(handles)),
		"wait":     object.NewBuiltin("process.wait", processWait(handles)),
		"kill":     object.NewBuiltin("process.kill", processKill(handles)),
		"finished": object.NewBuiltin("process.finished", processFinished(handles)),
	})
}

// parseExecArgs decodes the (path, args?, env?) call shape shared by
// process.exec and process.open.
func parseExecArgs(name string, args []object.Object) (program string, argv []string, env []string, errObj object.Object) {
	if len(args) < 1 || len(args) > 3 {
		return "", nil, nil, object.NewArgsError(name, 1, len(args))
	}
	nameArg, ok := args[0].(*object.String)
	if !ok {
		return "", nil, nil, object.Errorf("%s: expected program string, got %s", name, args[0].Type())
	}
	if len(args) >= 2 {
		list, ok := args[1].(*object.List)
		if !ok {
			return "", nil, nil, object.Errorf("%s: expected args list, got %s", name, args[1].Type())
		}
		for _, a := range list.Value() {
			s, ok := a.(*object.String)
			if !ok {
				return "", nil, nil, object.Errorf("%s: expected string in args list, got %s", name, a.Type())
			}
			argv = append(argv, s.Value())
		}
	}
	if len(args) == 3 {
		m, ok := args[2].(*object.Map)
		if !ok {
			return "", nil, nil, object.Errorf("%s: expected env map, got %s", name, args[2].Type())
		}
		for k, v := range m.Value() {
			s, ok := v.(*object.String)
			if !ok {
				return "", nil, nil, object.Errorf("%s: env value for %q must be a string, got %s", name, k, v.Type())
			}
			env = append(env, k+"="+s.Value())
		}
	}
	return nameArg.Value(), argv, env, nil
}

// processResultMap renders {status, is_ok, stdout, stderr}, the shape
// spec.md §4.M defines for a one-shot exec and (status, is_ok only) wait.
func processResultMap(status int, stdout, stderr string) object.Object {
	return object.NewMap(map[string]object.Object{
		"status": object.NewInt(int64(status)),
		"is_ok":  object.NewBool(status == 0),
		"stdout": object.NewString(stdout),
		"stderr": object.NewString(stderr),
	})
}

// processExec runs path to completion and returns its result in one
// call, blocking the calling module's goroutine until it exits.
func processExec(ctx context.Context, args ...object.Object) object.Object {
	name, argv, env, errObj := parseExecArgs("process.exec", args)
	if errObj != nil {
		return errObj
	}
	cmd := exec.CommandContext(ctx, name, argv...)
	if env != nil {
		cmd.Env = env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	status := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return object.Errorf("process.exec: %v", err)
		}
		status = exitErr.ExitCode()
	}
	return processResultMap(status, stdout.String(), stderr.String())
}

// lockedWriter guards one of the child process's stdio buffers with the
// mutex shared by both streams (each written from its own goroutine
// inside os/exec) and by the stdout/stderr readers.
type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func processHandleArg(handles *Registry[*runningProcess], name string, args []object.Object, i int) (*runningProcess, object.Object) {
	h, ok := args[i].(*object.Int)
	if !ok {
		return nil, object.Errorf("%s: expected handle int, got %s", name, args[i].Type())
	}
	rp, ok := handles.Get(uint32(h.Value()))
	if !ok {
		return nil, object.Errorf("%s: unknown handle %d", name, h.Value())
	}
	return rp, nil
}

// processOpen spawns path with stdio piped and returns a handle for
// streaming interaction via stdin/stdout/stderr/wait/kill/finished.
func processOpen(handles *Registry[*runningProcess]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		name, argv, env, errObj := parseExecArgs("process.open", args)
		if errObj != nil {
			return errObj
		}

		cmd := exec.CommandContext(ctx, name, argv...)
		if env != nil {
			cmd.Env = env
		}
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return object.Errorf("process.open: %v", err)
		}
		rp := &runningProcess{cmd: cmd, stdin: stdin, waitDone: make(chan struct{})}
		cmd.Stdout = lockedWriter{mu: &rp.mu, buf: &rp.stdout}
		cmd.Stderr = lockedWriter{mu: &rp.mu, buf: &rp.stderr}

		if err := cmd.Start(); err != nil {
			return object.Errorf("process.open: %v", err)
		}
		go func() {
			rp.waitErr = cmd.Wait()
			close(rp.waitDone)
		}()

		handle := handles.Insert(rp)
		return object.NewInt(int64(handle))
	}
}

func processStdin(handles *Registry[*runningProcess]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("process.stdin", 2, len(args))
		}
		rp, errObj := processHandleArg(handles, "process.stdin", args, 0)
		if errObj != nil {
			return errObj
		}
		data, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("process.stdin: expected bytes (string), got %s", args[1].Type())
		}
		if _, err := rp.stdin.Write([]byte(data.Value())); err != nil {
			return object.Errorf("process.stdin: %v", err)
		}
		return object.Nil
	}
}

func processStdout(handles *Registry[*runningProcess]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("process.stdout", 1, len(args))
		}
		rp, errObj := processHandleArg(handles, "process.stdout", args, 0)
		if errObj != nil {
			return errObj
		}
		rp.mu.Lock()
		defer rp.mu.Unlock()
		out := rp.stdout.String()
		rp.stdout.Reset()
		return object.NewString(out)
	}
}

func processStderr(handles *Registry[*runningProcess]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("process.stderr", 1, len(args))
		}
		rp, errObj := processHandleArg(handles, "process.stderr", args, 0)
		if errObj != nil {
			return errObj
		}
		rp.mu.Lock()
		defer rp.mu.Unlock()
		out := rp.stderr.String()
		rp.stderr.Reset()
		return object.NewString(out)
	}
}

func processWait(handles *Registry[*runningProcess]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("process.wait", 1, len(args))
		}
		rp, errObj := processHandleArg(handles, "process.wait", args, 0)
		if errObj != nil {
			return errObj
		}
		select {
		case <-rp.waitDone:
		case <-ctx.Done():
			return object.Errorf("process.wait: %v", ctx.Err())
		}
		status := 0
		if rp.waitErr != nil {
			exitErr, ok := rp.waitErr.(*exec.ExitError)
			if !ok {
				return object.Errorf("process.wait: %v", rp.waitErr)
			}
			status = exitErr.ExitCode()
		}
		return object.NewMap(map[string]object.Object{
			"status": object.NewInt(int64(status)),
			"is_ok":  object.NewBool(status == 0),
		})
	}
}

func processKill(handles *Registry[*runningProcess]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("process.kill", 1, len(args))
		}
		rp, errObj := processHandleArg(handles, "process.kill", args, 0)
		if errObj != nil {
			return errObj
		}
		if rp.cmd.Process == nil {
			return object.Errorf("process.kill: process not started")
		}
		if err := rp.cmd.Process.Kill(); err != nil {
			return object.Errorf("process.kill: %v", err)
		}
		return object.Nil
	}
}

func processFinished(handles *Registry[*runningProcess]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("process.finished", 1, len(args))
		}
		rp, errObj := processHandleArg(handles, "process.finished", args, 0)
		if errObj != nil {
			return errObj
		}
		select {
		case <-rp.waitDone:
			return object.NewBool(true)
		default:
			return object.NewBool(false)
		}
	}
}
