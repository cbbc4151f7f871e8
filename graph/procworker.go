package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// workerEnvVar marks a re-executed copy of the current binary as a process
// worker and names the registered target it serves.
const workerEnvVar = "NODE_PROCESS_WORKER_TARGET"

// procRequest is one invocation crossing the process boundary. Args, kwargs
// and the result must be JSON-transferable; this is a hard constraint on
// what may be wired into a process-backed node.
type procRequest struct {
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

// procResponse carries the outcome back to the parent.
type procResponse struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ProcessBacking runs each execution worker against a dedicated worker
// subprocess spawned by re-executing the current binary. The host program
// must call WorkerMain at the top of main (and in TestMain for tests), and
// the target must be registered under a name with Register so both sides can
// find it.
type ProcessBacking struct{}

// Name implements Backing.
func (ProcessBacking) Name() string { return "process" }

// Resolve implements Backing: it spawns one worker subprocess and returns a
// Work that proxies invocations over its stdin/stdout as newline-delimited
// JSON. The release func closes the pipe and reaps the subprocess.
func (ProcessBacking) Resolve(t Target) (Work, func(), error) {
	if t.name == "" {
		return nil, nil, errors.New("process-backed targets must be registered with graph.Register")
	}
	if _, ok := Lookup(t.name); !ok {
		return nil, nil, fmt.Errorf("target %q is not registered", t.name)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, nil, fmt.Errorf("locate executable: %w", err)
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), workerEnvVar+"="+t.name)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("open worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("spawn worker process: %w", err)
	}

	enc := json.NewEncoder(stdin)
	dec := json.NewDecoder(stdout)

	// Each execution worker owns exactly one subprocess, and the pool loop
	// is single-goroutine per worker, so the pipes need no locking.
	work := func(args []any, kwargs map[string]any) (any, error) {
		if err := enc.Encode(procRequest{Args: args, Kwargs: kwargs}); err != nil {
			return nil, fmt.Errorf("send to worker process: %w", err)
		}
		var resp procResponse
		if err := dec.Decode(&resp); err != nil {
			return nil, fmt.Errorf("read from worker process: %w", err)
		}
		if resp.Error != "" {
			return nil, errors.New(resp.Error)
		}
		return resp.Result, nil
	}

	release := func() {
		stdin.Close()
		cmd.Wait()
	}
	return work, release, nil
}

// WorkerMain runs the worker serve loop and exits when the current process
// was spawned as a process-pool worker; otherwise it returns immediately.
// Call it at the top of main, after all Register calls have run.
func WorkerMain() {
	name := os.Getenv(workerEnvVar)
	if name == "" {
		return
	}
	os.Exit(serveWorker(name, os.Stdin, os.Stdout))
}

// serveWorker decodes requests from in, invokes the named registered target
// and encodes responses to out. Returns the process exit code; EOF on in is
// the normal shutdown signal.
func serveWorker(name string, in io.Reader, out io.Writer) int {
	t, ok := Lookup(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "node-process worker: target %q is not registered\n", name)
		return 2
	}
	work, err := t.resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "node-process worker: resolve %q: %v\n", name, err)
		return 2
	}

	dec := json.NewDecoder(in)
	enc := json.NewEncoder(out)
	for {
		var req procRequest
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return 0
			}
			fmt.Fprintf(os.Stderr, "node-process worker: decode request: %v\n", err)
			return 1
		}

		resp := procResponse{}
		result, err := work(req.Args, req.Kwargs)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Result = result
		}
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "node-process worker: encode response: %v\n", err)
			return 1
		}
	}
}
