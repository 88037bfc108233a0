package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// OutputCallback is called for each line of command output.
type OutputCallback func(line string)

// Runner runs external programs. Platform strategies and the engine depend on
// this interface so tests can record invocations instead of spawning processes.
type Runner interface {
	// Run executes name with args and waits for it to exit.
	// A non-zero exit status or a spawn failure is returned as an error.
	Run(ctx context.Context, name string, args ...string) error

	// Check runs name with args and reports whether it exited with status 0.
	Check(ctx context.Context, name string, args ...string) bool
}

// Executor runs programs directly (no shell) and streams their output.
type Executor struct {
	workDir  string
	redacted []string
	output   OutputCallback
	stdout   io.Writer
}

var _ Runner = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithWorkDir sets the working directory for spawned programs.
func WithWorkDir(dir string) Option {
	return func(e *Executor) {
		e.workDir = dir
	}
}

// WithRedacted hides the given values from logged command lines and output.
func WithRedacted(secrets ...string) Option {
	return func(e *Executor) {
		for _, s := range secrets {
			if s != "" {
				e.redacted = append(e.redacted, s)
			}
		}
	}
}

// WithOutput sends each output line to cb instead of the executor's writer.
func WithOutput(cb OutputCallback) Option {
	return func(e *Executor) {
		e.output = cb
	}
}

// WithWriter sets where output lines go when no callback is configured.
func WithWriter(w io.Writer) Option {
	return func(e *Executor) {
		e.stdout = w
	}
}

// NewExecutor creates a new Executor. Output goes to os.Stdout by default.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{stdout: os.Stdout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes name with args, streaming combined stdout and stderr line by line.
func (e *Executor) Run(ctx context.Context, name string, args ...string) error {
	display := e.Display(name, args...)
	slog.Debug("executing command", "command", display)

	cmd := e.command(ctx, name, args...)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.drain(pr)
	}()

	err := cmd.Run()
	pw.Close()
	wg.Wait()

	if err != nil {
		slog.Error("command failed", "command", display, "exit_code", ExitCode(err), "error", err)
		return fmt.Errorf("command failed: %s: %w", display, err)
	}

	slog.Debug("command succeeded", "command", display)
	return nil
}

// Check runs a probe command and returns true if it succeeds (exit code 0).
func (e *Executor) Check(ctx context.Context, name string, args ...string) bool {
	slog.Debug("checking command", "command", e.Display(name, args...))

	cmd := e.command(ctx, name, args...)
	return cmd.Run() == nil
}

// Display renders the command line for logs with secrets replaced by "***".
func (e *Executor) Display(name string, args ...string) string {
	return e.redact(strings.Join(append([]string{name}, args...), " "))
}

func (e *Executor) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)

	if e.workDir != "" {
		cmd.Dir = e.workDir
	}
	return cmd
}

func (e *Executor) drain(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := e.redact(scanner.Text())
		switch {
		case e.output != nil:
			e.output(line)
		case e.stdout != nil:
			fmt.Fprintln(e.stdout, line)
		}
	}
	// Keep the pipe flowing if the scanner gave up on an overlong line.
	_, _ = io.Copy(io.Discard, r)
}

func (e *Executor) redact(s string) string {
	for _, secret := range e.redacted {
		s = strings.ReplaceAll(s, secret, "***")
	}
	return s
}

// ExitCode extracts the process exit status from err, or -1 if the process
// never ran or was killed by a signal.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
