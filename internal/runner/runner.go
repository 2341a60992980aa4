package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultTimeout bounds a run when neither the caller nor the runner configures one
	DefaultTimeout = 60 * time.Second

	// DefaultWaitDelay is how long pipes may keep draining after the process is killed
	DefaultWaitDelay = 2 * time.Second
)

// ErrExecutableNotFound is returned when the executable is not installed or not reachable
var ErrExecutableNotFound = errors.New("executable not found")

// Result holds the outcome of a single process invocation
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Elapsed  time.Duration
}

// Succeeded reports whether the process ran to completion with a zero exit code
func (r *Result) Succeeded() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Runner runs external executables with a bounded wall-clock time
type Runner interface {
	Run(ctx context.Context, executable string, args []string, timeout time.Duration) (*Result, error)
}

// TerminateFunc forcibly stops a process whose deadline has passed
type TerminateFunc func(p *os.Process) error

// ExecRunner is the os/exec backed Runner
type ExecRunner struct {
	defaultTimeout time.Duration
	waitDelay      time.Duration
	terminate      TerminateFunc
	logger         *logrus.Logger
}

// Option configures an ExecRunner
type Option func(*ExecRunner)

// WithWaitDelay overrides how long output pipes may drain after termination
func WithWaitDelay(d time.Duration) Option {
	return func(r *ExecRunner) {
		r.waitDelay = d
	}
}

// WithTerminate overrides how timed out processes are stopped
func WithTerminate(fn TerminateFunc) Option {
	return func(r *ExecRunner) {
		r.terminate = fn
	}
}

// WithLogger sets the logger used for per-run debug entries
func WithLogger(logger *logrus.Logger) Option {
	return func(r *ExecRunner) {
		r.logger = logger
	}
}

// NewExecRunner creates a runner whose zero-timeout calls fall back to defaultTimeout
func NewExecRunner(defaultTimeout time.Duration, opts ...Option) *ExecRunner {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}

	r := &ExecRunner{
		defaultTimeout: defaultTimeout,
		waitDelay:      DefaultWaitDelay,
		terminate:      killProcess,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logrus.StandardLogger()
	}
	return r
}

// Run executes the command and waits at most timeout for it to finish.
// A non-zero exit is reported through Result, not as an error.
func (r *ExecRunner) Run(ctx context.Context, executable string, args []string, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, executable, args...)
	cmd.Cancel = func() error {
		return r.terminate(cmd.Process)
	}
	cmd.WaitDelay = r.waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil && isNotFound(err) {
		return nil, fmt.Errorf("%w: %s: %v", ErrExecutableNotFound, executable, err)
	}

	result := &Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Elapsed:  elapsed,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	entry := r.logger.WithFields(logrus.Fields{
		"executable": executable,
		"args":       args,
		"exit_code":  result.ExitCode,
		"elapsed":    elapsed.String(),
	})

	switch {
	case err == nil:
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		result.TimedOut = true
		entry.WithField("timeout", timeout.String()).Warn("Command timed out and was terminated")
		return result, nil
	case ctx.Err() != nil:
		entry.Debug("Command cancelled by caller")
		return nil, fmt.Errorf("running %s: %w", executable, ctx.Err())
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// Start failures other than a missing binary, e.g. permission denied
		return nil, fmt.Errorf("running %s: %w", executable, err)
	}

	entry.Debug("Command finished")
	return result, nil
}

func isNotFound(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false
	}
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func killProcess(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}
