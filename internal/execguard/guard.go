// Package execguard runs whitelisted subprocesses with sanitized arguments,
// timeout escalation, and output capping. Nothing is ever passed through a
// shell; the command is resolved and spawned directly.
package execguard

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/ppiankov/depgate/internal/model"
	"github.com/ppiankov/depgate/internal/sanitize"
	"github.com/ppiankov/depgate/internal/secerr"
	"github.com/ppiankov/depgate/internal/secevent"
)

const (
	// defaultTimeout bounds a single execution.
	defaultTimeout = 30 * time.Second
	// killGrace is how long a process gets between the graceful terminate
	// signal and the forced kill.
	killGrace = 5 * time.Second
	// defaultMaxOutput caps combined stdout+stderr bytes.
	defaultMaxOutput = 1 << 20 // 1 MiB
)

// defaultWhitelist is the fixed set of commands the gateway will spawn.
func defaultWhitelist() []string {
	return []string{"npm", "node", "git", "yarn", "pnpm"}
}

// Config holds executor construction parameters. Zero values fall back to
// the gateway defaults.
type Config struct {
	Whitelist      []string
	Timeout        time.Duration
	Grace          time.Duration
	MaxOutputBytes int64
}

// Options adjusts one execution.
type Options struct {
	Timeout time.Duration // 0 means the executor default
	Cwd     string
}

// Result captures subprocess execution outcome. A non-zero exit code is a
// result, not an error.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	// SecretsRedacted counts credential-shaped values scrubbed from the
	// captured output.
	SecretsRedacted int `json:"secrets_redacted,omitempty"`
}

// SignalError is returned when the process died from a signal the executor
// did not send. Distinct from timeout.
type SignalError struct {
	Signal string
}

func (e *SignalError) Error() string {
	return "process killed by signal " + e.Signal
}

// Executor is the whitelisted subprocess runner.
type Executor struct {
	cfg       Config
	validator *sanitize.Validator
	events    secevent.Recorder
}

// New creates an Executor. A nil validator gets the default lists; a nil
// recorder discards events.
func New(cfg Config, v *sanitize.Validator, events secevent.Recorder) *Executor {
	if len(cfg.Whitelist) == 0 {
		cfg.Whitelist = defaultWhitelist()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Grace <= 0 {
		cfg.Grace = killGrace
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutput
	}
	if v == nil {
		v = sanitize.NewDefault()
	}
	if events == nil {
		events = secevent.Nop{}
	}
	return &Executor{cfg: cfg, validator: v, events: events}
}

// NewDefault creates an Executor with default configuration.
func NewDefault() *Executor {
	return New(Config{}, nil, nil)
}

// Validate runs the whitelist and argument checks without spawning
// anything. Used for dry runs.
func (e *Executor) Validate(command string, args []string) ([]string, error) {
	if !whitelisted(e.cfg.Whitelist, command) {
		return nil, &secerr.PolicyViolation{Rule: "command not in whitelist"}
	}
	return e.validator.CommandArgs(args)
}

// Execute runs command with args under the gateway's limits. The command
// must be whitelisted and the arguments must pass sanitization before any
// process is spawned.
func (e *Executor) Execute(ctx context.Context, command string, args []string, opts Options) (*Result, error) {
	if !whitelisted(e.cfg.Whitelist, command) {
		e.events.Record(secevent.Event{
			Type:     secevent.TypePolicyBlock,
			Severity: model.SevHigh,
			Details:  "command not in whitelist",
		})
		return nil, &secerr.PolicyViolation{Rule: "command not in whitelist"}
	}

	clean, err := e.validator.CommandArgs(args)
	if err != nil {
		e.events.Record(secevent.Event{
			Type:     secevent.TypeValidationFailure,
			Severity: model.SevHigh,
			Details:  secerr.Mask(err.Error()),
		})
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}

	buf := newOutputBuffer(e.cfg.MaxOutputBytes)
	cmd := exec.Command(command, clean...)
	cmd.Dir = opts.Cwd
	cmd.Stdout = buf.stdoutWriter()
	cmd.Stderr = buf.stderrWriter()
	setPlatformAttrs(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("execguard: spawn %s: %w", command, err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var timedOut, overLimit bool
	var waitErr error

	select {
	case waitErr = <-waitCh:
	case <-timer.C:
		timedOut = true
	case <-buf.exceeded:
		overLimit = true
	case <-ctx.Done():
		timedOut = true
	}

	if timedOut || overLimit {
		// Graceful terminate, then force-kill after the grace period.
		// Every exit path reaps the process so nothing leaks.
		terminate(cmd)
		select {
		case waitErr = <-waitCh:
		case <-time.After(e.cfg.Grace):
			kill(cmd)
			waitErr = <-waitCh
		}
	}

	if overLimit {
		e.events.Record(secevent.Event{
			Type:     secevent.TypeResourceLimitHit,
			Severity: model.SevMedium,
			Details:  "combined output exceeded cap",
		})
		return nil, &secerr.ResourceLimitExceeded{Limit: "output_bytes", Max: e.cfg.MaxOutputBytes}
	}
	if timedOut {
		e.events.Record(secevent.Event{
			Type:     secevent.TypeResourceLimitHit,
			Severity: model.SevMedium,
			Details:  "execution timed out",
		})
		return nil, &secerr.ResourceLimitExceeded{Limit: "timeout_ms", Max: timeout.Milliseconds()}
	}

	exitCode := 0
	if waitErr != nil {
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("execguard: wait %s: %w", command, waitErr)
		}
		if sig, died := signalDeath(exitErr); died {
			return nil, &SignalError{Signal: sig}
		}
		exitCode = exitErr.ExitCode()
	}

	stdout, stderr, redacted := buf.redactedOutput()
	if redacted > 0 {
		e.events.Record(secevent.Event{
			Type:     secevent.TypeSecretLeak,
			Severity: model.SevHigh,
			Details:  fmt.Sprintf("%d credential-shaped values scrubbed from %s output", redacted, command),
		})
	}

	e.events.Record(secevent.Event{
		Type:     secevent.TypeExecution,
		Severity: model.SevLow,
		Details:  fmt.Sprintf("%s exited %d", command, exitCode),
	})

	return &Result{
		Stdout:          stdout,
		Stderr:          stderr,
		ExitCode:        exitCode,
		SecretsRedacted: redacted,
	}, nil
}

func whitelisted(list []string, command string) bool {
	for _, c := range list {
		if c == command {
			return true
		}
	}
	return false
}
