package execguard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/depgate/internal/secerr"
)

func TestWithRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return &secerr.TransportError{Op: "probe", Err: errors.New("flaky")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryExhaustion(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return &secerr.TransportError{Op: "probe", Err: errors.New("down")}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls (1 + 2 retries), got %d", calls)
	}
}

func TestWithRetryNeverRetriesTerminal(t *testing.T) {
	terminal := []error{
		&secerr.PolicyViolation{Rule: "command not in whitelist"},
		&secerr.ResourceLimitExceeded{Limit: "timeout_ms", Max: 30000},
		&secerr.ResourceLimitExceeded{Limit: "output_bytes", Max: 1 << 20},
		&secerr.ValidationError{Field: "command_arg", Rule: "deny-listed token"},
		&secerr.RateLimited{RetryAfter: time.Second},
	}
	for _, want := range terminal {
		calls := 0
		err := WithRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
			calls++
			return want
		})
		if calls != 1 {
			t.Errorf("%T: expected exactly 1 call, got %d", want, calls)
		}
		if !errors.Is(err, want) {
			t.Errorf("%T: expected original error back", want)
		}
	}
}

func TestBatchSettlesEveryItem(t *testing.T) {
	fns := []func(context.Context) (*Result, error){
		func(context.Context) (*Result, error) { return &Result{ExitCode: 0}, nil },
		func(context.Context) (*Result, error) { return nil, &secerr.PolicyViolation{Rule: "blocked"} },
		func(context.Context) (*Result, error) { return &Result{ExitCode: 2}, nil },
	}
	outcomes := Batch(context.Background(), fns, 2)
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Err != nil || outcomes[0].Result.ExitCode != 0 {
		t.Errorf("item 0: %+v", outcomes[0])
	}
	if outcomes[1].Err == nil {
		t.Error("item 1 failure must not short-circuit the batch")
	}
	if outcomes[2].Err != nil || outcomes[2].Result.ExitCode != 2 {
		t.Errorf("item 2: %+v", outcomes[2])
	}
}

func TestBatchRespectsConcurrencyCeiling(t *testing.T) {
	const ceiling = 3
	var inFlight, peak atomic.Int32

	fns := make([]func(context.Context) (*Result, error), 20)
	for i := range fns {
		fns[i] = func(context.Context) (*Result, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return &Result{}, nil
		}
	}

	Batch(context.Background(), fns, ceiling)
	if got := peak.Load(); got > ceiling {
		t.Errorf("concurrency ceiling exceeded: peak %d > %d", got, ceiling)
	}
}

func TestWrapperRejectsGitHistoryRewrite(t *testing.T) {
	g := NewGit(NewDefault())
	bad := [][]string{
		{"filter-branch", "--all"},
		{"rebase", "main"},
		{"push", "--force"},
		{"push", "-f"},
		{"push", "--mirror"},
		{"push", "origin", "--force-with-lease"},
	}
	for _, args := range bad {
		_, err := g.Run(context.Background(), args, Options{})
		if err == nil {
			t.Errorf("git %v should be rejected", args)
			continue
		}
		var pv *secerr.PolicyViolation
		if !errors.As(err, &pv) {
			t.Errorf("git %v: expected *secerr.PolicyViolation, got %T", args, err)
		}
	}
}

func TestWrapperRejectsNpmScriptExecution(t *testing.T) {
	n := NewNpm(NewDefault())
	for _, sub := range []string{"exec", "x", "run", "run-script", "publish"} {
		_, err := n.Run(context.Background(), []string{sub}, Options{})
		if err == nil {
			t.Errorf("npm %s should be rejected", sub)
		}
	}
}
