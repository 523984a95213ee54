package execguard

import (
	"context"
	"strings"

	"github.com/ppiankov/depgate/internal/secerr"
)

// gitDeniedSubcommands are history-rewriting or remote-mutating operations
// the gateway refuses regardless of arguments.
var gitDeniedSubcommands = map[string]bool{
	"filter-branch": true,
	"filter-repo":   true,
	"rebase":        true,
	"reflog":        true,
	"gc":            true,
}

// gitDeniedFlags block remote-mutating pushes even though push itself is
// allowed for ordinary refs.
var gitDeniedFlags = []string{"--force", "-f", "--mirror", "--delete", "--force-with-lease"}

// npmDeniedSubcommands run arbitrary package code or mutate the registry.
var npmDeniedSubcommands = map[string]bool{
	"exec":       true,
	"x":          true,
	"run":        true,
	"run-script": true,
	"publish":    true,
	"edit":       true,
	"explore":    true,
}

// npmScriptedSubcommands get --ignore-scripts appended so lifecycle hooks
// never run.
var npmScriptedSubcommands = map[string]bool{
	"install":   true,
	"i":         true,
	"ci":        true,
	"update":    true,
	"uninstall": true,
}

// Git runs git through the executor with the gateway's safety rails.
type Git struct {
	exec *Executor
}

// NewGit wraps an executor for git invocations.
func NewGit(e *Executor) *Git {
	return &Git{exec: e}
}

// Run executes git with the given arguments. History-rewriting subcommands
// and force-push variants are rejected before sanitization.
func (g *Git) Run(ctx context.Context, args []string, opts Options) (*Result, error) {
	if len(args) > 0 {
		sub := strings.ToLower(args[0])
		if gitDeniedSubcommands[sub] {
			return nil, &secerr.PolicyViolation{Rule: "git subcommand not permitted"}
		}
		if sub == "push" {
			for _, a := range args[1:] {
				for _, denied := range gitDeniedFlags {
					if strings.EqualFold(a, denied) {
						return nil, &secerr.PolicyViolation{Rule: "git push flag not permitted"}
					}
				}
			}
		}
	}
	// Hooks are attacker-controlled files inside a checkout; never run them.
	full := append([]string{"-c", "core.hooksPath="}, args...)
	return g.exec.Execute(ctx, "git", full, opts)
}

// Npm runs npm through the executor with mandatory safety flags.
type Npm struct {
	exec *Executor
}

// NewNpm wraps an executor for npm invocations.
func NewNpm(e *Executor) *Npm {
	return &Npm{exec: e}
}

// Run executes npm with the given arguments. Script-running subcommands are
// rejected; install-family subcommands get --ignore-scripts appended.
func (n *Npm) Run(ctx context.Context, args []string, opts Options) (*Result, error) {
	if len(args) > 0 {
		sub := strings.ToLower(args[0])
		if npmDeniedSubcommands[sub] {
			return nil, &secerr.PolicyViolation{Rule: "npm subcommand not permitted"}
		}
		if npmScriptedSubcommands[sub] && !hasFlag(args, "--ignore-scripts") {
			args = append(args, "--ignore-scripts")
		}
	}
	return n.exec.Execute(ctx, "npm", args, opts)
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
