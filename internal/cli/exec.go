package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/depgate/internal/execguard"
)

var (
	execTimeout time.Duration
	execCwd     string
	execDryRun  bool
)

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().DurationVar(&execTimeout, "timeout", 0, "Per-run timeout (default 30s)")
	execCmd.Flags().StringVar(&execCwd, "cwd", "", "Working directory for the command")
	execCmd.Flags().BoolVar(&execDryRun, "dry-run", false, "Validate the command and arguments without running anything")
}

var execCmd = &cobra.Command{
	Use:   "exec <command> [args...]",
	Short: "Run a whitelisted package-manager command under guard",
	Long: "Runs npm, node, git, yarn or pnpm with sanitized arguments,\n" +
		"a hard timeout, kill escalation and a combined output cap.\n" +
		"Credential-shaped values are scrubbed from the captured output.\n\n" +
		"The subprocess exit code becomes the depgate exit code.",
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	recorder, closeRec := openRecorder()
	defer closeRec()

	executor := execguard.New(execguard.Config{Timeout: execTimeout}, nil, recorder)
	command, rest := args[0], args[1:]

	if execDryRun {
		clean, err := executor.Validate(command, rest)
		if err != nil {
			return err
		}
		fmt.Printf("would run: %s %s\n", command, strings.Join(clean, " "))
		return nil
	}

	opts := execguard.Options{Timeout: execTimeout, Cwd: execCwd}
	var (
		res *execguard.Result
		err error
	)
	switch command {
	case "git":
		res, err = execguard.NewGit(executor).Run(cmd.Context(), rest, opts)
	case "npm":
		res, err = execguard.NewNpm(executor).Run(cmd.Context(), rest, opts)
	default:
		res, err = executor.Execute(cmd.Context(), command, rest, opts)
	}
	if err != nil {
		return err
	}
	if res.Stdout != "" {
		fmt.Print(res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(os.Stderr, res.Stderr)
	}
	if res.SecretsRedacted > 0 {
		fmt.Fprintf(os.Stderr, "depgate: %d credential-shaped values scrubbed from output\n", res.SecretsRedacted)
	}
	if res.ExitCode != 0 {
		os.Exit(res.ExitCode)
	}
	return nil
}
