package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/depgate/internal/secerr"
	"github.com/ppiankov/depgate/internal/secevent"
)

var (
	flagEventsLog string
	flagDebug     bool
)

var rootCmd = &cobra.Command{
	Use:   "depgate",
	Short: "Security gateway for package-manager operations",
	Long: "Mediates package installs, registry lookups and config secrets.\n" +
		"Untrusted names, paths, arguments and URLs cross a validator before\n" +
		"any process is spawned or request is sent. Denied means denied:\n" +
		"rejections name the rule, never the payload.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		secerr.SetDebug(flagDebug)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEventsLog, "events-log", "", "Path to the security event log (default ~/.depgate/events.log)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Emit unredacted error detail")
}

// Execute runs the root command. Errors cross the redaction boundary
// before they reach the user.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", secerr.Boundary(err))
		os.Exit(1)
	}
}

func depgateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".depgate"), nil
}

func eventsLogPath() (string, error) {
	if flagEventsLog != "" {
		return flagEventsLog, nil
	}
	dir, err := depgateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "events.log"), nil
}

// openRecorder opens the event log. An unavailable log degrades to a
// no-op recorder with a warning rather than blocking the operation.
func openRecorder() (secevent.Recorder, func()) {
	path, err := eventsLogPath()
	if err == nil {
		var log *secevent.Log
		if log, err = secevent.Open(path); err == nil {
			return log, func() { log.Close() }
		}
	}
	fmt.Fprintf(os.Stderr, "warning: event log unavailable: %v\n", err)
	return secevent.Nop{}, func() {}
}
