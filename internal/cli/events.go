package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/depgate/internal/secevent"
)

var eventsTailLines int

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsVerifyCmd)
	eventsCmd.AddCommand(eventsTailCmd)
	eventsTailCmd.Flags().IntVarP(&eventsTailLines, "lines", "n", 10, "Number of recent events to show")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Security event log operations",
	Long:  "Commands for verifying and inspecting the hash-chained event log.",
}

var eventsVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of the event log",
	Long: "Walks the JSONL event log and validates that every entry's prev_hash\n" +
		"matches the SHA-256 of the previous line. Exits 0 if valid, 1 if\n" +
		"tampered.",
	Args: cobra.MaximumNArgs(1),
	RunE: runEventsVerify,
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail [path]",
	Short: "Show recent security events",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEventsTail,
}

func resolveEventsPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return eventsLogPath()
}

func runEventsVerify(cmd *cobra.Command, args []string) error {
	path, err := resolveEventsPath(args)
	if err != nil {
		return err
	}
	result := secevent.Verify(path)
	if result.Valid {
		fmt.Printf("OK: %d events verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runEventsTail(cmd *cobra.Command, args []string) error {
	path, err := resolveEventsPath(args)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > eventsTailLines {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event log: %w", err)
	}
	for _, line := range lines {
		var ev secevent.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			fmt.Println(line)
			continue
		}
		fmt.Printf("%s  %-20s %-8s %s\n", ev.Timestamp, ev.Type, ev.Severity, ev.Details)
	}
	return nil
}
