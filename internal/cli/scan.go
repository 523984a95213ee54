package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/depgate/internal/trust"
)

var scanJSON bool

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Emit the report as JSON")
	scanCmd.Flags().BoolVar(&checkNoCache, "no-cache", false, "Skip the local verdict cache")
}

var scanCmd = &cobra.Command{
	Use:   "scan [package.json]",
	Short: "Assess every dependency a manifest declares",
	Long: "Loads the manifest, verifies each declared dependency and prints\n" +
		"findings worst-first with severity-ranked recommendations.\n\n" +
		"Exit code 0 if every dependency is safe, 1 if any is not.",
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	manifestPath := "package.json"
	if len(args) == 1 {
		manifestPath = args[0]
	}

	recorder, closeRec := openRecorder()
	defer closeRec()

	verifier, closeCache, err := newVerifier(recorder)
	if err != nil {
		return err
	}
	defer closeCache()

	report, err := trust.NewScanner(verifier).ScanProject(cmd.Context(), manifestPath)
	if err != nil {
		return err
	}

	if scanJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		printReport(report)
	}
	if report.Unsafe() > 0 {
		os.Exit(1)
	}
	return nil
}

func printReport(r *trust.Report) {
	fmt.Printf("scanned %s: %d dependencies, %d unsafe\n", r.ManifestPath, len(r.Findings), r.Unsafe())
	for _, f := range r.Findings {
		switch {
		case f.Err != nil:
			fmt.Printf("  %s: verification failed\n", f.Dependency.Name)
		case f.Assessment != nil:
			printAssessment(f.Assessment)
		}
	}
	if len(r.Recommendations) > 0 {
		fmt.Println("recommendations:")
		for _, rec := range r.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}
