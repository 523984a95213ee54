package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/depgate/internal/model"
	"github.com/ppiankov/depgate/internal/netguard"
	"github.com/ppiankov/depgate/internal/sanitize"
	"github.com/ppiankov/depgate/internal/secevent"
	"github.com/ppiankov/depgate/internal/trust"
	"github.com/ppiankov/depgate/internal/trustcache"
)

var (
	checkJSON    bool
	checkNoCache bool
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Emit the assessment as JSON")
	checkCmd.Flags().BoolVar(&checkNoCache, "no-cache", false, "Skip the local verdict cache")
}

var checkCmd = &cobra.Command{
	Use:   "check <package>[@version]",
	Short: "Assess one package's supply-chain trust",
	Long: "Fetches registry metadata for the package and runs every trust\n" +
		"check: known advisories, name heuristics, publisher reputation,\n" +
		"publish age, version churn and download counts.\n\n" +
		"Exit code 0 if the package is safe, 1 if not.",
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	name, version := splitNameVersion(args[0])

	recorder, closeRec := openRecorder()
	defer closeRec()

	verifier, closeCache, err := newVerifier(recorder)
	if err != nil {
		return err
	}
	defer closeCache()

	a, err := verifier.VerifyPackage(cmd.Context(), name, version)
	if err != nil {
		return err
	}
	if checkJSON {
		out, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		printAssessment(a)
	}
	if !a.Safe {
		os.Exit(1)
	}
	return nil
}

func printAssessment(a *model.TrustAssessment) {
	verdict := "SAFE"
	if !a.Safe {
		verdict = "UNSAFE"
	}
	fmt.Printf("%s@%s: %s (publisher score %.2f)\n", a.PackageName, a.Version, verdict, a.PublisherScore)
	for _, is := range a.Issues {
		fmt.Printf("  [%s] %s: %s\n", is.Severity, is.Type, is.Message)
	}
}

// newVerifier wires the default gateway client with the verdict cache.
// A broken cache degrades to uncached operation.
func newVerifier(recorder secevent.Recorder) (*trust.Verifier, func(), error) {
	client := netguard.New(netguard.Config{}, sanitize.NewDefault(), nil, recorder)

	var cache *trustcache.Cache
	closeCache := func() {}
	if !checkNoCache {
		if dir, err := depgateDir(); err == nil {
			if c, err := trustcache.Open(filepath.Join(dir, "verdicts.db"), 0); err == nil {
				cache = c
				closeCache = func() { c.Close() }
			}
		}
	}
	return trust.NewVerifier(client, nil, cache, recorder), closeCache, nil
}

// splitNameVersion splits lodash@4.17.21 or @scope/pkg@1.0.0 into name
// and version; a missing version selects the latest release.
func splitNameVersion(arg string) (string, string) {
	if i := strings.LastIndexByte(arg, '@'); i > 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, ""
}
