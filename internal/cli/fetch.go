package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/depgate/internal/netguard"
)

var fetchJSON bool

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Emit the projection as JSON")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <package>",
	Short: "Fetch a package's registry metadata projection",
	Long: "Sanitizes the package name, fetches its registry document over the\n" +
		"guarded HTTP client and prints a best-effort metadata projection.",
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	recorder, closeRec := openRecorder()
	defer closeRec()

	client := netguard.New(netguard.Config{}, nil, nil, recorder)
	meta, err := client.FetchPackageMetadata(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	info := netguard.ProjectInfo(args[0], meta)

	if fetchJSON {
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Printf("%s@%s\n", info.Name, info.LatestVersion)
	if info.Description != "" {
		fmt.Printf("  %s\n", info.Description)
	}
	fmt.Printf("  license: %s\n", orDash(info.License))
	fmt.Printf("  repository: %s\n", orDash(info.RepositoryURL))
	fmt.Printf("  author: %s\n", orDash(info.Author))
	fmt.Printf("  versions: %d\n", info.VersionCount)
	if downloads, err := client.FetchWeeklyDownloads(cmd.Context(), args[0]); err == nil {
		fmt.Printf("  weekly downloads: %d\n", downloads)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
