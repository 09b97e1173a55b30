package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tetmin/mcp-beeper-texts/internal/archive"
	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

// platformInfo is one discovered bridge store.
type platformInfo struct {
	Platform string `json:"platform"`
	Store    string `json:"store"`
	Path     string `json:"path"`
}

var platformsAll bool

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List the bridged networks found in the archive",
	Long: `List the per-network bridge databases (local-*/megabridge.db) under the
archive root. These supply contact names that the main index lacks.

With --all, every network chat ids are recognised for is listed, with an
empty store for networks that have no bridge database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openArchive()
		if err := a.Check(); err != nil {
			return archiveHint(err)
		}
		stores, err := a.PlatformStores()
		if err != nil {
			return archiveHint(fmt.Errorf("list platform stores: %w", err))
		}

		infos := describeStores(stores)
		if platformsAll {
			infos = withKnownPlatforms(infos)
		}
		if wantJSON() {
			return writeJSON(os.Stdout, infos)
		}
		if len(infos) == 0 {
			fmt.Println("No platform stores found.")
			return nil
		}
		return printPlatformsTable(os.Stdout, infos)
	},
}

func describeStores(stores []archive.PlatformStore) []platformInfo {
	infos := make([]platformInfo, 0, len(stores))
	for _, s := range stores {
		infos = append(infos, platformInfo{
			Platform: query.ResolvePlatform(s.Name),
			Store:    s.Name,
			Path:     s.Path,
		})
	}
	return infos
}

// withKnownPlatforms adds a row without a store for each recognised network
// that has no bridge database, keeping the recogniser's order.
func withKnownPlatforms(infos []platformInfo) []platformInfo {
	have := make(map[string]bool, len(infos))
	for _, p := range infos {
		have[p.Platform] = true
	}
	out := infos
	for _, label := range query.PlatformLabels() {
		if label == query.PlatformUnknown || have[label] {
			continue
		}
		out = append(out, platformInfo{Platform: label})
	}
	return out
}

func printPlatformsTable(w io.Writer, infos []platformInfo) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PLATFORM\tSTORE\tPATH")
	for _, p := range infos {
		store := p.Store
		if store == "" {
			store = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Platform, store, p.Path)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(platformsCmd)
	platformsCmd.Flags().BoolVar(&platformsAll, "all", false, "Also list recognised networks without a bridge store")
	addJSONFlag(platformsCmd)
}
