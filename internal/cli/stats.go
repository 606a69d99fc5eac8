package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sentinelsoft/rulegraph/pkg/analytics"
	"github.com/sentinelsoft/rulegraph/pkg/store"
)

// newStatsCmd creates the stats command, which prints the persisted
// statistics artifact either as a human-readable summary or as raw JSON.
func newStatsCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print graph statistics from the last build",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			_, s, err := openStore(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := store.LoadStats(ctx, s)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			printStats(stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw statistics artifact")
	return cmd
}

func printStats(s *analytics.Stats) {
	printRanking("Most direct descendants", s.TopDirectDescendants)
	printRanking("Most total descendants", s.TopIndirectDescendants)
	printRanking("Most direct ancestors", s.TopDirectAncestors)
	printRanking("Most total ancestors", s.TopIndirectAncestors)

	fmt.Printf("Isolated rules: %d\n", len(s.IsolatedRules))
	for _, r := range s.IsolatedRules {
		fmt.Printf("  %s\n", r.ID)
	}
	fmt.Printf("Self-referencing rules: %d\n", len(s.SelfLoops))
	for _, r := range s.SelfLoops {
		fmt.Printf("  %s\n", r.ID)
	}
	fmt.Printf("Cycles: %d\n", len(s.Cycles))
	for _, c := range s.Cycles {
		fmt.Printf("  %s\n", strings.Join(c, " -> "))
	}
}

func printRanking(title string, counts []analytics.Count) {
	fmt.Println(title + ":")
	for _, c := range counts {
		fmt.Printf("  %-12s %d\n", c.ID, c.Count)
	}
}
