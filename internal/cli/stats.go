package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show inventory summary statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := s.Stats(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Items:        %d\n", st.TotalItems)
		fmt.Fprintf(out, "Total value:  $%.2f\n", st.TotalValue)
		fmt.Fprintf(out, "Open repairs: %d\n", st.OpenRepairs)

		fmt.Fprintln(out, "\nBy category:")
		printCounts(cmd, st.ByCategory)
		fmt.Fprintln(out, "\nBy acquisition:")
		printCounts(cmd, st.ByAcquisition)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(statsCmd)
}

func printCounts(cmd *cobra.Command, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %d\n", k, counts[k])
	}
}
