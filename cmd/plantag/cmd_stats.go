package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cognicore/plantag/pkg/plantag/store/sqlite"
)

var statsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats [BUCKET]",
	Short: "Summarize stored outcomes",
	Long: `Print the number of stored outcomes per bucket. Given a BUCKET, list the
most recent items in it instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 20, "Items to list for a bucket")
}

func runStats(cmd *cobra.Command, args []string) error {
	if dbPath == "" {
		return fmt.Errorf("stats needs --db")
	}
	ctx := cmd.Context()
	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		items, err := st.OutcomesByBucket(ctx, args[0], statsLimit)
		if err != nil {
			return err
		}
		for _, o := range items {
			fmt.Fprintf(out, "%s\t%d\t%s\t%s\n", o.ItemID, o.Score, o.QualityLabel, o.Tag)
		}
		return nil
	}

	counts, err := st.CountByBucket(ctx)
	if err != nil {
		return err
	}
	buckets := make([]string, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	for _, b := range buckets {
		fmt.Fprintf(out, "%-12s %d\n", b, counts[b])
	}
	return nil
}
