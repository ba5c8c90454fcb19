package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/procsim/procsim/internal/store"
)

var (
	historyDB    string
	historyLimit int
)

// historyCmd lists stored replication batches
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List replication batches stored in a results database",
	Run: func(cmd *cobra.Command, args []string) {
		path := historyDB
		if !cmd.Flags().Changed("results-db") {
			path = envOr(envResultsDB, path)
		}
		if err := listHistory(context.Background(), path, historyLimit, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func listHistory(ctx context.Context, path string, limit int, out io.Writer) error {
	if path == "" {
		return fmt.Errorf("--results-db is required")
	}
	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	batches, err := db.ListBatches(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BATCH\tCREATED\tMODEL\tREPS\tSEED\tAVG CYCLE\tTHROUGHPUT")
	for _, b := range batches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.4g\t%.4g\n",
			b.ID, b.CreatedAt.Local().Format(time.DateTime), b.Model, b.Replications, b.BaseSeed, b.AvgCycleTime, b.Throughput)
	}
	return tw.Flush()
}

func init() {
	historyCmd.Flags().StringVar(&historyDB, "results-db", "", "SQLite results file (env "+envResultsDB+")")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of batches to list (0 = all)")
	rootCmd.AddCommand(historyCmd)
}
