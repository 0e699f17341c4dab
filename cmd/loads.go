package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bizmap/internal/model"
	"github.com/sells-group/bizmap/internal/store"
)

var loadsCmd = &cobra.Command{
	Use:   "loads",
	Short: "List recent dataset load attempts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Store == nil {
			fmt.Fprintln(os.Stderr, "Load-run store is disabled (store.driver=none).")
			return nil
		}

		runs, err := env.Store.ListLoadRuns(ctx, store.LoadRunFilter{
			Status: model.LoadStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "loads list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No load runs found.")
			return nil
		}

		formatLoadRuns(os.Stdout, runs)
		return nil
	},
}

func init() {
	loadsCmd.Flags().Int("limit", 20, "max number of load runs to display")
	loadsCmd.Flags().String("status", "", "filter by status (running, complete, failed)")
	rootCmd.AddCommand(loadsCmd)
}

// formatLoadRuns writes a tabular list of load runs to w.
func formatLoadRuns(out io.Writer, runs []model.LoadRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tRECORDS\tDROPPED\tSTARTED\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t-------\t-------\t--------\t-----")

	for _, r := range runs {
		dur := ""
		if r.FinishedAt != nil {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}

		errText := r.Error
		if rs := []rune(errText); len(rs) > 40 {
			errText = string(rs[:37]) + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			r.Stats.RecordsKept,
			r.Stats.DroppedNoCoords+r.Stats.DroppedOutOfBounds,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			errText,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
