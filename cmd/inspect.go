package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bizmap/internal/dataset"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the dataset and print normalization statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := env.Service.Snapshot(ctx)
		if err != nil {
			return eris.Wrap(err, "inspect")
		}

		if format == formatTable {
			formatSnapshot(os.Stdout, snap)
			return nil
		}
		return writeStructured(os.Stdout, format, reloadResponse{
			Location: snap.Location,
			Identity: snap.Identity,
			Records:  len(snap.Records),
			Stats:    snap.Stats,
			LoadedAt: snap.LoadedAt,
		})
	},
}

func init() {
	inspectCmd.Flags().String("format", formatTable, "output format: table, json, or yaml")
	rootCmd.AddCommand(inspectCmd)
}

// formatSnapshot writes a summary of a loaded dataset to w.
func formatSnapshot(out io.Writer, snap *dataset.Snapshot) {
	cols := make([]string, 0, len(snap.Schema))
	for _, c := range snap.Schema.Columns() {
		cols = append(cols, string(c))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Location:\t%s\n", snap.Location)
	_, _ = fmt.Fprintf(w, "Identity:\t%s\n", snap.Identity)
	_, _ = fmt.Fprintf(w, "Loaded at:\t%s\n", snap.LoadedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "Columns:\t%s\n", strings.Join(cols, ", "))
	_, _ = fmt.Fprintf(w, "Rows read:\t%d\n", snap.Stats.RowsRead)
	_, _ = fmt.Fprintf(w, "Records kept:\t%d\n", snap.Stats.RecordsKept)
	_, _ = fmt.Fprintf(w, "  No coordinates:\t%d\n", snap.Stats.DroppedNoCoords)
	_, _ = fmt.Fprintf(w, "  Out of bounds:\t%d\n", snap.Stats.DroppedOutOfBounds)
	_, _ = fmt.Fprintf(w, "Provinces derived:\t%d\n", snap.Stats.ProvincesDerived)
	_, _ = fmt.Fprintf(w, "Districts derived:\t%d\n", snap.Stats.DistrictsDerived)
	_ = w.Flush()
}
