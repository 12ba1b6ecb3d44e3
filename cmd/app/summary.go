package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"BreadthPull/internal/domain/models"
	"BreadthPull/pkg/util"
)

// printSummary writes a one-line trend per composite followed by the run diagnostics.
func printSummary(w io.Writer, r *models.Report) {
	fmt.Fprintf(w, "run %s at %s (%s)\n\n", r.RunID, r.GeneratedAt.Format("2006-01-02 15:04:05 MST"), r.Duration.Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDICATOR\tTREND\tDATE\tSHORT SMA\tLONG SMA")
	for _, c := range models.Composites() {
		if ind, ok := r.Indicator(c); ok {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.4g\t%.4g\n",
				c, ind.Label, util.FormatDate(ind.Signal.Date), ind.Signal.Short, ind.Signal.Long)
			continue
		}
		fmt.Fprintf(tw, "%s\tunavailable\t-\t-\t-\n", c)
	}
	_ = tw.Flush()

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "\nunavailable indicators:")
		for _, c := range models.Composites() {
			if msg, ok := r.Errors[c]; ok {
				fmt.Fprintf(w, "  %s: %s\n", c, msg)
			}
		}
	}
	if len(r.Missing) > 0 {
		fmt.Fprintln(w, "\nmissing assets:")
		for _, m := range r.Missing {
			fmt.Fprintf(w, "  %s: %s\n", m.AssetID, m.Reason)
		}
	}
	for _, n := range r.Notices {
		fmt.Fprintf(w, "note: %s\n", n)
	}
	fmt.Fprintf(w, "\n%s\n", r.Disclaimer)
}
