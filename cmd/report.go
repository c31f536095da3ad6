package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/miamuminovic/nesting/datarecording"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/stats"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <record.sqlite3>",
	Short: "Print the run information and events of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		if _, err := os.Stat(args[0]); err != nil {
			return err
		}

		what, _ := cmd.Flags().GetString("what")
		limit, _ := cmd.Flags().GetInt("limit")

		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		reader.MapTable(datarecording.RunInfoTable, datarecording.RunProperty{})
		reader.MapTable(stats.EventTable, stats.Event{})

		return report(cmd.Context(), cmd.OutOrStdout(), reader, what, limit)
	},
}

func init() {
	reportCmd.Flags().String("what", "",
		"list only events of this hook position, such as \"Frame Filtered\"")
	reportCmd.Flags().Int("limit", 20,
		"maximum number of events to list, 0 for all")
	rootCmd.AddCommand(reportCmd)
}

func report(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
	what string,
	limit int,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	props, _, err := reader.Query(ctx, datarecording.RunInfoTable,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	for _, p := range props {
		printProperty(w, p.(*datarecording.RunProperty))
	}

	all, total, err := reader.Query(ctx, stats.EventTable,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "events: %d\n", total)

	counts := make(map[string]int)
	for _, e := range all {
		counts[e.(*stats.Event).What]++
	}

	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		fmt.Fprintf(w, "  %-24s %d\n", n, counts[n])
	}

	params := datarecording.QueryParams{OrderBy: "Time", Limit: limit}
	if what != "" {
		params.Where = "What = ?"
		params.Args = []any{what}
	}

	events, matching, err := reader.Query(ctx, stats.EventTable, params)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "listing %d of %d\n", len(events), matching)

	for _, e := range events {
		evt := e.(*stats.Event)
		fmt.Fprintf(w, "%s, %s, %s, %s\n",
			timing.VTime(evt.Time), evt.Component, evt.What, evt.Item)
	}

	return nil
}

func printProperty(w io.Writer, p *datarecording.RunProperty) {
	value := strings.TrimSpace(p.Value)
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s: %s\n", p.Property, value)
		return
	}

	fmt.Fprintf(w, "%s:\n", p.Property)
	for _, line := range strings.Split(value, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
