package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/miamuminovic/nesting/datarecording"
	"github.com/miamuminovic/nesting/tsn/bridge"
	"github.com/miamuminovic/nesting/tsn/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation for the configured duration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if record, _ := cmd.Flags().GetString("record"); record != "" {
			cfg.Files.Record = record
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		logEvents, _ := cmd.Flags().GetBool("log-events")
		only, _ := cmd.Flags().GetStringSlice("only")

		b := bridge.MakeBuilder().WithConfig(cfg)
		if verbose || logEvents || len(only) > 0 {
			b = b.WithLogger(log.New(os.Stderr, "", 0)).
				WithEventLogging(logEvents).
				WithLogFilter(only...)
		}

		br, err := b.Build("Bridge")
		if err != nil {
			return err
		}

		var runRecorder *datarecording.RunRecorder
		if rec := br.Recorder(); rec != nil {
			runRecorder = datarecording.NewRunRecorder(rec)
			runRecorder.Start()
			recordConfig(runRecorder, cfg)
		}

		if err := br.Run(); err != nil {
			return err
		}

		if runRecorder != nil {
			runRecorder.End()
		}

		printSummary(cmd.OutOrStdout(), br.Summary())

		return nil
	},
}

func init() {
	runCmd.Flags().String("record", "",
		"record every hook invocation into this SQLite file")
	runCmd.Flags().BoolP("verbose", "v", false,
		"log every hook invocation to stderr")
	runCmd.Flags().StringSlice("only", nil,
		"log only these hook positions, such as \"Frame Dropped\"")
	runCmd.Flags().Bool("log-events", false,
		"also log every engine event to stderr")
	rootCmd.AddCommand(runCmd)
}

func recordConfig(r *datarecording.RunRecorder, cfg *config.Config) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		log.Printf("cannot record the configuration: %v", err)
		return
	}

	r.Set("Config", string(out))
}

func printSummary(w io.Writer, s bridge.Summary) {
	fmt.Fprintf(w, "simulated time:   %s\n", s.Now)
	fmt.Fprintf(w, "frames generated: %d\n", s.Generated)
	fmt.Fprintf(w, "forwarded:        %d\n", s.Forwarded)
	fmt.Fprintf(w, "filtered:         %d\n", s.Filtered)
	fmt.Fprintf(w, "dropped:          %d\n", s.Dropped)
	fmt.Fprintf(w, "transmitted:      %d\n", s.Transmitted)
	fmt.Fprintf(w, "delivered:        %d\n", s.Delivered)
	fmt.Fprintf(w, "max latency:      %s\n", s.MaxLatency)
	fmt.Fprintf(w, "link busy:        %s\n", s.LinkBusy)
	fmt.Fprintf(w, "gate swaps:       %d\n", s.GateSwaps)
	fmt.Fprintf(w, "table swaps:      %d\n", s.TableSwaps)
	fmt.Fprintf(w, "entries aged:     %d\n", s.EntriesAged)
	fmt.Fprintf(w, "plan entries:     %d\n", s.PlanEntries)
	fmt.Fprintf(w, "learned entries:  %d\n", len(s.LearnedPorts))
}
