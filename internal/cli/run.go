package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apifetch/internal/config"
	"github.com/apifetch/internal/logging"
	"github.com/apifetch/internal/metrics"
	"github.com/apifetch/internal/report"
	"github.com/apifetch/internal/worker"
	"github.com/spf13/cobra"
)

var (
	configPath      string
	runConcurrency  int
	runKeepGoing    bool
	runHeaders      bool
	metricsTextfile string
)

var runCmd = &cobra.Command{
	Use:   "run [endpoint...]",
	Short: "Fetch the endpoints defined in a config file",
	Long: `Fetch every endpoint in a YAML configuration file, or only the named ones,
and print a report for each followed by a summary.
By default the run stops at the first failure.

Example:
  apifetch run --config apifetch.yaml
  apifetch run --config apifetch.yaml exchange-usd-brl --keep-going`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "apifetch.yaml", "Path to configuration file")
	runCmd.Flags().IntVarP(&runConcurrency, "concurrency", "n", 0, "Override worker.concurrency")
	runCmd.Flags().BoolVar(&runKeepGoing, "keep-going", false, "Keep fetching after a failure")
	runCmd.Flags().BoolVarP(&runHeaders, "headers", "i", false, "Print response headers")
	runCmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file (overrides metrics.textfile)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cmd.Flags().Changed("log-level") {
		logLevel = cfg.Log.Level
	}
	if !cmd.Flags().Changed("log-format") {
		logFormat = cfg.Log.Format
	}
	if err := logging.Init(logLevel, logFormat); err != nil {
		return err
	}

	if runConcurrency > 0 {
		cfg.Worker.Concurrency = runConcurrency
	}
	if runKeepGoing {
		cfg.Worker.StopOnError = false
	}
	if metricsTextfile != "" {
		cfg.Metrics.Textfile = metricsTextfile
	}

	endpoints, err := cfg.Select(args)
	if err != nil {
		return err
	}

	jobs := make([]worker.Job, 0, len(endpoints))
	for _, e := range endpoints {
		job, err := worker.NewJob(e)
		if err != nil {
			return fmt.Errorf("endpoint %q: %w", e.Name, err)
		}
		jobs = append(jobs, job)
	}

	log := logging.For("run")
	log.WithField("config", configPath).
		WithField("endpoints", len(jobs)).
		WithField("concurrency", cfg.Worker.Concurrency).
		Info("starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	pool := worker.NewPool(cfg.Worker, cfg.Client.NewClient(), m)
	defer pool.Close()

	results := pool.Run(ctx, jobs)

	out := cmd.OutOrStdout()
	printer := report.NewPrinter(out, report.Options{
		Headers: runHeaders,
		Styled:  isTerminal(out),
	})

	summary := report.NewSummary()
	for _, r := range results {
		printer.Title(r.Job.Endpoint.Name, r.Target)
		switch {
		case r.Skipped:
			printer.Skipped(r.Err.Error())
			summary.Skip()
		case r.Err != nil:
			printer.Failure(r.Err)
			summary.Add(r.Duration, r.Err)
		default:
			var selected []any
			if r.Job.Selector != nil {
				selected = append(selected, r.Selected)
			}
			if err := printer.Response(r.Response, selected...); err != nil {
				return err
			}
			summary.Add(r.Duration, nil)
		}
		fmt.Fprintln(out)
	}
	printer.Summary(summary)

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
		log.WithField("path", cfg.Metrics.Textfile).Info("metrics written")
	}

	if summary.Failed > 0 || summary.Skipped > 0 {
		return errFetchFailed
	}
	return nil
}
