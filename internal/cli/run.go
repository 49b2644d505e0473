package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	scanerrors "github.com/matzehuels/treescan/pkg/errors"
	"github.com/matzehuels/treescan/pkg/observability"
	"github.com/matzehuels/treescan/pkg/pipeline"
	"github.com/matzehuels/treescan/pkg/report"
)

// runFlags holds the flags of the run command that are not run options.
type runFlags struct {
	config      string // TOML, YAML or JSON run config
	output      string // report file, stdout when empty
	json        bool   // write the JSON document instead of text
	noCache     bool   // skip the result cache
	metricsFile string // Prometheus textfile written after the run
}

// runCommand creates the run command, the main entry point of treescan.
func (c *CLI) runCommand() *cobra.Command {
	var flags runFlags
	opts := pipeline.Options{
		Model:        pipeline.DefaultModel,
		Replications: pipeline.DefaultReplications,
		MaxCuts:      pipeline.DefaultMaxCuts,
		Seed:         pipeline.DefaultSeed,
	}

	cmd := &cobra.Command{
		Use:   "run [tree-file]",
		Short: "Scan a tree file for unusual case clusters",
		Long: `Scan a tree file for unusual case clusters.

Each line of the tree file describes one node:

  ID cases measure parent-count parent-id...

Every node with more than one case in its branch is scored with a
log-likelihood ratio. The best scoring branches are reported together with
Monte Carlo p-values from --replications simulated datasets.

Options can also come from a config file (--config run.toml). Flags given on
the command line override the file. Completed runs are cached locally, so a
repeated run with the same input and options returns instantly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runOpts, err := mergeConfig(cmd.Flags(), flags.config, opts)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				runOpts.Input = args[0]
			}
			if runOpts.Input == "" {
				return fmt.Errorf("no tree file given (pass it as an argument or set input in --config)")
			}
			return c.runScan(cmd.Context(), runOpts, flags)
		},
	}

	// Command flags
	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "run config file (.toml, .yaml or .json)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&flags.json, "json", false, "write the JSON result document")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	// Scan flags
	cmd.Flags().StringVarP(&opts.Model, "model", "m", opts.Model, "probability model: conditional, unconditional")
	cmd.Flags().IntVarP(&opts.Replications, "replications", "r", opts.Replications, "Monte Carlo replications")
	cmd.Flags().IntVar(&opts.MaxCuts, "cuts", opts.MaxCuts, "number of ranked cuts to keep")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "simulation workers (default: number of CPUs)")
	cmd.Flags().StringVarP(&opts.Duplicates, "duplicates", "d", "", "file of known duplicate cases (ID count per line)")
	cmd.Flags().BoolVar(&opts.CriticalValues, "critical-values", false, "report critical LLR values")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore a cached result")

	return cmd
}

// optionFlags maps flag names to the option they set.
var optionFlags = map[string]func(dst, src *pipeline.Options){
	"model":           func(dst, src *pipeline.Options) { dst.Model = src.Model },
	"replications":    func(dst, src *pipeline.Options) { dst.Replications = src.Replications },
	"cuts":            func(dst, src *pipeline.Options) { dst.MaxCuts = src.MaxCuts },
	"seed":            func(dst, src *pipeline.Options) { dst.Seed = src.Seed },
	"workers":         func(dst, src *pipeline.Options) { dst.Workers = src.Workers },
	"duplicates":      func(dst, src *pipeline.Options) { dst.Duplicates = src.Duplicates },
	"critical-values": func(dst, src *pipeline.Options) { dst.CriticalValues = src.CriticalValues },
	"refresh":         func(dst, src *pipeline.Options) { dst.Refresh = src.Refresh },
}

// mergeConfig loads the config file, if any, and applies the flags the user
// set explicitly on top of it. Without a config file the flag values are
// used as they are.
func mergeConfig(fs *pflag.FlagSet, path string, fromFlags pipeline.Options) (pipeline.Options, error) {
	if path == "" {
		return fromFlags, nil
	}
	opts, err := pipeline.LoadConfig(path)
	if err != nil {
		return pipeline.Options{}, err
	}
	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := optionFlags[f.Name]; ok {
			apply(&opts, &fromFlags)
		}
	})
	return opts, nil
}

// runScan executes the pipeline and writes the report.
func (c *CLI) runScan(ctx context.Context, opts pipeline.Options, flags runFlags) error {
	logger := loggerFromContext(ctx)

	var metrics *observability.PrometheusHooks
	if flags.metricsFile != "" {
		metrics = observability.NewPrometheusHooks()
		observability.SetScanHooks(metrics)
		observability.SetCacheHooks(metrics)
		defer observability.Reset()
	}

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Scanning %s...", filepath.Base(opts.Input)))
	opts.Logger = logger
	opts.Progress = spinner.Progress("Simulating")
	spinner.Start()

	stage := startStage(logger)
	result, err := runner.Execute(ctx, opts)
	if scanerrors.IsFatal(err) {
		spinner.StopWithError("Scan failed: " + scanerrors.UserMessage(err))
		return fmt.Errorf("run: %w", err)
	}
	spinner.Stop()
	if err == nil {
		stage.done("scan complete", "nodes", result.Document.Nodes, "cuts", len(result.Document.Cuts), "cached", result.CacheHit)
	}

	if metrics != nil {
		if werr := metrics.WriteTextfile(flags.metricsFile); werr != nil {
			logger.Warn("could not write metrics", "path", flags.metricsFile, "error", werr)
		} else {
			logger.Debug("wrote metrics", "path", flags.metricsFile)
		}
	}

	if werr := writeReport(result, flags); werr != nil {
		return werr
	}

	// A cancelled run still reports what it has; the error reaches main for
	// the exit status.
	return err
}

// writeReport writes the document to stdout or to flags.output.
func writeReport(result *pipeline.Result, flags runFlags) error {
	doc := result.Document
	asJSON := flags.json || strings.EqualFold(filepath.Ext(flags.output), ".json")

	if flags.output == "" {
		return renderDocument(doc, os.Stdout, asJSON)
	}

	f, err := os.Create(flags.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", flags.output, err)
	}
	if err := renderDocument(doc, f, asJSON); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	printRunSummary(result)
	printFile(flags.output)
	if asJSON {
		fmt.Println()
		printNextStep("Browse the cuts", fmt.Sprintf("%s browse %s", appName, flags.output))
	}
	return nil
}

func renderDocument(doc *report.Document, w io.Writer, asJSON bool) error {
	if asJSON {
		return report.WriteJSON(doc, w)
	}
	return report.WriteText(doc, w)
}

// printRunSummary prints the styled overview shown when the report goes to a file.
func printRunSummary(result *pipeline.Result) {
	doc := result.Document
	s := result.Stats

	if !doc.Complete {
		printWarning("Stopped after %d of %d replications, p-values are not valid", doc.Completed, doc.Replications)
	}
	printSuccess("Found %d significant cuts (p ≤ %g)", s.Significant, pipeline.SignificanceLevel)
	printStats(s.NodeCount, s.EdgeCount, doc.Completed, result.CacheHit)

	if len(doc.Cuts) > 0 {
		fmt.Println(cutTable(doc.Cuts[:min(topCutsShown, len(doc.Cuts))], pipeline.SignificanceLevel, -1).Render())
	}
	if len(doc.Cuts) > topCutsShown {
		printDetail("%d more cuts in the report", len(doc.Cuts)-topCutsShown)
	}
}
