// File: cmd/check.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scalpel-heal/internal/config"
	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/driver/cdpdriver"
	"github.com/xkilldash9x/scalpel-heal/internal/driver/htmldriver"
	"github.com/xkilldash9x/scalpel-heal/internal/driver/pwdriver"
	"github.com/xkilldash9x/scalpel-heal/internal/element"
	"github.com/xkilldash9x/scalpel-heal/internal/healing"
	"github.com/xkilldash9x/scalpel-heal/internal/locator"
	"github.com/xkilldash9x/scalpel-heal/internal/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Element statuses printed by check.
const (
	statusPrimary = "primary"
	statusHealed  = "healed"
	statusFailed  = "failed"
)

// defaultNavigationTimeout applies when the configuration leaves it unset.
const defaultNavigationTimeout = 30 * time.Second

// ErrUnresolved is returned by check when at least one element failed.
var ErrUnresolved = errors.New("some elements could not be resolved")

type checkOptions struct {
	catalog     string
	htmlFile    string
	url         string
	parallel    int
	noHeal      bool
	metricsFile string
}

// elementResult is one catalog entry's outcome.
type elementResult struct {
	Purpose  string `json:"purpose"`
	Status   string `json:"status"`
	Strategy string `json:"strategy,omitempty"`
	Resolved string `json:"resolved,omitempty"`
	Error    string `json:"error,omitempty"`
}

// livePage is a driver page that can load a URL.
type livePage interface {
	driver.Page
	Navigate(ctx context.Context, url string) error
}

// openLivePage starts the configured browser backend. It is a variable so
// tests can substitute a page without launching a browser.
var openLivePage = openBrowser

func newCheckCmd(a *app) *cobra.Command {
	var opts checkOptions

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve every element of a catalog against a page",
		Long: `Resolve every element of a descriptor catalog against an HTML snapshot
(--html) or a live page (--url), printing how each one was found and the
healing report for the run.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if (opts.htmlFile == "") == (opts.url == "") {
				return errors.New("exactly one of --html or --url is required")
			}
			for flag, key := range map[string]string{
				"driver": "browser.driver",
				"format": "report.format",
				"output": "report.output_path",
			} {
				if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Reload so the flags bound in PreRunE take precedence.
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			if opts.noHeal {
				cfg.Locator.EnableHealing = false
			}
			if opts.metricsFile != "" {
				cfg.Report.Metrics = true
			}
			return runCheck(cmd.Context(), cfg, opts, a.logger, cmd.OutOrStdout())
		},
	}

	flags := checkCmd.Flags()
	flags.StringVar(&opts.catalog, "catalog", "", "YAML catalog of element descriptors")
	flags.StringVar(&opts.htmlFile, "html", "", "resolve against a static HTML snapshot")
	flags.StringVar(&opts.url, "url", "", "resolve against a live page")
	flags.String("driver", "chromedp", "live browser backend: chromedp or playwright")
	flags.String("format", "text", "report format: text or json")
	flags.String("output", "", "write the healing report to this file instead of stdout")
	flags.IntVar(&opts.parallel, "parallel", 4, "concurrent snapshot checks")
	flags.BoolVar(&opts.noHeal, "no-heal", false, "only try primary and fallback locators")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics for the run to this file")
	_ = checkCmd.MarkFlagRequired("catalog")

	return checkCmd
}

// run is the per-invocation wiring shared by snapshot and live checks.
type run struct {
	cfg      *config.Config
	logger   *zap.Logger
	reporter *healing.Reporter
	resolver *healing.Resolver
	metrics  *healing.ResolutionMetrics
	registry *prometheus.Registry
}

func runCheck(ctx context.Context, cfg *config.Config, opts checkOptions, logger *zap.Logger, out io.Writer) error {
	cat, err := element.LoadCatalogFile(opts.catalog)
	if err != nil {
		return err
	}

	r, err := newRun(cfg, logger)
	if err != nil {
		return err
	}

	var results []elementResult
	if opts.htmlFile != "" {
		results, err = r.checkSnapshot(ctx, cat, opts.htmlFile, opts.parallel)
	} else {
		results, err = r.checkLive(ctx, cat, opts.url)
	}
	if err != nil {
		return err
	}

	if err := r.write(out, results); err != nil {
		return err
	}
	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, r.registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	failed := 0
	for _, res := range results {
		if res.Status == statusFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrUnresolved, failed, len(results))
	}
	return nil
}

func newRun(cfg *config.Config, logger *zap.Logger) (*run, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &run{cfg: cfg, logger: logger.Named("check")}

	var reporterOpts []healing.ReporterOption
	if cfg.Report.Metrics {
		r.registry = prometheus.NewRegistry()
		sink, err := healing.NewMetricsSink(r.registry)
		if err != nil {
			return nil, err
		}
		reporterOpts = append(reporterOpts, healing.WithSink(sink))
		r.metrics = healing.NewResolutionMetrics(r.registry)
	}
	r.reporter = healing.NewReporter(logger, reporterOpts...)
	r.reporter.SetEnabled(cfg.Report.Enabled)
	r.resolver = healing.NewResolver(
		healing.WithProbeTimeout(cfg.Locator.ProbeTimeout),
		healing.WithAmbiguityThreshold(cfg.Locator.AmbiguityThreshold),
		healing.WithResolverLogger(logger),
	)
	return r, nil
}

// checkSnapshot resolves entries concurrently, each against its own parse of
// the document, since a page is driven by one caller at a time.
func (r *run) checkSnapshot(ctx context.Context, cat *element.Catalog, path string, parallel int) ([]elementResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	doc := string(data)
	if _, err := htmldriver.FromString(doc); err != nil {
		return nil, err
	}

	if parallel < 1 {
		parallel = 1
	}
	results := make([]elementResult, len(cat.Entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, entry := range cat.Entries {
		g.Go(func() error {
			page, err := htmldriver.FromString(doc, htmldriver.WithTestIDAttribute(r.cfg.Locator.TestIDAttribute))
			if err != nil {
				return err
			}
			res, err := r.resolve(gctx, page, entry)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkLive resolves entries one after another on a single browser page.
func (r *run) checkLive(ctx context.Context, cat *element.Catalog, url string) ([]elementResult, error) {
	page, closeFn, err := openLivePage(ctx, r.cfg, r.logger)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	timeout := r.cfg.Browser.NavigationTimeout
	if timeout <= 0 {
		timeout = defaultNavigationTimeout
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := page.Navigate(navCtx, url); err != nil {
		return nil, err
	}

	results := make([]elementResult, 0, len(cat.Entries))
	for _, entry := range cat.Entries {
		res, err := r.resolve(ctx, page, entry)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// resolve runs one entry. Resolution failures become results; only a
// cancelled context is returned as an error.
func (r *run) resolve(ctx context.Context, page driver.Page, entry element.Entry) (elementResult, error) {
	res := elementResult{Purpose: entry.Descriptor.Purpose()}
	l, err := locator.New(page, entry.Primary, entry.Descriptor,
		locator.FromConfig(r.cfg.Locator),
		locator.WithRetry(retry.OptionsFromConfig(r.cfg.Retry)),
		locator.WithFallbacks(entry.Fallbacks...),
		locator.WithReporter(r.reporter),
		locator.WithResolver(r.resolver),
		locator.WithMetrics(r.metrics),
		locator.WithLogger(r.logger),
	)
	if err != nil {
		return res, err
	}

	el, err := l.Resolve(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Status = statusFailed
		res.Error = err.Error()
		return res, nil
	}

	res.Status = statusPrimary
	if strategy, healed := l.HealingStrategy(); healed {
		res.Status = statusHealed
		res.Strategy = strategy
	}
	res.Resolved = healing.Describe(ctx, el)
	return res, nil
}

func (r *run) write(out io.Writer, results []elementResult) error {
	reportOut := out
	if path := r.cfg.Report.OutputPath; path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		reportOut = f
	}

	if strings.EqualFold(r.cfg.Report.Format, "json") {
		return r.writeJSON(out, reportOut, results)
	}
	return r.writeText(out, reportOut, results)
}

func (r *run) writeText(out, reportOut io.Writer, results []elementResult) error {
	for _, res := range results {
		var err error
		switch res.Status {
		case statusHealed:
			_, err = fmt.Fprintf(out, "[healed]  %s via %s: %s\n", res.Purpose, res.Strategy, res.Resolved)
		case statusFailed:
			_, err = fmt.Fprintf(out, "[failed]  %s: %s\n", res.Purpose, res.Error)
		default:
			_, err = fmt.Fprintf(out, "[primary] %s: %s\n", res.Purpose, res.Resolved)
		}
		if err != nil {
			return err
		}
	}
	if !r.cfg.Report.Enabled {
		return nil
	}
	if _, err := fmt.Fprintln(reportOut); err != nil {
		return err
	}
	return r.reporter.PrintReport(reportOut)
}

func (r *run) writeJSON(out, reportOut io.Writer, results []elementResult) error {
	doc := struct {
		Results []elementResult     `json:"results"`
		Report  jsoniter.RawMessage `json:"report,omitempty"`
	}{Results: results}

	if r.cfg.Report.Enabled {
		report, err := r.reporter.ToJSON()
		if err != nil {
			return err
		}
		if reportOut != out {
			if _, err := reportOut.Write(append(report, '\n')); err != nil {
				return err
			}
		} else {
			doc.Report = report
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	_, err = out.Write(append(data, '\n'))
	return err
}

func openBrowser(ctx context.Context, cfg *config.Config, logger *zap.Logger) (livePage, func(), error) {
	switch strings.ToLower(cfg.Browser.Driver) {
	case "playwright":
		b, err := pwdriver.Launch(ctx, cfg.Browser, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := b.Close(); err != nil {
				logger.Warn("Failed to close browser.", zap.Error(err))
			}
		}
		return b.Page(pwdriver.WithTestIDAttribute(cfg.Locator.TestIDAttribute)), closeFn, nil
	default:
		b, err := cdpdriver.NewBrowser(ctx, cfg.Browser, logger)
		if err != nil {
			return nil, nil, err
		}
		return b.Page(cdpdriver.WithTestIDAttribute(cfg.Locator.TestIDAttribute)), b.Close, nil
	}
}
